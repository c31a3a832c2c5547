package domain

import (
	"errors"
	"fmt"
)

// GameError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type GameError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *GameError) Error() string {
	return fmt.Sprintf("game error %d: %s", e.Code, e.Message)
}

// Is reports whether target is a GameError with the same code, so callers can
// match a decorated error against its sentinel with errors.Is.
func (e *GameError) Is(target error) bool {
	var t *GameError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewGameError creates a new GameError.
func NewGameError(code int, msg string) *GameError {
	return &GameError{Code: code, Message: msg}
}

// WrapGameError creates a GameError that includes a cause.
func WrapGameError(code int, msg string, cause error) *GameError {
	return &GameError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Session / action errors (-33010 to -33039) ----

var (
	ErrInvalidTransition = &GameError{Code: -33010, Message: "invalid phase transition"}
	ErrSessionNotFound   = &GameError{Code: -33011, Message: "session not found"}
	ErrSessionNotPlaying = &GameError{Code: -33012, Message: "session is not playing"}
	ErrGameOver          = &GameError{Code: -33013, Message: "game is over"}
	ErrNoActionsLeft     = &GameError{Code: -33014, Message: "no actions left today"}
	ErrPetitionNotFound  = &GameError{Code: -33015, Message: "petition is not in court"}
	ErrChoiceNotFound    = &GameError{Code: -33016, Message: "choice not found"}
	ErrCannotAfford      = &GameError{Code: -33017, Message: "choice is not affordable"}
	ErrTaxOutOfRange     = &GameError{Code: -33018, Message: "tax rate out of range"}
	ErrDuplicateSession  = &GameError{Code: -33019, Message: "session already exists"}
)

// ---- Catalog / data-integrity errors (-33040 to -33069) ----

var (
	ErrCatalogInvalid = &GameError{Code: -33040, Message: "invalid event catalog"}
	ErrCatalogEmpty   = &GameError{Code: -33041, Message: "event catalog has no events"}
	ErrUnknownField   = &GameError{Code: -33042, Message: "unrecognised consequence field"}
	ErrRandomMoney    = &GameError{Code: -33043, Message: "randomised money consequence is unsupported"}
	ErrPoolInvariant  = &GameError{Code: -33044, Message: "pool invariant violated"}
)

// ---- Store / config errors (-33070 to -33099) ----

var (
	ErrStoreInit      = &GameError{Code: -33070, Message: "failed to initialize store"}
	ErrStoreQuery     = &GameError{Code: -33071, Message: "store query failed"}
	ErrStoreWrite     = &GameError{Code: -33072, Message: "store write failed"}
	ErrConfigInvalid  = &GameError{Code: -33073, Message: "invalid configuration"}
	ErrDuplicateEvent = &GameError{Code: -33074, Message: "duplicate event sequence number"}
)

// ---- Guard errors (-33100 to -33129) ----

var (
	ErrRateLimitExceeded = &GameError{Code: -33100, Message: "rate limit exceeded"}
	ErrSessionLimit      = &GameError{Code: -33101, Message: "maximum live sessions reached"}
)
