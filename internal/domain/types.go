// Package domain defines the core types shared by the court engine packages.
package domain

import (
	"fmt"
	"strings"
)

// Field identifies a resource stat a consequence can change.
type Field string

const (
	FieldMoney   Field = "money"
	FieldLove    Field = "love"
	FieldRespect Field = "respect"
)

// ParseField maps a consequence field identifier to a Field.
// "gold" is accepted as an alias for money.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "money", "gold":
		return FieldMoney, nil
	case "love":
		return FieldLove, nil
	case "respect":
		return FieldRespect, nil
	default:
		return "", NewGameError(ErrUnknownField.Code, fmt.Sprintf("%s: %q", ErrUnknownField.Message, s))
	}
}

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

// Result tags a finished session.
type Result string

const (
	ResultWon  Result = "won"
	ResultLost Result = "lost"
)

// Outcome describes how and when a session ended.
type Outcome struct {
	Result Result `json:"result"`
	Day    int    `json:"day"`
	Cause  string `json:"cause"`
}

// Status is the per-session resource snapshot.
type Status struct {
	Day         int     `json:"day"`
	ActionsLeft int     `json:"actions_left"`
	TaxRate     float64 `json:"tax_rate"`
	Money       float64 `json:"money"`
	Love        float64 `json:"love"`
	Respect     float64 `json:"respect"`
	GameOver    bool    `json:"game_over"`
	RulerName   string  `json:"ruler_name"`
	Title       string  `json:"title"`
}

// Get returns the value of a stat field.
func (s *Status) Get(f Field) float64 {
	switch f {
	case FieldMoney:
		return s.Money
	case FieldLove:
		return s.Love
	case FieldRespect:
		return s.Respect
	}
	return 0
}

// Set writes the value of a stat field. Unknown fields are ignored.
func (s *Status) Set(f Field, v float64) {
	switch f {
	case FieldMoney:
		s.Money = v
	case FieldLove:
		s.Love = v
	case FieldRespect:
		s.Respect = v
	}
}

// String formats the status for log lines.
func (s Status) String() string {
	return fmt.Sprintf("Status{Day: %d, Money: %.1f, Love: %.1f, Respect: %.1f}", s.Day, s.Money, s.Love, s.Respect)
}

// AppliedDelta records one stat change made by a consequence.
type AppliedDelta struct {
	Field  Field   `json:"field"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Delta  float64 `json:"delta"`
	Source string  `json:"source"`
}

// Delta sources.
const (
	SourceChoice  = "choice"
	SourceIgnored = "ignored"
	SourceTax     = "tax"
)

// Event types written to the session journal.
const (
	EventSessionStarted  = "session_started"
	EventDayAdvanced     = "day_advanced"
	EventTaxCollected    = "tax_collected"
	EventTaxRateChanged  = "tax_rate_changed"
	EventChoiceResolved  = "choice_resolved"
	EventPetitionIgnored = "petition_ignored"
	EventGameOver        = "game_over"
	EventSessionClosed   = "session_closed"
)

// SessionRecord is the stored header row of a session.
type SessionRecord struct {
	SessionID     string
	Phase         Phase
	Seed          int64
	CatalogDigest string
	Day           int
	Result        string
	Cause         string
	LastEventSeq  int64
	CreatedAtUnix int64
	UpdatedAtUnix int64
}

// SessionEvent is one entry in a session's event journal.
type SessionEvent struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id"`
	SeqNo       int64  `json:"seq_no"`
	Day         int    `json:"day"`
	EventType   string `json:"event_type"`
	PayloadJSON string `json:"payload_json"`
	CreatedAt   int64  `json:"created_at"`
}

// DaySnapshot captures the status at the start of a day.
type DaySnapshot struct {
	ID           int64  `json:"id"`
	SessionID    string `json:"session_id"`
	Day          int    `json:"day"`
	SnapshotJSON string `json:"snapshot_json"`
	Checksum     string `json:"checksum"`
	CreatedAt    int64  `json:"created_at"`
}

// DeltaRecord is a stored AppliedDelta.
type DeltaRecord struct {
	SessionID string  `json:"session_id"`
	SeqNo     int64   `json:"seq_no"`
	Day       int     `json:"day"`
	Field     Field   `json:"field"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Delta     float64 `json:"delta"`
	Source    string  `json:"source"`
	CreatedAt int64   `json:"created_at"`
}

// AuditRecord logs data-integrity problems and rejected actions.
type AuditRecord struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Category   string `json:"category"`
	Action     string `json:"action"`
	DetailJSON string `json:"detail_json"`
	Severity   string `json:"severity"`
	CreatedAt  int64  `json:"created_at"`
}
