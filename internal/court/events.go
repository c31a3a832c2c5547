package court

import (
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/game"
	"github.com/rogersf/court-engine/internal/pool"
)

// StartedPayload is the body of a session_started event. Together with the
// catalog it identifies, it is enough to replay the session.
type StartedPayload struct {
	Seed          int64      `json:"seed"`
	CatalogDigest string     `json:"catalog_digest"`
	Rules         game.Rules `json:"rules"`
}

// DayPayload is the body of a day_advanced event.
type DayPayload struct {
	Day     int                `json:"day"`
	Refill  *pool.RefillReport `json:"refill,omitempty"`
	Evicted int                `json:"evicted"`
	Status  domain.Status      `json:"status"`
}

// TaxPayload is the body of a tax_collected event.
type TaxPayload struct {
	Receipt *game.TaxReceipt `json:"receipt"`
}

// IgnoredPayload is the body of a petition_ignored event.
type IgnoredPayload struct {
	Petition game.PetitionView `json:"petition"`
}

// ChoicePayload is the body of a choice_resolved event.
type ChoicePayload struct {
	PetitionID  int                    `json:"petition_id"`
	ChoiceIndex int                    `json:"choice_index"`
	Resolved    *game.ResolvedPetition `json:"resolved"`
	Deltas      []domain.AppliedDelta  `json:"deltas"`
	Issues      []string               `json:"issues,omitempty"`
	Status      domain.Status          `json:"status"`
}

// TaxRatePayload is the body of a tax_rate_changed event.
type TaxRatePayload struct {
	Rate   float64       `json:"rate"`
	Status domain.Status `json:"status"`
}

// GameOverPayload is the body of a game_over event.
type GameOverPayload struct {
	Outcome domain.Outcome `json:"outcome"`
	Gate    string         `json:"gate"`
}

// ClosedPayload is the body of a session_closed event.
type ClosedPayload struct {
	Phase  domain.Phase  `json:"phase"`
	Status domain.Status `json:"status"`
}

// dayEvents turns one AdvanceDay report into journal events. Every call
// yields exactly one day_advanced event, even when the day ended at the tax
// collection.
func dayEvents(rep *game.Report, status domain.Status) []pendingEvent {
	var out []pendingEvent
	if rep.Tax != nil {
		out = append(out, pendingEvent{
			Type:    domain.EventTaxCollected,
			Day:     rep.Day,
			Payload: TaxPayload{Receipt: rep.Tax},
		})
	}
	for _, p := range rep.Evicted {
		out = append(out, pendingEvent{
			Type:    domain.EventPetitionIgnored,
			Day:     rep.Day,
			Payload: IgnoredPayload{Petition: p},
		})
	}
	out = append(out, pendingEvent{
		Type: domain.EventDayAdvanced,
		Day:  rep.Day,
		Payload: DayPayload{
			Day:     rep.Day,
			Refill:  rep.Refill,
			Evicted: len(rep.Evicted),
			Status:  status,
		},
	})
	return append(out, gameOverEvents(rep)...)
}

func gameOverEvents(rep *game.Report) []pendingEvent {
	if rep.Outcome == nil {
		return nil
	}
	return []pendingEvent{{
		Type:    domain.EventGameOver,
		Day:     rep.Day,
		Payload: GameOverPayload{Outcome: *rep.Outcome, Gate: rep.Gate},
	}}
}
