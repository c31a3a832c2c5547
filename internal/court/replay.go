package court

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/game"
	"github.com/rogersf/court-engine/internal/journal"
	"github.com/rogersf/court-engine/internal/random"
)

// ReplayResult summarises a re-run of a journaled session.
type ReplayResult struct {
	SessionID  string          `json:"session_id"`
	Seed       int64           `json:"seed"`
	Actions    int             `json:"actions"`
	Final      domain.Status   `json:"final"`
	Outcome    *domain.Outcome `json:"outcome,omitempty"`
	Mismatches []string        `json:"mismatches,omitempty"`
}

// OK reports whether the re-run matched every recorded state.
func (r *ReplayResult) OK() bool { return len(r.Mismatches) == 0 }

// Replay re-runs a journaled session against cat and compares each recorded
// status and the final outcome with the re-run. The catalog must be the one
// the session was started with.
func Replay(cat *catalog.Catalog, entries []journal.Entry) (*ReplayResult, error) {
	if len(entries) == 0 || entries[0].Type != domain.EventSessionStarted {
		return nil, fmt.Errorf("replay: journal does not begin with %s", domain.EventSessionStarted)
	}
	var start StartedPayload
	if err := json.Unmarshal(entries[0].Payload, &start); err != nil {
		return nil, fmt.Errorf("replay: decode %s: %w", domain.EventSessionStarted, err)
	}
	if start.CatalogDigest != cat.Digest() {
		return nil, fmt.Errorf("replay: catalog digest %s does not match journal %s", cat.Digest(), start.CatalogDigest)
	}

	id := entries[0].SessionID
	rng, _, err := random.NewRand(start.Seed)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	sess, err := game.NewSession(id, start.Rules, cat, rng, log.New(io.Discard, "", 0))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if _, err := sess.Start(); err != nil {
		return nil, fmt.Errorf("replay: start: %w", err)
	}

	res := &ReplayResult{SessionID: id, Seed: start.Seed}
	compare := func(e journal.Entry, want domain.Status) {
		if got := sess.Status(); got != want {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("seq %d %s: status %s, journal %s", e.Seq, e.Type, got, want))
		}
	}

	// The first day_advanced belongs to Start.
	startDay := true
	var recorded *domain.Outcome
	for _, e := range entries[1:] {
		switch e.Type {
		case domain.EventDayAdvanced:
			var p DayPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("replay: seq %d: %w", e.Seq, err)
			}
			if startDay {
				startDay = false
			} else {
				if _, err := sess.AdvanceDay(); err != nil {
					return nil, fmt.Errorf("replay: seq %d advance: %w", e.Seq, err)
				}
				res.Actions++
			}
			compare(e, p.Status)

		case domain.EventChoiceResolved:
			var p ChoicePayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("replay: seq %d: %w", e.Seq, err)
			}
			if _, err := sess.SelectChoice(p.PetitionID, p.ChoiceIndex); err != nil {
				return nil, fmt.Errorf("replay: seq %d choice: %w", e.Seq, err)
			}
			res.Actions++
			compare(e, p.Status)

		case domain.EventTaxRateChanged:
			var p TaxRatePayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("replay: seq %d: %w", e.Seq, err)
			}
			if err := sess.SetTaxRate(p.Rate); err != nil {
				return nil, fmt.Errorf("replay: seq %d tax: %w", e.Seq, err)
			}
			res.Actions++
			compare(e, p.Status)

		case domain.EventGameOver:
			var p GameOverPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, fmt.Errorf("replay: seq %d: %w", e.Seq, err)
			}
			recorded = &p.Outcome
		}
	}

	res.Final = sess.Status()
	res.Outcome = sess.Outcome()
	switch {
	case recorded == nil && res.Outcome != nil:
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("re-run ended (%s), journal did not", res.Outcome.Result))
	case recorded != nil && res.Outcome == nil:
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("journal ended (%s), re-run did not", recorded.Result))
	case recorded != nil && *recorded != *res.Outcome:
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("outcome %+v, journal %+v", *res.Outcome, *recorded))
	}
	return res, nil
}

// ReplayFile reads a journal file and replays it.
func ReplayFile(cat *catalog.Catalog, path string) (*ReplayResult, error) {
	entries, err := journal.ReadAll(path)
	if err != nil {
		return nil, err
	}
	return Replay(cat, entries)
}
