package game

import (
	"github.com/rogersf/court-engine/internal/domain"
)

// AdvanceDay closes the current day and opens the next one: tax (after the
// first day), day counter and action budget, court refill with penalties for
// ignored petitions. A terminal check follows each mutation and the cycle
// stops as soon as the session is over.
func (s *Session) AdvanceDay() (*Report, error) {
	if err := s.requirePlaying(); err != nil {
		return nil, err
	}
	rep := &Report{Day: s.status.Day}

	if s.status.Day > 0 {
		receipt, deltas := s.tax.Collect(&s.status)
		rep.Tax = &receipt
		rep.Deltas = append(rep.Deltas, deltas...)
		if s.check(rep) {
			return rep, nil
		}
	}

	s.status.Day++
	s.status.ActionsLeft = s.rules.ActionsPerDay
	rep.Day = s.status.Day

	evicted, refill := s.pool.RefillCourt(s.rules.CourtCapacity, s.rules.WaitLimit)
	s.lastRefill = refill
	rep.Refill = &refill
	if len(evicted) > 0 {
		s.logf("day %d: evicted %d petitions", s.status.Day, len(evicted))
	}
	if refill.UnderCapacity {
		s.logf("day %d: court under capacity (%d of %d)", s.status.Day, s.pool.Counts().Court, s.rules.CourtCapacity)
	}

	for _, p := range evicted {
		rep.Evicted = append(rep.Evicted, petitionView(p, s.status))
		res := s.engine.ResolveChoice(&s.status, s.rules.IgnoredPetition, domain.SourceIgnored)
		rep.Deltas = append(rep.Deltas, res.Deltas...)
		s.addIssues(rep, res.Issues)
		if s.check(rep) {
			return rep, nil
		}
	}

	s.check(rep)
	return rep, nil
}
