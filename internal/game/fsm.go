// Package game runs a single ruler session: the phase machine, the day cycle
// and the terminal checks that follow every stat mutation.
package game

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/consequence"
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/pool"
)

// validTransitions defines the legal phase transitions.
var validTransitions = map[domain.Phase]map[domain.Phase]bool{
	domain.PhaseSetup:   {domain.PhasePlaying: true},
	domain.PhasePlaying: {domain.PhaseGameOver: true},
}

// IsValidTransition checks if a phase transition is legal.
func IsValidTransition(from, to domain.Phase) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Report describes everything one action changed.
type Report struct {
	Day      int                   `json:"day"`
	Tax      *TaxReceipt           `json:"tax,omitempty"`
	Resolved *ResolvedPetition     `json:"resolved,omitempty"`
	Evicted  []PetitionView        `json:"evicted,omitempty"`
	Deltas   []domain.AppliedDelta `json:"deltas"`
	Issues   []string              `json:"issues,omitempty"`
	Refill   *pool.RefillReport    `json:"refill,omitempty"`
	Outcome  *domain.Outcome       `json:"outcome,omitempty"`
	// Gate names the terminal gate that ended the session, if any.
	Gate string `json:"gate,omitempty"`
}

// ResolvedPetition records which choice settled a petition.
type ResolvedPetition struct {
	PetitionID  int    `json:"petition_id"`
	Character   string `json:"character"`
	ChoiceIndex int    `json:"choice_index"`
	Choice      string `json:"choice"`
	Lethal      bool   `json:"lethal"`
}

// Session is one game run. It is not safe for concurrent use; callers
// serialize actions.
type Session struct {
	ID string

	rules   Rules
	phase   domain.Phase
	status  domain.Status
	outcome *domain.Outcome

	pool   *pool.Scheduler
	engine *consequence.Engine
	gates  *GateRegistry
	tax    TaxCollector

	lastRefill pool.RefillReport
	logger     *log.Logger
}

// NewSession builds a session in the setup phase. The catalog's definitions
// are placed in the unseen bucket; rng drives every random draw.
func NewSession(id string, rules Rules, cat *catalog.Catalog, rng *rand.Rand, logger *log.Logger) (*Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if cat == nil || cat.Len() == 0 {
		return nil, domain.ErrCatalogEmpty
	}
	if rng == nil {
		return nil, fmt.Errorf("new session: nil random source")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Session{
		ID:    id,
		rules: rules,
		phase: domain.PhaseSetup,
		status: domain.Status{
			TaxRate:   rules.TaxRate,
			Money:     rules.StartingMoney,
			RulerName: rules.RulerName,
			Title:     rules.Title,
		},
		pool:   pool.New(cat.Events(), rng),
		engine: consequence.NewEngine(rng),
		gates:  NewGateRegistry(rules),
		tax:    NewTaxCollector(rules),
		logger: logger,
	}, nil
}

// Start moves the session into play and opens the first day.
func (s *Session) Start() (*Report, error) {
	if err := s.transition(domain.PhasePlaying); err != nil {
		return nil, err
	}
	s.logf("started with %d petitions", s.pool.Counts().Total())
	return s.AdvanceDay()
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase { return s.phase }

// Status returns a copy of the resource snapshot.
func (s *Session) Status() domain.Status { return s.status }

// Outcome returns how the session ended, or nil while it is still running.
func (s *Session) Outcome() *domain.Outcome {
	if s.outcome == nil {
		return nil
	}
	out := *s.outcome
	return &out
}

// Rules returns the rule set the session was created with.
func (s *Session) Rules() Rules { return s.rules }

// Gates exposes the terminal gate registry so callers can register extra gates
// before the session starts.
func (s *Session) Gates() *GateRegistry { return s.gates }

// CheckInvariants verifies the petition pool bookkeeping.
func (s *Session) CheckInvariants() error { return s.pool.CheckInvariants() }

func (s *Session) transition(to domain.Phase) error {
	if !IsValidTransition(s.phase, to) {
		return domain.NewGameError(
			domain.ErrInvalidTransition.Code,
			fmt.Sprintf("illegal transition %s -> %s", s.phase, to),
		)
	}
	s.phase = to
	return nil
}

// requirePlaying rejects actions outside the playing phase.
func (s *Session) requirePlaying() error {
	switch s.phase {
	case domain.PhasePlaying:
		return nil
	case domain.PhaseGameOver:
		return domain.ErrGameOver
	default:
		return domain.ErrSessionNotPlaying
	}
}

// check runs the terminal gates. It returns true once the session is over.
func (s *Session) check(rep *Report) bool {
	if s.phase == domain.PhaseGameOver {
		return true
	}
	out, name, ok := s.gates.Evaluate(GateState{Status: s.status, Exhausted: s.pool.Exhausted()})
	if !ok {
		return false
	}
	if err := s.transition(domain.PhaseGameOver); err != nil {
		s.logf("terminal gate %s: %v", name, err)
		return false
	}
	s.status.GameOver = true
	s.outcome = &out
	if rep != nil {
		o := out
		rep.Outcome = &o
		rep.Gate = name
	}
	s.logf("game over on day %d: %s (%s)", out.Day, out.Result, out.Cause)
	return true
}

func (s *Session) logf(format string, args ...any) {
	s.logger.Printf("session %s: "+format, append([]any{s.ID}, args...)...)
}

// addIssues records data-integrity problems on the report and the log.
func (s *Session) addIssues(rep *Report, issues []error) {
	for _, err := range issues {
		rep.Issues = append(rep.Issues, err.Error())
		s.logf("day %d: data issue: %v", s.status.Day, err)
	}
}
