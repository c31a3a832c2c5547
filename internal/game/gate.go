package game

import (
	"fmt"

	"github.com/rogersf/court-engine/internal/domain"
)

// GateState is what terminal gates evaluate after each mutation.
type GateState struct {
	Status    domain.Status
	Exhausted bool
}

// TerminalGate decides whether a session has ended.
type TerminalGate interface {
	Name() string
	Evaluate(state GateState) (domain.Outcome, bool)
}

// Comparison selects how a ThresholdGate compares a stat to its limit.
type Comparison int

const (
	AtMost Comparison = iota
	Below
	AtLeast
)

// ThresholdGate ends the session when a stat crosses a limit.
type ThresholdGate struct {
	Label  string
	Field  domain.Field
	Cmp    Comparison
	Limit  float64
	Result domain.Result
	Cause  string
}

// Name returns the gate name.
func (g *ThresholdGate) Name() string { return g.Label }

// Evaluate checks the stat against the limit.
func (g *ThresholdGate) Evaluate(state GateState) (domain.Outcome, bool) {
	v := state.Status.Get(g.Field)
	var hit bool
	switch g.Cmp {
	case AtMost:
		hit = v <= g.Limit
	case Below:
		hit = v < g.Limit
	case AtLeast:
		hit = v >= g.Limit
	}
	if !hit {
		return domain.Outcome{}, false
	}
	return domain.Outcome{Result: g.Result, Day: state.Status.Day, Cause: g.Cause}, true
}

// ExhaustionGate ends the session when no petition can reach the court again.
type ExhaustionGate struct{}

// Name returns the gate name.
func (ExhaustionGate) Name() string { return "exhaustion" }

// Evaluate reports a loss when the pool is exhausted.
func (ExhaustionGate) Evaluate(state GateState) (domain.Outcome, bool) {
	if !state.Exhausted {
		return domain.Outcome{}, false
	}
	return domain.Outcome{Result: domain.ResultLost, Day: state.Status.Day, Cause: "no subjects remain"}, true
}

// GateRegistry evaluates terminal gates in a fixed order.
type GateRegistry struct {
	gates []TerminalGate
}

// NewGateRegistry installs the built-in gates: losses before wins, each
// checked independently, exhaustion last.
func NewGateRegistry(r Rules) *GateRegistry {
	moneyCmp, moneyOp := Below, "<"
	if r.MoneyLossInclusive {
		moneyCmp, moneyOp = AtMost, "<="
	}
	return &GateRegistry{gates: []TerminalGate{
		&ThresholdGate{Label: "love_lost", Field: domain.FieldLove, Cmp: AtMost, Limit: r.LoseThreshold, Result: domain.ResultLost,
			Cause: fmt.Sprintf("love fell to %g or below", r.LoseThreshold)},
		&ThresholdGate{Label: "respect_lost", Field: domain.FieldRespect, Cmp: AtMost, Limit: r.LoseThreshold, Result: domain.ResultLost,
			Cause: fmt.Sprintf("respect fell to %g or below", r.LoseThreshold)},
		&ThresholdGate{Label: "bankrupt", Field: domain.FieldMoney, Cmp: moneyCmp, Limit: 0, Result: domain.ResultLost,
			Cause: fmt.Sprintf("treasury is bankrupt (money %s 0)", moneyOp)},
		&ThresholdGate{Label: "love_won", Field: domain.FieldLove, Cmp: AtLeast, Limit: r.WinThreshold, Result: domain.ResultWon,
			Cause: fmt.Sprintf("love reached %g", r.WinThreshold)},
		&ThresholdGate{Label: "respect_won", Field: domain.FieldRespect, Cmp: AtLeast, Limit: r.WinThreshold, Result: domain.ResultWon,
			Cause: fmt.Sprintf("respect reached %g", r.WinThreshold)},
		ExhaustionGate{},
	}}
}

// Register appends a gate after the built-ins.
func (r *GateRegistry) Register(g TerminalGate) {
	r.gates = append(r.gates, g)
}

// Names lists the gates in evaluation order.
func (r *GateRegistry) Names() []string {
	names := make([]string, len(r.gates))
	for i, g := range r.gates {
		names[i] = g.Name()
	}
	return names
}

// Evaluate returns the outcome of the first gate that fires.
func (r *GateRegistry) Evaluate(state GateState) (domain.Outcome, string, bool) {
	for _, g := range r.gates {
		if out, ok := g.Evaluate(state); ok {
			return out, g.Name(), true
		}
	}
	return domain.Outcome{}, "", false
}
