// Package consequence turns a choice's consequences into stat changes.
package consequence

import (
	"fmt"
	"math/rand"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
)

// Resolution is the outcome of applying a list of consequences.
type Resolution struct {
	Deltas []domain.AppliedDelta
	// Issues holds data-integrity problems; the offending consequences were skipped.
	Issues []error
}

// Engine samples consequence ranges from an injected generator.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an Engine drawing from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// Adjust adds one sample from [MinChange, MaxChange) to current.
// A zero-width range yields the fixed delta.
func (e *Engine) Adjust(current float64, c catalog.Consequence) float64 {
	lo, hi := c.MinChange, c.MaxChange
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return current + lo
	}
	return current + lo + e.rng.Float64()*(hi-lo)
}

// ResolveChoice applies consequences to status in declaration order, so later
// consequences see earlier changes to the same field. Consequences naming an
// unknown field or a randomised money change are skipped and reported.
func (e *Engine) ResolveChoice(status *domain.Status, cs []catalog.Consequence, source string) Resolution {
	var res Resolution
	for i, c := range cs {
		f, err := domain.ParseField(c.Field)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Errorf("consequence %d: %w", i, err))
			continue
		}
		if f == domain.FieldMoney && c.MinChange != c.MaxChange {
			res.Issues = append(res.Issues, fmt.Errorf("consequence %d: %w", i, domain.ErrRandomMoney))
			continue
		}
		before := status.Get(f)
		after := e.Adjust(before, c)
		status.Set(f, after)
		res.Deltas = append(res.Deltas, domain.AppliedDelta{
			Field:  f,
			Before: before,
			After:  after,
			Delta:  after - before,
			Source: source,
		})
	}
	return res
}

// CanAfford reports whether applying cs cannot drive money below zero.
// Money consequences are summed in declaration order and the running total
// must stay at or above zero after each one, so a gain listed before a cost
// covers it. Money consequences must be fixed (min == max); a randomised one
// is a data error and makes the choice unaffordable. Love and respect are
// never gated.
func CanAfford(cs []catalog.Consequence, status domain.Status) (bool, []error) {
	var issues []error
	ok := true
	money := status.Money
	for i, c := range cs {
		f, err := domain.ParseField(c.Field)
		if err != nil || f != domain.FieldMoney {
			continue
		}
		if c.MinChange != c.MaxChange {
			issues = append(issues, fmt.Errorf("consequence %d: %w", i, domain.ErrRandomMoney))
			ok = false
			continue
		}
		money += c.MinChange
		if money < 0 {
			ok = false
		}
	}
	return ok, issues
}
