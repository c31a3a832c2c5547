package game

import (
	"fmt"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
)

// Rules holds the tunable parameters of a session.
type Rules struct {
	CourtCapacity      int     `json:"court_capacity" yaml:"court_capacity"`
	ActionsPerDay      int     `json:"actions_per_day" yaml:"actions_per_day"`
	WaitLimit          int     `json:"wait_limit" yaml:"wait_limit"`
	MinTax             float64 `json:"min_tax" yaml:"min_tax"`
	MaxTax             float64 `json:"max_tax" yaml:"max_tax"`
	TaxRate            float64 `json:"tax_rate" yaml:"tax_rate"`
	LoveLostAtMaxTax   float64 `json:"love_lost_at_max_tax" yaml:"love_lost_at_max_tax"`
	StartingMoney      float64 `json:"starting_money" yaml:"starting_money"`
	WinThreshold       float64 `json:"win_threshold" yaml:"win_threshold"`
	LoseThreshold      float64 `json:"lose_threshold" yaml:"lose_threshold"`
	MoneyLossInclusive bool    `json:"money_loss_inclusive" yaml:"money_loss_inclusive"`
	RulerName          string  `json:"ruler_name" yaml:"ruler_name"`
	Title              string  `json:"title" yaml:"title"`

	// IgnoredPetition is applied once for every petition that ages out of court.
	IgnoredPetition []catalog.Consequence `json:"ignored_petition" yaml:"ignored_petition"`
}

// DefaultRules returns the reference rule set.
func DefaultRules() Rules {
	return Rules{
		CourtCapacity:    5,
		ActionsPerDay:    3,
		WaitLimit:        2,
		MinTax:           0,
		MaxTax:           30,
		TaxRate:          15,
		LoveLostAtMaxTax: 10,
		StartingMoney:    100,
		WinThreshold:     100,
		LoseThreshold:    -100,
		RulerName:        "Ruler",
		Title:            "King",
		IgnoredPetition: []catalog.Consequence{
			{Field: "love", MinChange: -5, MaxChange: -5},
			{Field: "respect", MinChange: -2, MaxChange: -2},
		},
	}
}

// Validate reports every problem with the rule set at once.
func (r Rules) Validate() error {
	problems := r.Problems()
	if len(problems) > 0 {
		return &domain.GameError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}

// Problems lists every rule violation, prefixed with its key.
func (r Rules) Problems() []string {
	var problems []string

	if r.CourtCapacity < 1 {
		problems = append(problems, "court_capacity must be at least 1")
	}
	if r.ActionsPerDay < 1 {
		problems = append(problems, "actions_per_day must be at least 1")
	}
	if r.WaitLimit < 0 {
		problems = append(problems, "wait_limit must not be negative")
	}
	if r.MaxTax <= r.MinTax {
		problems = append(problems, "max_tax must be greater than min_tax")
	}
	if r.TaxRate < r.MinTax || r.TaxRate > r.MaxTax {
		problems = append(problems, "tax_rate must lie within [min_tax, max_tax]")
	}
	if r.LoveLostAtMaxTax < 0 {
		problems = append(problems, "love_lost_at_max_tax must not be negative")
	}
	if r.WinThreshold <= r.LoseThreshold {
		problems = append(problems, "win_threshold must be greater than lose_threshold")
	}
	for i, c := range r.IgnoredPetition {
		f, err := domain.ParseField(c.Field)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ignored_petition[%d]: unknown field %q", i, c.Field))
			continue
		}
		if f == domain.FieldMoney && c.MinChange != c.MaxChange {
			problems = append(problems, fmt.Sprintf("ignored_petition[%d]: money change must be fixed (min == max)", i))
		}
	}
	return problems
}
