package game

import (
	"math"

	"github.com/rogersf/court-engine/internal/domain"
)

// TaxReceipt is the result of one daily tax collection.
type TaxReceipt struct {
	Rate        float64 `json:"rate"`
	MoneyGained float64 `json:"money_gained"`
	LoveLost    float64 `json:"love_lost"`
}

// TaxCollector exchanges love for money once per day at the current rate.
type TaxCollector struct {
	MinTax           float64
	MaxTax           float64
	LoveLostAtMaxTax float64
}

// NewTaxCollector builds a collector from the rule set's tax bracket.
func NewTaxCollector(r Rules) TaxCollector {
	return TaxCollector{
		MinTax:           r.MinTax,
		MaxTax:           r.MaxTax,
		LoveLostAtMaxTax: r.LoveLostAtMaxTax,
	}
}

// LoveCost is the love lost per day at rate, rounded to a whole point.
func (t TaxCollector) LoveCost(rate float64) float64 {
	span := t.MaxTax - t.MinTax
	if span <= 0 {
		return 0
	}
	return math.Round(t.LoveLostAtMaxTax * (rate - t.MinTax) / span)
}

// Collect applies the day's tax to status. It draws no randomness.
func (t TaxCollector) Collect(status *domain.Status) (TaxReceipt, []domain.AppliedDelta) {
	rate := status.TaxRate
	cost := t.LoveCost(rate)

	moneyBefore, loveBefore := status.Money, status.Love
	status.Money += rate
	status.Love -= cost

	receipt := TaxReceipt{Rate: rate, MoneyGained: rate, LoveLost: cost}
	deltas := []domain.AppliedDelta{
		{Field: domain.FieldMoney, Before: moneyBefore, After: status.Money, Delta: rate, Source: domain.SourceTax},
		{Field: domain.FieldLove, Before: loveBefore, After: status.Love, Delta: -cost, Source: domain.SourceTax},
	}
	return receipt, deltas
}
