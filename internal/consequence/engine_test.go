package consequence

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
)

func newTestEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)))
}

func TestAdjust_FixedDelta(t *testing.T) {
	e := newTestEngine(1)
	got := e.Adjust(100, catalog.Consequence{Field: "money", MinChange: -10, MaxChange: -10})
	if got != 90 {
		t.Errorf("Adjust = %f, want 90", got)
	}
}

func TestAdjust_StaysInRange(t *testing.T) {
	e := newTestEngine(2)
	c := catalog.Consequence{Field: "love", MinChange: 3, MaxChange: 8}
	for i := 0; i < 1000; i++ {
		d := e.Adjust(0, c)
		if d < 3 || d >= 8 {
			t.Fatalf("sample %d: delta %f outside [3, 8)", i, d)
		}
	}
}

func TestAdjust_ReversedRange(t *testing.T) {
	e := newTestEngine(3)
	c := catalog.Consequence{Field: "love", MinChange: 5, MaxChange: -5}
	for i := 0; i < 200; i++ {
		d := e.Adjust(0, c)
		if d < -5 || d >= 5 {
			t.Fatalf("delta %f outside [-5, 5)", d)
		}
	}
}

func TestResolveChoice_SequentialOnSameField(t *testing.T) {
	e := newTestEngine(4)
	status := domain.Status{Money: 50}
	cs := []catalog.Consequence{
		{Field: "money", MinChange: 10, MaxChange: 10},
		{Field: "gold", MinChange: -5, MaxChange: -5},
	}

	res := e.ResolveChoice(&status, cs, domain.SourceChoice)
	if len(res.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", res.Issues)
	}
	if status.Money != 55 {
		t.Errorf("Money = %f, want 55", status.Money)
	}
	if len(res.Deltas) != 2 {
		t.Fatalf("Deltas = %d, want 2", len(res.Deltas))
	}
	if d := res.Deltas[1]; d.Before != 60 || d.After != 55 || d.Delta != -5 {
		t.Errorf("second delta = %+v, want 60 -> 55", d)
	}
	if res.Deltas[0].Source != domain.SourceChoice {
		t.Errorf("Source = %q, want choice", res.Deltas[0].Source)
	}
}

func TestResolveChoice_SkipsUnknownField(t *testing.T) {
	e := newTestEngine(5)
	status := domain.Status{Love: 0, Respect: 0}
	cs := []catalog.Consequence{
		{Field: "love", MinChange: 2, MaxChange: 2},
		{Field: "piety", MinChange: 9, MaxChange: 9},
		{Field: "respect", MinChange: -3, MaxChange: -3},
	}

	res := e.ResolveChoice(&status, cs, domain.SourceChoice)
	if len(res.Issues) != 1 {
		t.Fatalf("Issues = %d, want 1", len(res.Issues))
	}
	if !errors.Is(res.Issues[0], domain.ErrUnknownField) {
		t.Errorf("issue = %v, want ErrUnknownField", res.Issues[0])
	}
	if status.Love != 2 || status.Respect != -3 {
		t.Errorf("status = %v, want love 2 respect -3", status)
	}
	if len(res.Deltas) != 2 {
		t.Errorf("Deltas = %d, want 2", len(res.Deltas))
	}
}

func TestResolveChoice_SkipsRandomMoney(t *testing.T) {
	e := newTestEngine(9)
	status := domain.Status{Money: 100}
	cs := []catalog.Consequence{
		{Field: "money", MinChange: -50, MaxChange: -5},
		{Field: "gold", MinChange: 4, MaxChange: 8},
		{Field: "money", MinChange: -10, MaxChange: -10},
		{Field: "love", MinChange: 1, MaxChange: 3},
	}

	res := e.ResolveChoice(&status, cs, domain.SourceIgnored)
	if len(res.Issues) != 2 {
		t.Fatalf("Issues = %v, want 2", res.Issues)
	}
	for _, err := range res.Issues {
		if !errors.Is(err, domain.ErrRandomMoney) {
			t.Errorf("issue = %v, want ErrRandomMoney", err)
		}
	}
	if status.Money != 90 {
		t.Errorf("Money = %f, want 90", status.Money)
	}
	if status.Love < 1 || status.Love >= 3 {
		t.Errorf("Love = %f, want within [1, 3)", status.Love)
	}
	if len(res.Deltas) != 2 {
		t.Errorf("Deltas = %d, want 2", len(res.Deltas))
	}
}

func TestResolveChoice_ZeroWidthLeavesStatsUnchanged(t *testing.T) {
	e := newTestEngine(6)
	status := domain.Status{Money: 100, Love: 10, Respect: -4}
	before := status
	cs := []catalog.Consequence{
		{Field: "money", MinChange: 0, MaxChange: 0},
		{Field: "love", MinChange: 0, MaxChange: 0},
		{Field: "respect", MinChange: 0, MaxChange: 0},
	}
	e.ResolveChoice(&status, cs, domain.SourceChoice)
	if status != before {
		t.Errorf("status = %v, want %v", status, before)
	}
}

func TestCanAfford(t *testing.T) {
	tests := []struct {
		name  string
		money float64
		cs    []catalog.Consequence
		want  bool
	}{
		{"no money consequence", 0, []catalog.Consequence{{Field: "love", MinChange: -50, MaxChange: -10}}, true},
		{"exactly zero after", 10, []catalog.Consequence{{Field: "money", MinChange: -10, MaxChange: -10}}, true},
		{"below zero after", 9, []catalog.Consequence{{Field: "money", MinChange: -10, MaxChange: -10}}, false},
		{"gain while broke", 0, []catalog.Consequence{{Field: "money", MinChange: 5, MaxChange: 5}}, true},
		{"gold alias", 3, []catalog.Consequence{{Field: "gold", MinChange: -5, MaxChange: -5}}, false},
		{"cumulative spending", 15, []catalog.Consequence{
			{Field: "money", MinChange: -10, MaxChange: -10},
			{Field: "money", MinChange: -10, MaxChange: -10},
		}, false},
		{"earlier gain covers later cost", 100, []catalog.Consequence{
			{Field: "money", MinChange: 50, MaxChange: 50},
			{Field: "money", MinChange: -120, MaxChange: -120},
		}, true},
		{"cost before gain", 100, []catalog.Consequence{
			{Field: "money", MinChange: -120, MaxChange: -120},
			{Field: "money", MinChange: 50, MaxChange: 50},
		}, false},
		{"unknown field ignored", 0, []catalog.Consequence{{Field: "piety", MinChange: -10, MaxChange: -10}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := CanAfford(tt.cs, domain.Status{Money: tt.money})
			if got != tt.want {
				t.Errorf("CanAfford = %v, want %v", got, tt.want)
			}
			if len(issues) != 0 {
				t.Errorf("unexpected issues: %v", issues)
			}
		})
	}
}

func TestCanAfford_RandomMoneyIsDataError(t *testing.T) {
	ok, issues := CanAfford([]catalog.Consequence{{Field: "money", MinChange: -5, MaxChange: 5}}, domain.Status{Money: 1000})
	if ok {
		t.Error("randomised money consequence should not be affordable")
	}
	if len(issues) != 1 || !errors.Is(issues[0], domain.ErrRandomMoney) {
		t.Errorf("issues = %v, want ErrRandomMoney", issues)
	}
}
