package game

import (
	"errors"
	"strings"
	"testing"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
)

func TestGateRegistry_Order(t *testing.T) {
	want := []string{"love_lost", "respect_lost", "bankrupt", "love_won", "respect_won", "exhaustion"}
	got := NewGateRegistry(DefaultRules()).Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("gate %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGateRegistry_Priority(t *testing.T) {
	reg := NewGateRegistry(DefaultRules())

	tests := []struct {
		name      string
		status    domain.Status
		exhausted bool
		wantGate  string
		wantRes   domain.Result
	}{
		{"love loss beats respect", domain.Status{Love: -150, Respect: 50, Money: 10}, false, "love_lost", domain.ResultLost},
		{"loss beats simultaneous win", domain.Status{Love: 150, Respect: -100, Money: 10}, false, "respect_lost", domain.ResultLost},
		{"bankrupt beats win", domain.Status{Love: 120, Money: -1}, false, "bankrupt", domain.ResultLost},
		{"love win first", domain.Status{Love: 100, Respect: 100, Money: 10}, false, "love_won", domain.ResultWon},
		{"respect win", domain.Status{Respect: 101, Money: 10}, false, "respect_won", domain.ResultWon},
		{"win beats exhaustion", domain.Status{Respect: 101, Money: 10}, true, "respect_won", domain.ResultWon},
		{"exhaustion", domain.Status{Money: 10}, true, "exhaustion", domain.ResultLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, name, ok := reg.Evaluate(GateState{Status: tt.status, Exhausted: tt.exhausted})
			if !ok {
				t.Fatal("expected a terminal gate to fire")
			}
			if name != tt.wantGate || out.Result != tt.wantRes {
				t.Errorf("got %s/%s, want %s/%s", name, out.Result, tt.wantGate, tt.wantRes)
			}
		})
	}
}

func TestGateRegistry_NoTerminal(t *testing.T) {
	reg := NewGateRegistry(DefaultRules())
	states := []domain.Status{
		{Money: 0},
		{Money: 50, Love: -99, Respect: 99},
		{Money: 1, Love: 99.9, Respect: -99.9},
	}
	for _, st := range states {
		if out, name, ok := reg.Evaluate(GateState{Status: st}); ok {
			t.Errorf("%v: unexpected %s from %s", st, out.Result, name)
		}
	}
}

func TestGateRegistry_MoneyStrictness(t *testing.T) {
	rules := DefaultRules()
	rules.MoneyLossInclusive = true
	reg := NewGateRegistry(rules)

	_, name, ok := reg.Evaluate(GateState{Status: domain.Status{Money: 0}})
	if !ok || name != "bankrupt" {
		t.Errorf("inclusive: got %q/%v, want bankrupt", name, ok)
	}
}

type dayLimitGate struct{ limit int }

func (g dayLimitGate) Name() string { return "day_limit" }

func (g dayLimitGate) Evaluate(state GateState) (domain.Outcome, bool) {
	if state.Status.Day < g.limit {
		return domain.Outcome{}, false
	}
	return domain.Outcome{Result: domain.ResultWon, Day: state.Status.Day, Cause: "reign survived"}, true
}

func TestGateRegistry_CustomGate(t *testing.T) {
	s := newTestSession(t, DefaultRules(), basicEvents, 1)
	s.Gates().Register(dayLimitGate{limit: 3})
	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.AdvanceDay(); err != nil {
		t.Fatalf("AdvanceDay: %v", err)
	}
	rep, err := s.AdvanceDay()
	if err != nil {
		t.Fatalf("AdvanceDay: %v", err)
	}
	if rep.Gate != "day_limit" || s.Phase() != domain.PhaseGameOver {
		t.Errorf("gate %q phase %s, want day_limit game_over", rep.Gate, s.Phase())
	}
	if _, err := s.AdvanceDay(); !errors.Is(err, domain.ErrGameOver) {
		t.Errorf("err = %v, want ErrGameOver", err)
	}
}

func TestTaxCollector(t *testing.T) {
	tc := NewTaxCollector(DefaultRules())
	tests := []struct {
		rate     float64
		wantLove float64
	}{
		{0, 0},
		{15, 5},
		{30, 10},
		{4, 1},
		{5, 2},
	}
	for _, tt := range tests {
		st := domain.Status{TaxRate: tt.rate, Money: 100}
		receipt, deltas := tc.Collect(&st)
		if st.Money != 100+tt.rate {
			t.Errorf("rate %g: Money = %f, want %f", tt.rate, st.Money, 100+tt.rate)
		}
		if receipt.LoveLost != tt.wantLove || st.Love != -tt.wantLove {
			t.Errorf("rate %g: love lost %f (love %f), want %f", tt.rate, receipt.LoveLost, st.Love, tt.wantLove)
		}
		if len(deltas) != 2 || deltas[0].Source != domain.SourceTax {
			t.Errorf("rate %g: deltas = %+v", tt.rate, deltas)
		}
	}
}

func TestRules_Validate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules: %v", err)
	}

	bad := DefaultRules()
	bad.MaxTax = -5
	bad.ActionsPerDay = 0
	bad.IgnoredPetition[0].Field = "piety"
	err := bad.Validate()
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Fatalf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestRules_RandomMoneyPenaltyRejected(t *testing.T) {
	r := DefaultRules()
	r.IgnoredPetition = append(r.IgnoredPetition, catalog.Consequence{Field: "gold", MinChange: -40, MaxChange: -10})
	problems := r.Problems()
	if len(problems) != 1 || !strings.Contains(problems[0], "ignored_petition[2]") {
		t.Fatalf("Problems = %v, want one ignored_petition[2] problem", problems)
	}
	if err := r.Validate(); !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}

	r.IgnoredPetition[2].MaxChange = -40
	if err := r.Validate(); err != nil {
		t.Errorf("fixed money penalty: %v", err)
	}
}
