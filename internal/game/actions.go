package game

import (
	"fmt"

	"github.com/rogersf/court-engine/internal/consequence"
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/pool"
)

// SelectChoice settles a court petition with one of its choices. Every check
// runs before any state changes, so a rejected action leaves the session
// untouched.
func (s *Session) SelectChoice(petitionID, choiceIndex int) (*Report, error) {
	if err := s.requirePlaying(); err != nil {
		return nil, err
	}
	if s.status.ActionsLeft <= 0 {
		return nil, domain.ErrNoActionsLeft
	}

	p, ok := s.pool.Get(petitionID)
	if !ok || p.Bucket != pool.Court {
		return nil, domain.NewGameError(
			domain.ErrPetitionNotFound.Code,
			fmt.Sprintf("%s: %d", domain.ErrPetitionNotFound.Message, petitionID),
		)
	}
	if choiceIndex < 0 || choiceIndex >= len(p.Def.Choices) {
		return nil, domain.NewGameError(
			domain.ErrChoiceNotFound.Code,
			fmt.Sprintf("%s: petition %d has no choice %d", domain.ErrChoiceNotFound.Message, petitionID, choiceIndex),
		)
	}
	choice := p.Def.Choices[choiceIndex]

	rep := &Report{Day: s.status.Day}
	affordable, issues := consequence.CanAfford(choice.Consequences, s.status)
	if !affordable {
		for _, err := range issues {
			s.logf("day %d: data issue: %v", s.status.Day, err)
		}
		return nil, domain.NewGameError(
			domain.ErrCannotAfford.Code,
			fmt.Sprintf("%s: %q", domain.ErrCannotAfford.Message, choice.Description),
		)
	}

	if err := s.pool.Resolve(petitionID, choice.Lethal); err != nil {
		return nil, err
	}
	res := s.engine.ResolveChoice(&s.status, choice.Consequences, domain.SourceChoice)
	rep.Deltas = res.Deltas
	s.addIssues(rep, res.Issues)
	s.status.ActionsLeft--
	rep.Resolved = &ResolvedPetition{
		PetitionID:  petitionID,
		Character:   p.Def.Character,
		ChoiceIndex: choiceIndex,
		Choice:      choice.Description,
		Lethal:      choice.Lethal,
	}

	s.check(rep)
	return rep, nil
}

// SetTaxRate changes the rate collected from the next day on.
func (s *Session) SetTaxRate(rate float64) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	if rate < s.rules.MinTax || rate > s.rules.MaxTax {
		return domain.NewGameError(
			domain.ErrTaxOutOfRange.Code,
			fmt.Sprintf("%s: %g not in [%g, %g]", domain.ErrTaxOutOfRange.Message, rate, s.rules.MinTax, s.rules.MaxTax),
		)
	}
	s.status.TaxRate = rate
	return nil
}
