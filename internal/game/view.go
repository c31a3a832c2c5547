package game

import (
	"github.com/rogersf/court-engine/internal/consequence"
	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/pool"
)

// View is the read-only picture of a session handed to presentation code.
type View struct {
	SessionID     string          `json:"session_id"`
	Phase         domain.Phase    `json:"phase"`
	Status        domain.Status   `json:"status"`
	Outcome       *domain.Outcome `json:"outcome,omitempty"`
	Pool          pool.Counts     `json:"pool"`
	UnderCapacity bool            `json:"under_capacity"`
	Court         []PetitionView  `json:"court"`
}

// PetitionView is one court petition as presented to the player.
type PetitionView struct {
	ID          int          `json:"id"`
	Character   string       `json:"character"`
	Description string       `json:"description"`
	DaysWaited  int          `json:"days_waited"`
	Choices     []ChoiceView `json:"choices"`
}

// ChoiceView is one option of a petition.
type ChoiceView struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Affordable  bool   `json:"affordable"`
	Lethal      bool   `json:"lethal,omitempty"`
}

// View snapshots the session.
func (s *Session) View() View {
	v := View{
		SessionID:     s.ID,
		Phase:         s.phase,
		Status:        s.status,
		Outcome:       s.Outcome(),
		Pool:          s.pool.Counts(),
		UnderCapacity: s.lastRefill.UnderCapacity,
		Court:         []PetitionView{},
	}
	for _, p := range s.pool.Court() {
		v.Court = append(v.Court, petitionView(p, s.status))
	}
	return v
}

func petitionView(p pool.Petition, status domain.Status) PetitionView {
	pv := PetitionView{
		ID:          p.ID,
		Character:   p.Def.Character,
		Description: p.Def.Description,
		DaysWaited:  p.DaysWaited,
		Choices:     make([]ChoiceView, len(p.Def.Choices)),
	}
	for i, c := range p.Def.Choices {
		ok, _ := consequence.CanAfford(c.Consequences, status)
		pv.Choices[i] = ChoiceView{
			Index:       i,
			Description: c.Description,
			Affordable:  ok,
			Lethal:      c.Lethal,
		}
	}
	return pv
}
