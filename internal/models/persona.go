package models

import "time"

// Persona is a targeting profile used to bias content generation
type Persona struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Demographics string    `json:"demographics,omitempty"`
	Occupation   string    `json:"occupation,omitempty"`
	AgeRange     string    `json:"age_range,omitempty"`
	PainSummary  string    `json:"pain_summary,omitempty"`
	GoalSummary  string    `json:"goal_summary,omitempty"`
	Pains        []string  `json:"pains"`
	Goals        []string  `json:"goals"`
	Questions    []string  `json:"questions"`
	UserID       string    `json:"user_id,omitempty"`
	TeamID       string    `json:"team_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// EnsureLists guarantees the list fields are non-nil sequences. Remote
// records may omit them entirely; consumers always see a (possibly empty)
// slice.
func (p *Persona) EnsureLists() {
	if p.Pains == nil {
		p.Pains = []string{}
	}
	if p.Goals == nil {
		p.Goals = []string{}
	}
	if p.Questions == nil {
		p.Questions = []string{}
	}
}

// IsEmpty reports whether the persona carries no targeting signal at all.
// An empty persona gates a confirmation prompt before generation.
func (p *Persona) IsEmpty() bool {
	return p.Occupation == "" && p.PainSummary == "" && p.GoalSummary == "" && p.AgeRange == ""
}

// PersonaPatch carries a partial update for a persona
type PersonaPatch struct {
	Name         *string
	Demographics *string
	Occupation   *string
	AgeRange     *string
	PainSummary  *string
	GoalSummary  *string
	Pains        []string
	Goals        []string
	Questions    []string
}

// Apply shallow-merges the patch into a copy of the persona and returns it
func (p PersonaPatch) Apply(persona Persona) Persona {
	if p.Name != nil {
		persona.Name = *p.Name
	}
	if p.Demographics != nil {
		persona.Demographics = *p.Demographics
	}
	if p.Occupation != nil {
		persona.Occupation = *p.Occupation
	}
	if p.AgeRange != nil {
		persona.AgeRange = *p.AgeRange
	}
	if p.PainSummary != nil {
		persona.PainSummary = *p.PainSummary
	}
	if p.GoalSummary != nil {
		persona.GoalSummary = *p.GoalSummary
	}
	if p.Pains != nil {
		persona.Pains = p.Pains
	}
	if p.Goals != nil {
		persona.Goals = p.Goals
	}
	if p.Questions != nil {
		persona.Questions = p.Questions
	}
	return persona
}
