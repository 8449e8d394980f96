package generation

import (
	"strings"

	"github.com/contentplan-agent/internal/models"
)

// PersonaContextUnavailable is the explicit marker sent to backends when no
// targeting signal exists for a section or persona
const PersonaContextUnavailable = "not available"

// PersonaContext flattens a persona into the structured summary both
// generation paths include in their prompt/payload. Each list section falls
// back to the persona's legacy free-text summary when empty, then to the
// explicit unavailable marker.
func PersonaContext(p *models.Persona) string {
	if p == nil {
		return PersonaContextUnavailable
	}

	var b strings.Builder
	b.WriteString("Audience persona: " + p.Name)
	if p.Demographics != "" {
		b.WriteString("\nDemographics: " + p.Demographics)
	}
	if p.Occupation != "" {
		b.WriteString("\nOccupation: " + p.Occupation)
	}
	if p.AgeRange != "" {
		b.WriteString("\nAge range: " + p.AgeRange)
	}
	b.WriteString("\nPain points: " + listSection(p.Pains, p.PainSummary))
	b.WriteString("\nGoals: " + listSection(p.Goals, p.GoalSummary))
	b.WriteString("\nOpen questions: " + listSection(p.Questions, ""))
	return b.String()
}

func listSection(list []string, legacy string) string {
	cleaned := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) > 0 {
		return strings.Join(cleaned, "; ")
	}
	if legacy != "" {
		return legacy
	}
	return PersonaContextUnavailable
}
