package models

// Tone selects the writing voice for generated content
type Tone string

const (
	ToneProfessional  Tone = "professional"
	ToneWitty         Tone = "witty"
	ToneInspirational Tone = "inspirational"
	ToneEducational   Tone = "educational"
)

// Valid reports whether the tone is one of the known values
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneWitty, ToneInspirational, ToneEducational:
		return true
	}
	return false
}

// GenerationRequest describes one content-generation run
type GenerationRequest struct {
	Topic      string `json:"topic"`
	Audience   string `json:"audience"`
	Tone       Tone   `json:"tone"`
	PersonaID  string `json:"persona_id,omitempty"`
	Language   string `json:"language,omitempty"`
	BrandVoice string `json:"brand_voice,omitempty"`
	// WebhookURL selects the external generation path when non-blank
	WebhookURL string `json:"-"`
}
