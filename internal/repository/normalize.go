package repository

import (
	"encoding/json"
	"strings"

	"github.com/contentplan-agent/internal/models"
)

// DefaultPlatform is assumed when a record carries no usable platform value
const DefaultPlatform = "General"

// remoteItem mirrors the loosely-structured record shapes the persistence
// service returns. Platforms may be an array, a JSON-encoded array string, a
// comma-separated string or a bare string; scheduling may arrive combined in
// scheduled_at or pre-split in date/time.
type remoteItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Hook        string          `json:"hook"`
	Caption     string          `json:"caption"`
	CTA         string          `json:"cta"`
	Hashtags    string          `json:"hashtags"`
	Platforms   json.RawMessage `json:"target_platforms"`
	ScheduledAt string          `json:"scheduled_at"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	Status      string          `json:"status"`
	PersonaID   string          `json:"persona_id"`
	TeamID      string          `json:"team_id"`
}

// remotePersona mirrors the persona record shape; the three list fields
// tolerate the same loose encodings as platforms
type remotePersona struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Demographics string          `json:"demographics"`
	Occupation   string          `json:"occupation"`
	AgeRange     string          `json:"age_range"`
	PainSummary  string          `json:"pain_summary"`
	GoalSummary  string          `json:"goal_summary"`
	Pains        json.RawMessage `json:"pains"`
	Goals        json.RawMessage `json:"goals"`
	Questions    json.RawMessage `json:"questions"`
	UserID       string          `json:"user_id"`
	TeamID       string          `json:"team_id"`
}

// NormalizeStringList decodes a loosely-typed list field through an explicit
// fallback chain: JSON array, JSON-encoded array string, comma-separated
// string, bare string. Absent or unusable input yields fallback.
func NormalizeStringList(raw json.RawMessage, fallback []string) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	// Native JSON array
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list, fallback)
	}

	// String forms
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	// JSON array encoded inside the string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return cleanList(list, fallback)
		}
	}

	// Comma-separated or bare value
	return cleanList(strings.Split(s, ","), fallback)
}

func cleanList(list []string, fallback []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// normalizePlatforms applies the list fallback chain with the platform
// default, so every item ends up with at least one platform label
func normalizePlatforms(raw json.RawMessage) []string {
	return NormalizeStringList(raw, []string{DefaultPlatform})
}

// splitDateTime splits a combined date-time value into date and time
// components. The value is truncated to its first 19 characters before any
// timezone suffix: the wall-clock value is preserved verbatim, timezone
// information is deliberately discarded rather than converted.
func splitDateTime(combined string) (date, tod string, ok bool) {
	combined = strings.TrimSpace(combined)
	if len(combined) > 19 {
		combined = combined[:19]
	}
	if len(combined) < 16 {
		return "", "", false
	}
	return combined[:10], combined[11:16], true
}

// normalizeItem converts one remote record into the internal schema
func normalizeItem(r remoteItem) models.Item {
	item := models.Item{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Hook:        r.Hook,
		Caption:     r.Caption,
		CTA:         r.CTA,
		Hashtags:    r.Hashtags,
		Platforms:   normalizePlatforms(r.Platforms),
		Status:      normalizeStatus(r.Status),
		PersonaID:   r.PersonaID,
		TeamID:      r.TeamID,
	}

	if r.ScheduledAt != "" {
		if date, tod, ok := splitDateTime(r.ScheduledAt); ok {
			item.Date = &date
			item.Time = &tod
		}
	} else if r.Date != "" {
		date := r.Date
		item.Date = &date
		if t := strings.TrimSpace(r.Time); t != "" {
			if len(t) > 5 {
				t = t[:5]
			}
			item.Time = &t
		}
	}

	return item
}

func normalizeStatus(s string) models.ItemStatus {
	switch models.ItemStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.ItemStatusInProgress:
		return models.ItemStatusInProgress
	case models.ItemStatusBlocked:
		return models.ItemStatusBlocked
	case models.ItemStatusCompleted:
		return models.ItemStatusCompleted
	case models.ItemStatusPosted:
		return models.ItemStatusPosted
	default:
		return models.ItemStatusPending
	}
}

// normalizePersona converts one remote persona record, guaranteeing the
// three list fields are non-nil sequences
func normalizePersona(r remotePersona) models.Persona {
	persona := models.Persona{
		ID:           r.ID,
		Name:         r.Name,
		Demographics: r.Demographics,
		Occupation:   r.Occupation,
		AgeRange:     r.AgeRange,
		PainSummary:  r.PainSummary,
		GoalSummary:  r.GoalSummary,
		Pains:        NormalizeStringList(r.Pains, []string{}),
		Goals:        NormalizeStringList(r.Goals, []string{}),
		Questions:    NormalizeStringList(r.Questions, []string{}),
		UserID:       r.UserID,
		TeamID:       r.TeamID,
	}
	return persona
}

// combineDateTime builds the persisted combined field from a date and a
// time-of-day, defaulting the time to 09:00
func combineDateTime(date string, tod *string) string {
	t := models.DefaultTime
	if tod != nil && *tod != "" {
		t = *tod
	}
	return date + "T" + t + ":00"
}
