package models

import (
	"time"
)

// ItemStatus represents the workflow state of a content item
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusBlocked    ItemStatus = "blocked"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusPosted     ItemStatus = "posted"
)

// Layout constants for the split date/time representation. Values are
// stored as wall-clock strings; timezone information is never attached.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultTime is assumed for any scheduled item without an explicit time
	DefaultTime = "09:00"
)

// Item represents one piece of planned content. Date == nil means the item
// sits in the unscheduled backlog regardless of status. The ID is immutable
// after creation.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Hook        string     `json:"hook,omitempty"`
	Caption     string     `json:"caption,omitempty"`
	CTA         string     `json:"cta,omitempty"`
	Hashtags    string     `json:"hashtags,omitempty"`
	Platforms   []string   `json:"platforms"`
	Date        *string    `json:"date"`       // YYYY-MM-DD, nil = backlog
	Time        *string    `json:"time"`       // HH:mm, nil = default 09:00
	Status      ItemStatus `json:"status"`
	PersonaID   string     `json:"persona_id,omitempty"`
	TeamID      string     `json:"team_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// Unscheduled returns true if the item belongs to the backlog
func (i *Item) Unscheduled() bool {
	return i.Date == nil
}

// TimeOrDefault returns the item's time of day, falling back to 09:00
func (i *Item) TimeOrDefault() string {
	if i.Time != nil && *i.Time != "" {
		return *i.Time
	}
	return DefaultTime
}

// DueAt combines the item's date with its time-or-default into a floating
// wall-clock instant interpreted in the local location. Returns false when
// the item is unscheduled or the stored strings do not parse.
func (i *Item) DueAt() (time.Time, bool) {
	if i.Date == nil || *i.Date == "" {
		return time.Time{}, false
	}
	due, err := time.ParseInLocation(DateLayout+" "+TimeLayout, *i.Date+" "+i.TimeOrDefault(), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// Done returns true for statuses that no longer need due reminders
func (i *Item) Done() bool {
	return i.Status == ItemStatusCompleted || i.Status == ItemStatusPosted
}

// ItemPatch carries a partial update for an item. Nil pointer fields are
// untouched. Date and Time can be cleared (moved to backlog), so they carry
// explicit set-flags to distinguish "not provided" from "set to null".
type ItemPatch struct {
	Title       *string
	Description *string
	Hook        *string
	Caption     *string
	CTA         *string
	Hashtags    *string
	Platforms   []string
	Date        *string
	DateSet     bool
	Time        *string
	TimeSet     bool
	Status      *ItemStatus
	PersonaID   *string
}

// Apply shallow-merges the patch into a copy of the item and returns it
func (p ItemPatch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Hook != nil {
		item.Hook = *p.Hook
	}
	if p.Caption != nil {
		item.Caption = *p.Caption
	}
	if p.CTA != nil {
		item.CTA = *p.CTA
	}
	if p.Hashtags != nil {
		item.Hashtags = *p.Hashtags
	}
	if p.Platforms != nil {
		item.Platforms = p.Platforms
	}
	if p.DateSet {
		item.Date = p.Date
	}
	if p.TimeSet {
		item.Time = p.Time
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.PersonaID != nil {
		item.PersonaID = *p.PersonaID
	}
	return item
}

// StringPtr is a convenience helper for building patches
func StringPtr(s string) *string {
	return &s
}

// StatusPtr is a convenience helper for building patches
func StatusPtr(s ItemStatus) *ItemStatus {
	return &s
}
