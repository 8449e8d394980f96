package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan-agent/internal/models"
)

func TestNormalizePlatforms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "bare string",
			raw:  `"Instagram"`,
			want: []string{"Instagram"},
		},
		{
			name: "native array",
			raw:  `["Instagram","TikTok"]`,
			want: []string{"Instagram", "TikTok"},
		},
		{
			name: "JSON-encoded array string",
			raw:  `"[\"Instagram\",\"TikTok\"]"`,
			want: []string{"Instagram", "TikTok"},
		},
		{
			name: "comma-separated string",
			raw:  `"Instagram, TikTok"`,
			want: []string{"Instagram", "TikTok"},
		},
		{
			name: "absent",
			raw:  ``,
			want: []string{"General"},
		},
		{
			name: "null",
			raw:  `null`,
			want: []string{"General"},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []string{"General"},
		},
		{
			name: "blank string",
			raw:  `"  "`,
			want: []string{"General"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePlatforms(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitDateTime(t *testing.T) {
	tests := []struct {
		name     string
		combined string
		wantDate string
		wantTime string
		wantOK   bool
	}{
		{
			name:     "with timezone offset discarded",
			combined: "2025-03-10T14:30:00+02:00",
			wantDate: "2025-03-10",
			wantTime: "14:30",
			wantOK:   true,
		},
		{
			name:     "with zulu suffix discarded",
			combined: "2025-03-10T09:00:00Z",
			wantDate: "2025-03-10",
			wantTime: "09:00",
			wantOK:   true,
		},
		{
			name:     "plain combined value",
			combined: "2025-03-10T09:00:00",
			wantDate: "2025-03-10",
			wantTime: "09:00",
			wantOK:   true,
		},
		{
			name:     "too short",
			combined: "2025-03-10",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, tod, ok := splitDateTime(tt.combined)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantDate, date)
				assert.Equal(t, tt.wantTime, tod)
			}
		})
	}
}

func TestNormalizeItemCombinedDateTime(t *testing.T) {
	item := normalizeItem(remoteItem{
		ID:          "it-1",
		Title:       "Launch teaser",
		Platforms:   json.RawMessage(`"Instagram"`),
		ScheduledAt: "2025-03-10T14:30:00-05:00",
		Status:      "in_progress",
	})

	require.NotNil(t, item.Date)
	require.NotNil(t, item.Time)
	assert.Equal(t, "2025-03-10", *item.Date)
	assert.Equal(t, "14:30", *item.Time)
	assert.Equal(t, models.ItemStatusInProgress, item.Status)
	assert.Equal(t, []string{"Instagram"}, item.Platforms)
}

func TestNormalizeItemSplitFields(t *testing.T) {
	item := normalizeItem(remoteItem{
		ID:     "it-2",
		Date:   "2025-04-01",
		Time:   "08:15:00",
		Status: "nonsense",
	})

	require.NotNil(t, item.Date)
	require.NotNil(t, item.Time)
	assert.Equal(t, "2025-04-01", *item.Date)
	assert.Equal(t, "08:15", *item.Time, "seconds are truncated from the time component")
	assert.Equal(t, models.ItemStatusPending, item.Status, "unknown status defaults to pending")
	assert.Equal(t, []string{"General"}, item.Platforms)
}

func TestNormalizeItemUnscheduled(t *testing.T) {
	item := normalizeItem(remoteItem{ID: "it-3", Title: "Backlog idea"})
	assert.Nil(t, item.Date)
	assert.Nil(t, item.Time)
	assert.True(t, item.Unscheduled())
}

func TestNormalizePersonaLists(t *testing.T) {
	persona := normalizePersona(remotePersona{
		ID:    "p-1",
		Name:  "Indie maker",
		Pains: json.RawMessage(`"no time, no budget"`),
		Goals: json.RawMessage(`["grow audience"]`),
	})

	assert.Equal(t, []string{"no time", "no budget"}, persona.Pains)
	assert.Equal(t, []string{"grow audience"}, persona.Goals)
	require.NotNil(t, persona.Questions, "list fields are always present as sequences")
	assert.Empty(t, persona.Questions)
}

func TestCombineDateTime(t *testing.T) {
	tod := "14:30"
	assert.Equal(t, "2025-03-10T14:30:00", combineDateTime("2025-03-10", &tod))
	assert.Equal(t, "2025-03-10T09:00:00", combineDateTime("2025-03-10", nil))
}
