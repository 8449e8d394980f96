// Package scheduler implements the drag-and-drop reassignment reducer over
// the in-memory item collection. Transitions are pure; persistence is
// delegated to the repository after a state-changing drop.
package scheduler

import (
	"regexp"

	"github.com/contentplan-agent/internal/models"
)

// BacklogTarget is the drop-target id of the unscheduled column
const BacklogTarget = "backlog"

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Board is the reducer state: the full item collection plus the currently
// lifted item id ("" when nothing is lifted)
type Board struct {
	Items    []models.Item
	LiftedID string
}

// Change records the transition a drop produced, for persistence
type Change struct {
	ItemID string
	Patch  models.ItemPatch
}

// Lift marks the item as lifted. Pure, no persistence.
func (b Board) Lift(id string) Board {
	b.LiftedID = id
	return b
}

// Drop clears the lifted id and applies the reassignment transition:
//   - backlog target on a scheduled item clears date and time and resets
//     status to Pending
//   - a calendar-day target differing from the item's current date moves the
//     item there, keeping its time or defaulting to 09:00
//   - anything else, including a target equal to the current date, is a no-op
//
// The returned Change is nil for no-ops.
func (b Board) Drop(targetID string) (Board, *Change) {
	liftedID := b.LiftedID
	b.LiftedID = ""

	if liftedID == "" || targetID == "" {
		return b, nil
	}

	idx := -1
	for i := range b.Items {
		if b.Items[i].ID == liftedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return b, nil
	}
	item := b.Items[idx]

	var patch models.ItemPatch
	switch {
	case targetID == BacklogTarget:
		if item.Date == nil {
			return b, nil
		}
		patch = models.ItemPatch{
			Date:    nil,
			DateSet: true,
			Time:    nil,
			TimeSet: true,
			Status:  models.StatusPtr(models.ItemStatusPending),
		}

	case dayPattern.MatchString(targetID):
		if item.Date != nil && *item.Date == targetID {
			return b, nil
		}
		date := targetID
		tod := item.TimeOrDefault()
		patch = models.ItemPatch{
			Date:    &date,
			DateSet: true,
			Time:    &tod,
			TimeSet: true,
		}

	default:
		return b, nil
	}

	items := make([]models.Item, len(b.Items))
	copy(items, b.Items)
	items[idx] = patch.Apply(item)
	b.Items = items

	return b, &Change{ItemID: liftedID, Patch: patch}
}
