package entities

import (
	"fmt"
	"time"
)

// Action identifies the kind of change a history entry records.
type Action string

const (
	ActionCreate    Action = "create"
	ActionDelete    Action = "delete"
	ActionEdit      Action = "edit"
	ActionDuplicate Action = "duplicate"
	// ActionNote marks a free-text informational entry. It cannot be rolled back.
	ActionNote Action = "note"
)

// IsReversible reports whether entries with this action can be rolled back.
func (a Action) IsReversible() bool {
	switch a {
	case ActionCreate, ActionDelete, ActionEdit, ActionDuplicate:
		return true
	default:
		return false
	}
}

// HistoryEntry is one record of the modification history.
//
// Snapshot holds the state needed to reverse the action: the state before the
// change for delete and edit, the state of the new relation for create and
// duplicate. It is empty for notes.
type HistoryEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Action    Action           `json:"action"`
	Snapshot  RelationSnapshot `json:"snapshot"`
	Note      string           `json:"note,omitempty"`
}

// TimestampLayout is the layout used to render history timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Description returns a human-readable summary of the entry.
func (e HistoryEntry) Description() string {
	switch e.Action {
	case ActionCreate:
		return fmt.Sprintf("Created relationship: %s", e.Snapshot.Name)
	case ActionDelete:
		return fmt.Sprintf("Deleted relationship: %s", e.Snapshot.ID)
	case ActionEdit:
		return fmt.Sprintf("Edited relationship: %s", e.Snapshot.ID)
	case ActionDuplicate:
		return fmt.Sprintf("Duplicated relationship: %s", e.Snapshot.Name)
	default:
		return e.Note
	}
}

// String renders the entry as "timestamp: description".
func (e HistoryEntry) String() string {
	return fmt.Sprintf("%s: %s", e.Timestamp.Format(TimestampLayout), e.Description())
}
