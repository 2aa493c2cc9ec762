// Package realtime carries row-level change notifications from the record
// store to room-scoped subscribers.
package realtime

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Table string

const (
	TableRooms        Table = "rooms"
	TableParticipants Table = "room_participants"
	TableSessions     Table = "focus_sessions"
	TableGoals        Table = "goals"
	TableProfiles     Table = "profiles"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change is one committed write. Old is empty for inserts, New is empty for
// deletes.
type Change struct {
	ID          string          `json:"id"`
	Table       Table           `json:"table"`
	Type        ChangeType      `json:"type"`
	RoomID      string          `json:"roomId,omitempty"`
	Old         json.RawMessage `json:"old,omitempty"`
	New         json.RawMessage `json:"new,omitempty"`
	CommittedAt time.Time       `json:"committedAt"`
	Origin      string          `json:"origin,omitempty"`
}

// NewChange encodes the before and after images of a record. Pass nil for a
// missing image.
func NewChange(table Table, changeType ChangeType, roomID string, oldRecord, newRecord interface{}) (Change, error) {
	change := Change{
		ID:          uuid.NewString(),
		Table:       table,
		Type:        changeType,
		RoomID:      roomID,
		CommittedAt: time.Now().UTC(),
	}
	if oldRecord != nil {
		raw, err := json.Marshal(oldRecord)
		if err != nil {
			return Change{}, fmt.Errorf("encode old %s: %w", table, err)
		}
		change.Old = raw
	}
	if newRecord != nil {
		raw, err := json.Marshal(newRecord)
		if err != nil {
			return Change{}, fmt.Errorf("encode new %s: %w", table, err)
		}
		change.New = raw
	}
	return change, nil
}

func (c Change) DecodeOld(v interface{}) error {
	if len(c.Old) == 0 {
		return fmt.Errorf("%s %s change has no old record", c.Table, c.Type)
	}
	return json.Unmarshal(c.Old, v)
}

func (c Change) DecodeNew(v interface{}) error {
	if len(c.New) == 0 {
		return fmt.Errorf("%s %s change has no new record", c.Table, c.Type)
	}
	return json.Unmarshal(c.New, v)
}

// Filter scopes a subscription. Zero fields match everything.
type Filter struct {
	Table  Table
	RoomID string
}

func (f Filter) Match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.RoomID != "" && f.RoomID != c.RoomID {
		return false
	}
	return true
}

// Publisher accepts committed changes.
type Publisher interface {
	Publish(change Change)
}

// Feed is a publisher that also hands out scoped subscriptions.
type Feed interface {
	Publisher
	Subscribe(filter Filter) *Subscription
}
