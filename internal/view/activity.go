package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/metrics"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

// ActivityLimit caps the per-viewer activity log.
const ActivityLimit = 20

// NameResolver looks up a display name; failures resolve to the anonymous
// name.
type NameResolver interface {
	DisplayName(ctx context.Context, userID string) string
}

// ActivityLog turns change events into human readable lines, newest first.
// It never reads history: lines exist only for changes observed while the
// log is alive.
type ActivityLog struct {
	names NameResolver
	now   func() time.Time

	mu      sync.Mutex
	entries []model.Activity
}

func NewActivityLog(names NameResolver, now func() time.Time) *ActivityLog {
	if now == nil {
		now = time.Now
	}
	return &ActivityLog{names: names, now: now}
}

// Apply interprets one change. It reports false when the change is not
// worth a line.
func (l *ActivityLog) Apply(ctx context.Context, change realtime.Change) (model.Activity, bool) {
	activityType, userID, message, ok := describe(change)
	if !ok {
		return model.Activity{}, false
	}

	activity := model.Activity{
		ID:        uuid.NewString(),
		Type:      activityType,
		UserID:    userID,
		UserName:  l.names.DisplayName(ctx, userID),
		Message:   message,
		Timestamp: l.now().UTC(),
	}

	l.mu.Lock()
	entries := make([]model.Activity, 0, ActivityLimit)
	entries = append(entries, activity)
	entries = append(entries, l.entries...)
	if len(entries) > ActivityLimit {
		entries = entries[:ActivityLimit]
	}
	l.entries = entries
	l.mu.Unlock()

	metrics.RecordActivity(string(activityType))
	return activity, true
}

func (l *ActivityLog) Entries() []model.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Activity, len(l.entries))
	copy(out, l.entries)
	return out
}

func describe(change realtime.Change) (model.ActivityType, string, string, bool) {
	switch change.Table {
	case realtime.TableSessions:
		return describeSession(change)
	case realtime.TableGoals:
		return describeGoal(change)
	case realtime.TableParticipants:
		return describeParticipant(change)
	}
	return "", "", "", false
}

func describeSession(change realtime.Change) (model.ActivityType, string, string, bool) {
	var after model.FocusSession
	if err := change.DecodeNew(&after); err != nil {
		return "", "", "", false
	}

	switch change.Type {
	case realtime.Insert:
		message := "started a focus session"
		if after.SessionType != model.PhaseFocus {
			message = "started a " + after.SessionType.Label()
		}
		return model.ActivitySessionStart, after.UserID, message, true
	case realtime.Update:
		var before model.FocusSession
		if err := change.DecodeOld(&before); err != nil {
			logging.Debug().Err(err).Str("room_id", change.RoomID).Msg("session update without old record")
			return "", "", "", false
		}
		if !before.Open() || after.Open() {
			return "", "", "", false
		}
		minutes := 0
		if after.DurationMinutes != nil {
			minutes = *after.DurationMinutes
		}
		message := fmt.Sprintf("completed a %d-minute session", minutes)
		if after.Status == model.SessionAbandoned {
			message = fmt.Sprintf("stopped a session after %d minutes", minutes)
		}
		return model.ActivitySessionEnd, after.UserID, message, true
	}
	return "", "", "", false
}

func describeGoal(change realtime.Change) (model.ActivityType, string, string, bool) {
	if change.Type != realtime.Update {
		return "", "", "", false
	}
	var before, after model.Goal
	if err := change.DecodeOld(&before); err != nil {
		return "", "", "", false
	}
	if err := change.DecodeNew(&after); err != nil {
		return "", "", "", false
	}
	if before.IsCompleted || !after.IsCompleted {
		return "", "", "", false
	}
	return model.ActivityGoalComplete, after.UserID, "completed goal: " + after.Title, true
}

func describeParticipant(change realtime.Change) (model.ActivityType, string, string, bool) {
	var after model.RoomParticipant
	if err := change.DecodeNew(&after); err != nil {
		return "", "", "", false
	}

	switch change.Type {
	case realtime.Insert:
		return model.ActivityJoin, after.UserID, "joined the room", true
	case realtime.Update:
		var before model.RoomParticipant
		if err := change.DecodeOld(&before); err != nil {
			return "", "", "", false
		}
		if !before.IsActive && after.IsActive {
			return model.ActivityJoin, after.UserID, "joined the room", true
		}
		if before.IsActive && !after.IsActive {
			return model.ActivityLeave, after.UserID, "left the room", true
		}
	}
	return "", "", "", false
}
