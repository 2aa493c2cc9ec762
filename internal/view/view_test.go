package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

type fakeSource struct {
	mu           sync.Mutex
	goals        []model.Goal
	participants []model.RoomParticipant
	open         []model.FocusSession
	names        map[string]string
	goalsErr     error
}

func (s *fakeSource) DisplayName(_ context.Context, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.names[userID]; ok {
		return name
	}
	return model.AnonymousDisplayName
}

func (s *fakeSource) ListGoals(context.Context, string) ([]model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goalsErr != nil {
		return nil, s.goalsErr
	}
	return append([]model.Goal(nil), s.goals...), nil
}

func (s *fakeSource) ListActiveParticipants(context.Context, string) ([]model.RoomParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoomParticipant(nil), s.participants...), nil
}

func (s *fakeSource) ListOpenSessions(context.Context, string) ([]model.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FocusSession(nil), s.open...), nil
}

func (s *fakeSource) LookupProfiles(_ context.Context, ids []string) (map[string]*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make(map[string]*model.Profile)
	for _, id := range ids {
		if name, ok := s.names[id]; ok {
			n := name
			profiles[id] = &model.Profile{ID: id, FullName: &n}
		}
	}
	return profiles, nil
}

func change(t *testing.T, table realtime.Table, changeType realtime.ChangeType, oldRecord, newRecord interface{}) realtime.Change {
	t.Helper()
	c, err := realtime.NewChange(table, changeType, "room-1", oldRecord, newRecord)
	require.NoError(t, err)
	return c
}

func nextFrame(t *testing.T, v *RoomView, want FrameType) Frame {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case frame := <-v.Frames():
			if frame.Type == want {
				return frame
			}
		case <-deadline:
			t.Fatalf("no %s frame", want)
		}
	}
}

func TestGoalBoardPartitions(t *testing.T) {
	goals := []model.Goal{
		{ID: "g3", Title: "newest"},
		{ID: "g2", Title: "done", IsCompleted: true},
		{ID: "g1", Title: "oldest"},
	}

	collapsed := NewGoalBoard(goals, false)
	require.Len(t, collapsed.Active, 2)
	assert.Equal(t, "g3", collapsed.Active[0].ID)
	assert.Nil(t, collapsed.Completed)
	assert.Equal(t, 1, collapsed.CompletedCount)

	expanded := NewGoalBoard(goals, true)
	require.Len(t, expanded.Completed, 1)
	assert.Equal(t, "g2", expanded.Completed[0].ID)
}

func TestPresenceMarksActivePhase(t *testing.T) {
	now := time.Now()
	ada := "Ada"
	participants := []model.RoomParticipant{
		{UserID: "u1", IsActive: true, JoinedAt: now},
		{UserID: "u2", IsActive: true, JoinedAt: now},
		{UserID: "u3", IsActive: false, JoinedAt: now},
	}
	open := []model.FocusSession{
		{UserID: "u1", SessionType: model.PhaseShortBreak, StartedAt: now.Add(-time.Hour)},
		{UserID: "u1", SessionType: model.PhaseFocus, StartedAt: now},
	}

	presence := BuildPresence(participants, map[string]*model.Profile{"u1": {ID: "u1", FullName: &ada}}, ActiveSessionMap(open))
	require.Equal(t, 2, presence.Count)
	assert.Equal(t, "Ada", presence.Participants[0].Name)
	require.NotNil(t, presence.Participants[0].ActivePhase)
	assert.Equal(t, model.PhaseFocus, *presence.Participants[0].ActivePhase)
	assert.Equal(t, "Someone", presence.Participants[1].Name)
	assert.Nil(t, presence.Participants[1].ActivePhase)
}

func TestActivityLogInterpretsChanges(t *testing.T) {
	source := &fakeSource{names: map[string]string{"u1": "Ada"}}
	log := NewActivityLog(source, nil)
	ctx := context.Background()
	ended := time.Now()
	minutes := 25

	openSession := model.FocusSession{ID: "s1", UserID: "u1", SessionType: model.PhaseFocus, StartedAt: ended.Add(-25 * time.Minute)}
	closedSession := openSession
	closedSession.EndedAt = &ended
	closedSession.DurationMinutes = &minutes
	closedSession.Status = model.SessionCompleted

	activity, ok := log.Apply(ctx, change(t, realtime.TableSessions, realtime.Insert, nil, openSession))
	require.True(t, ok)
	assert.Equal(t, model.ActivitySessionStart, activity.Type)
	assert.Equal(t, "Ada", activity.UserName)
	assert.Equal(t, "started a focus session", activity.Message)

	activity, ok = log.Apply(ctx, change(t, realtime.TableSessions, realtime.Update, openSession, closedSession))
	require.True(t, ok)
	assert.Equal(t, "completed a 25-minute session", activity.Message)

	_, ok = log.Apply(ctx, change(t, realtime.TableSessions, realtime.Update, closedSession, closedSession))
	assert.False(t, ok, "already closed session is not reported again")

	goal := model.Goal{ID: "g1", UserID: "u2", Title: "Ship it"}
	done := goal
	done.IsCompleted = true
	activity, ok = log.Apply(ctx, change(t, realtime.TableGoals, realtime.Update, goal, done))
	require.True(t, ok)
	assert.Equal(t, "completed goal: Ship it", activity.Message)
	assert.Equal(t, "Someone", activity.UserName)

	_, ok = log.Apply(ctx, change(t, realtime.TableGoals, realtime.Update, done, goal))
	assert.False(t, ok)
	_, ok = log.Apply(ctx, change(t, realtime.TableGoals, realtime.Insert, nil, goal))
	assert.False(t, ok)

	present := model.RoomParticipant{UserID: "u1", IsActive: true}
	gone := model.RoomParticipant{UserID: "u1", IsActive: false}
	activity, ok = log.Apply(ctx, change(t, realtime.TableParticipants, realtime.Insert, nil, present))
	require.True(t, ok)
	assert.Equal(t, model.ActivityJoin, activity.Type)
	activity, ok = log.Apply(ctx, change(t, realtime.TableParticipants, realtime.Update, present, gone))
	require.True(t, ok)
	assert.Equal(t, model.ActivityLeave, activity.Type)

	entries := log.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, model.ActivityLeave, entries[0].Type)
	assert.Equal(t, model.ActivitySessionStart, entries[4].Type)
}

func TestActivityLogKeepsNewestTwenty(t *testing.T) {
	log := NewActivityLog(&fakeSource{}, nil)
	for i := 0; i < 25; i++ {
		_, ok := log.Apply(context.Background(), change(t, realtime.TableParticipants, realtime.Insert, nil,
			model.RoomParticipant{UserID: string(rune('a' + i)), IsActive: true}))
		require.True(t, ok)
	}
	entries := log.Entries()
	require.Len(t, entries, ActivityLimit)
	assert.Equal(t, string(rune('a'+24)), entries[0].UserID)
	assert.Equal(t, string(rune('a'+5)), entries[ActivityLimit-1].UserID)
}

func TestRoomViewReconcilesOnChanges(t *testing.T) {
	hub := realtime.NewHub(16)
	defer hub.Close()
	now := time.Now()
	source := &fakeSource{
		names:        map[string]string{"u1": "Ada", "u2": "Grace"},
		participants: []model.RoomParticipant{{UserID: "u1", IsActive: true, JoinedAt: now}},
		goals:        []model.Goal{{ID: "g1", RoomID: "room-1", UserID: "u1", Title: "Plan"}},
	}

	v := Mount(context.Background(), "room-1", source, hub)
	snapshot := v.Snapshot()
	assert.Equal(t, FrameSnapshot, snapshot.Type)
	require.Len(t, snapshot.Goals.Active, 1)
	assert.Equal(t, 1, snapshot.Presence.Count)
	assert.Empty(t, snapshot.Activity)

	newGoal := model.Goal{ID: "g2", RoomID: "room-1", UserID: "u1", Title: "Write"}
	source.mu.Lock()
	source.goals = append([]model.Goal{newGoal}, source.goals...)
	source.mu.Unlock()
	hub.Publish(change(t, realtime.TableGoals, realtime.Insert, nil, newGoal))

	frame := nextFrame(t, v, FrameGoals)
	require.Len(t, frame.Goals.Active, 2)
	assert.Equal(t, "g2", frame.Goals.Active[0].ID)

	joined := model.RoomParticipant{UserID: "u2", RoomID: "room-1", IsActive: true, JoinedAt: now}
	session := model.FocusSession{ID: "s1", UserID: "u1", RoomID: "room-1", SessionType: model.PhaseFocus, StartedAt: now}
	source.mu.Lock()
	source.participants = append(source.participants, joined)
	source.open = []model.FocusSession{session}
	source.mu.Unlock()
	hub.Publish(change(t, realtime.TableSessions, realtime.Insert, nil, session))
	hub.Publish(change(t, realtime.TableParticipants, realtime.Insert, nil, joined))

	require.Eventually(t, func() bool {
		presence := v.Presence()
		if presence.Count != 2 {
			return false
		}
		focused := 0
		for _, entry := range presence.Participants {
			if entry.ActivePhase != nil && *entry.ActivePhase == model.PhaseFocus {
				focused++
			}
		}
		return focused == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return len(v.Activity()) == 2 }, time.Second, 5*time.Millisecond)

	v.Close()
	v.Close()
	assert.Zero(t, hub.Len())
	for range v.Frames() {
	}
}

func TestRoomViewReadFailureShowsEmpty(t *testing.T) {
	hub := realtime.NewHub(4)
	defer hub.Close()
	source := &fakeSource{goalsErr: errors.New("backend unavailable")}

	v := Mount(context.Background(), "room-1", source, hub)
	defer v.Close()

	board := v.GoalBoard()
	assert.Empty(t, board.Active)
	assert.Zero(t, board.CompletedCount)
}

func TestSetShowCompletedAfterCloseIsSafe(t *testing.T) {
	hub := realtime.NewHub(4)
	defer hub.Close()
	v := Mount(context.Background(), "room-1", &fakeSource{}, hub)
	v.Close()
	v.SetShowCompleted(true)
}
