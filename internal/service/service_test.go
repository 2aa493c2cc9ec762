package service

import (
	"context"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusrooms/backend/internal/backend"
	"focusrooms/backend/internal/config"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/pomodoro"
)

type services struct {
	client *backend.Client
	auth   *AuthService
	rooms  *RoomService
	goals  *GoalService
	timers *TimerService
	stats  *AnalyticsService
}

func setup(t *testing.T) *services {
	t.Helper()
	_, currentFile, _, _ := runtime.Caller(0)
	client, err := backend.Open(context.Background(), config.Config{
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		MigrationsDir: filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations"),
	})
	require.NoError(t, err)

	engines := pomodoro.NewManager(client.Sessions, pomodoro.Config{CloseAbandoned: true})
	t.Cleanup(func() {
		engines.Close(context.Background())
		_ = client.Close()
	})

	rooms := NewRoomService(client)
	return &services{
		client: client,
		auth:   NewAuthService(client, "test-secret", time.Hour, 24*time.Hour),
		rooms:  rooms,
		goals:  NewGoalService(client, rooms),
		timers: NewTimerService(rooms, engines),
		stats:  NewAnalyticsService(client),
	}
}

func (s *services) register(t *testing.T, email, name string) string {
	t.Helper()
	result, apiErr := s.auth.Register(context.Background(), RegisterInput{Email: email, Password: "secret1", FullName: name})
	require.Nil(t, apiErr)
	return result.User.ID
}

func intPtr(v int) *int { return &v }

func TestRegisterValidation(t *testing.T) {
	s := setup(t)
	_, apiErr := s.auth.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "123"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_failed", apiErr.Code)

	s.register(t, "ada@example.com", "Ada")
	_, apiErr = s.auth.Register(context.Background(), RegisterInput{Email: "ADA@example.com ", Password: "secret1"})
	require.NotNil(t, apiErr)
	assert.Equal(t, "email_exists", apiErr.Code)
}

func TestTokensAreTyped(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	result, apiErr := s.auth.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "secret1"})
	require.Nil(t, apiErr)

	info, apiErr := s.auth.Verify(ctx, result.AccessToken)
	require.Nil(t, apiErr)
	assert.Equal(t, result.User.ID, info.UserID)

	_, apiErr = s.auth.Verify(ctx, result.RefreshToken)
	assert.NotNil(t, apiErr, "refresh token must not authorise data calls")

	refreshed, apiErr := s.auth.Refresh(ctx, result.RefreshToken)
	require.Nil(t, apiErr)
	assert.NotEqual(t, result.AccessToken, refreshed.AccessToken)

	_, apiErr = s.auth.Refresh(ctx, result.AccessToken)
	assert.NotNil(t, apiErr)

	_, apiErr = s.auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestRoomDefaultsAndBounds(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")

	room, apiErr := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "  Deep Work "})
	require.Nil(t, apiErr)
	assert.Equal(t, "Deep Work", room.Name)
	assert.Equal(t, 10, room.MaxParticipants)
	assert.True(t, room.IsPublic)
	assert.Equal(t, 1, room.ParticipantCount)

	_, apiErr = s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Tiny", MaxParticipants: intPtr(1)})
	require.NotNil(t, apiErr)
	assert.Equal(t, "validation_failed", apiErr.Code)
	_, apiErr = s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Huge", MaxParticipants: intPtr(51)})
	require.NotNil(t, apiErr)
	_, apiErr = s.rooms.Create(ctx, ada, CreateRoomInput{Name: " "})
	require.NotNil(t, apiErr)
}

func TestJoinIsIdempotentAndRespectsCapacity(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")
	grace := s.register(t, "grace@example.com", "Grace")
	alan := s.register(t, "alan@example.com", "Alan")

	room, apiErr := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Pair", MaxParticipants: intPtr(2)})
	require.Nil(t, apiErr)

	joined, apiErr := s.rooms.Join(ctx, room.ID, grace)
	require.Nil(t, apiErr)
	assert.False(t, joined.AlreadyJoined)

	again, apiErr := s.rooms.Join(ctx, room.ID, grace)
	require.Nil(t, apiErr)
	assert.True(t, again.AlreadyJoined)
	assert.Equal(t, joined.Participant.ID, again.Participant.ID)

	_, apiErr = s.rooms.Join(ctx, room.ID, alan)
	require.NotNil(t, apiErr)
	assert.Equal(t, "room_full", apiErr.Code)

	left, apiErr := s.rooms.Leave(ctx, room.ID, grace)
	require.Nil(t, apiErr)
	assert.False(t, left.IsActive)
	assert.NotNil(t, left.LeftAt)

	_, apiErr = s.rooms.Join(ctx, room.ID, alan)
	require.Nil(t, apiErr)

	_, apiErr = s.rooms.Join(ctx, "missing", alan)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestGoalOwnershipAndConfirmation(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")
	grace := s.register(t, "grace@example.com", "Grace")
	room, _ := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Deep Work"})
	_, apiErr := s.rooms.Join(ctx, room.ID, grace)
	require.Nil(t, apiErr)

	goal, apiErr := s.goals.Create(ctx, room.ID, ada, CreateGoalInput{Title: "Finish draft"})
	require.Nil(t, apiErr)
	assert.False(t, goal.IsCompleted)

	_, apiErr = s.goals.Create(ctx, room.ID, ada, CreateGoalInput{Title: "   "})
	require.NotNil(t, apiErr)

	_, apiErr = s.goals.Toggle(ctx, goal.ID, grace)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	apiErr = s.goals.Delete(ctx, goal.ID, grace, true)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	stored, err := s.client.Goals.GetByID(ctx, goal.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)

	apiErr = s.goals.Delete(ctx, goal.ID, ada, false)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusPreconditionRequired, apiErr.Status)

	board, apiErr := s.goals.Board(ctx, room.ID, grace, false)
	require.Nil(t, apiErr)
	assert.Len(t, board.Active, 1)

	require.Nil(t, s.goals.Delete(ctx, goal.ID, ada, true))
	board, _ = s.goals.Board(ctx, room.ID, grace, false)
	assert.Empty(t, board.Active)
}

func TestToggleInFlightIsRejected(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")
	room, _ := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Deep Work"})
	goal, _ := s.goals.Create(ctx, room.ID, ada, CreateGoalInput{Title: "Write"})

	require.True(t, s.goals.acquire(goal.ID))
	_, apiErr := s.goals.Toggle(ctx, goal.ID, ada)
	require.NotNil(t, apiErr)
	assert.Equal(t, "toggle_in_flight", apiErr.Code)
	s.goals.release(goal.ID)

	toggled, apiErr := s.goals.Toggle(ctx, goal.ID, ada)
	require.Nil(t, apiErr)
	assert.True(t, toggled.IsCompleted)
}

func TestTimerRequiresMembershipAndLeaveTearsDown(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")
	grace := s.register(t, "grace@example.com", "Grace")
	room, _ := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Deep Work"})

	_, apiErr := s.timers.Start(ctx, room.ID, grace)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	snap, apiErr := s.timers.Start(ctx, room.ID, ada)
	require.Nil(t, apiErr)
	assert.Equal(t, pomodoro.StatusRunning, snap.Status)

	_, apiErr = s.timers.SelectPhase(ctx, room.ID, ada, SelectPhaseInput{Phase: model.PhaseShortBreak})
	require.NotNil(t, apiErr)
	assert.Equal(t, "timer_running", apiErr.Code)

	presence := s.rooms.Presence(ctx, room.ID)
	require.Equal(t, 1, presence.Count)
	require.NotNil(t, presence.Participants[0].ActivePhase)

	_, apiErr = s.rooms.Leave(ctx, room.ID, ada)
	require.Nil(t, apiErr)

	open, err := s.client.Sessions.ListOpenByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestAnalyticsReport(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ada := s.register(t, "ada@example.com", "Ada")
	room, _ := s.rooms.Create(ctx, ada, CreateRoomInput{Name: "Deep Work"})
	for _, title := range []string{"one", "two", "three"} {
		_, apiErr := s.goals.Create(ctx, room.ID, ada, CreateGoalInput{Title: title})
		require.Nil(t, apiErr)
	}
	board, _ := s.goals.Board(ctx, room.ID, ada, false)
	_, apiErr := s.goals.Toggle(ctx, board.Active[0].ID, ada)
	require.Nil(t, apiErr)

	report, apiErr := s.stats.Report(ctx, ada, "")
	require.Nil(t, apiErr)
	assert.Equal(t, 33, report.GoalsProgress.CompletionRate)
	assert.Equal(t, 1, report.Overview.CompletedGoals)
	assert.Empty(t, report.SessionsChart)

	_, apiErr = s.stats.Report(ctx, ada, "Mars/Olympus")
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_timezone", apiErr.Code)
}
