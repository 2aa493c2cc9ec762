package pomodoro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"focusrooms/backend/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// idleTicker never fires; tests drive the engine with Tick.
type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

type memoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*model.FocusSession
	order     []string
	createErr error
	closeErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*model.FocusSession)}
}

func (s *memoryStore) Create(_ context.Context, session *model.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *session
	copied.Status = model.SessionOpen
	s.sessions[session.ID] = &copied
	s.order = append(s.order, session.ID)
	return nil
}

func (s *memoryStore) Close(_ context.Context, id string, closing model.SessionClose) (*model.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return nil, s.closeErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	endedAt := closing.EndedAt
	duration := closing.DurationMinutes
	count := closing.PomodoroCount
	session.EndedAt = &endedAt
	session.DurationMinutes = &duration
	session.PomodoroCount = &count
	session.Status = closing.Status
	return session, nil
}

func (s *memoryStore) last() *model.FocusSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil
	}
	copied := *s.sessions[s.order[len(s.order)-1]]
	return &copied
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func testEngine(store Store, clock *fakeClock, closeAbandoned bool) *Engine {
	return NewEngine("user-1", "room-1", store, Config{
		CloseAbandoned: closeAbandoned,
		Now:            clock.Now,
		NewTicker:      func(time.Duration) Ticker { return idleTicker{} },
	})
}

func tick(e *Engine, clock *fakeClock, n int) {
	for i := 0; i < n; i++ {
		clock.Advance(time.Second)
		e.Tick()
	}
}

// runPhase starts the current phase and ticks it to completion.
func runPhase(t *testing.T, e *Engine, clock *fakeClock) model.Phase {
	t.Helper()
	snap, err := e.Start(context.Background())
	require.NoError(t, err)
	tick(e, clock, snap.RemainingSeconds)
	require.Equal(t, StatusIdle, e.Snapshot().Status)
	return snap.Phase
}

func TestFocusCompletesAfterFullCountdown(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)

	started, err := engine.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, started.Status)
	assert.Equal(t, 1500, started.RemainingSeconds)

	tick(engine, clock, 1499)
	assert.Equal(t, 1, engine.Snapshot().RemainingSeconds)
	assert.True(t, store.last().Open())

	tick(engine, clock, 1)
	snap := engine.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, model.PhaseShortBreak, snap.Phase)
	assert.Equal(t, 300, snap.RemainingSeconds)
	assert.Equal(t, 1, snap.CompletedFocusCount)
	assert.Empty(t, snap.SessionID)

	record := store.last()
	require.NotNil(t, record.EndedAt)
	assert.Equal(t, 25, *record.DurationMinutes)
	assert.Equal(t, 1, *record.PomodoroCount)
	assert.Equal(t, model.SessionCompleted, record.Status)
}

func TestEveryFourthFocusRoutesToLongBreak(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)

	var successors []model.Phase
	for len(successors) < 8 {
		finished := runPhase(t, engine, clock)
		if finished == model.PhaseFocus {
			successors = append(successors, engine.Snapshot().Phase)
		}
	}

	assert.Equal(t, []model.Phase{
		model.PhaseShortBreak, model.PhaseShortBreak, model.PhaseShortBreak, model.PhaseLongBreak,
		model.PhaseShortBreak, model.PhaseShortBreak, model.PhaseShortBreak, model.PhaseLongBreak,
	}, successors)
}

func TestBreakCompletionEarnsNoPomodoro(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)

	_, err := engine.SelectPhase(model.PhaseShortBreak)
	require.NoError(t, err)
	runPhase(t, engine, clock)

	record := store.last()
	assert.Equal(t, 5, *record.DurationMinutes)
	assert.Equal(t, 0, *record.PomodoroCount)
	assert.Equal(t, model.PhaseFocus, engine.Snapshot().Phase)
	assert.Zero(t, engine.Snapshot().CompletedFocusCount)
}

func TestPauseAndResetDoNotCount(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)
	ctx := context.Background()

	_, err := engine.Start(ctx)
	require.NoError(t, err)
	tick(engine, clock, 100)
	paused := engine.Pause(ctx)
	assert.Equal(t, 1400, paused.RemainingSeconds)

	_, err = engine.Start(ctx)
	require.NoError(t, err)
	tick(engine, clock, 10)
	reset := engine.Reset(ctx)
	assert.Equal(t, 1500, reset.RemainingSeconds)
	assert.Zero(t, reset.CompletedFocusCount)

	_, err = engine.SelectPhase(model.PhaseLongBreak)
	require.NoError(t, err)
	_, err = engine.SelectPhase(model.PhaseFocus)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		runPhase(t, engine, clock)
		assert.Equal(t, model.PhaseShortBreak, engine.Snapshot().Phase)
		_, err = engine.SelectPhase(model.PhaseFocus)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, engine.Snapshot().CompletedFocusCount)
}

func TestPauseClosesRecordAsAbandoned(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)
	ctx := context.Background()

	_, err := engine.Start(ctx)
	require.NoError(t, err)
	tick(engine, clock, 150)
	engine.Pause(ctx)

	record := store.last()
	require.NotNil(t, record.EndedAt)
	assert.Equal(t, model.SessionAbandoned, record.Status)
	assert.Equal(t, 2, *record.DurationMinutes)
	assert.Equal(t, 0, *record.PomodoroCount)

	resumed, err := engine.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1350, resumed.RemainingSeconds)
	assert.Equal(t, 2, store.count())
}

func TestPauseLeavesRecordOpenWhenPolicyDisabled(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, false)
	ctx := context.Background()

	_, err := engine.Start(ctx)
	require.NoError(t, err)
	tick(engine, clock, 30)
	engine.Reset(ctx)

	assert.True(t, store.last().Open())
	assert.Equal(t, model.SessionOpen, store.last().Status)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, session *model.FocusSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockStore) Close(ctx context.Context, id string, closing model.SessionClose) (*model.FocusSession, error) {
	args := m.Called(ctx, id, closing)
	session, _ := args.Get(0).(*model.FocusSession)
	return session, args.Error(1)
}

func TestStartFailureStaysIdle(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.AnythingOfType("*model.FocusSession")).
		Return(errors.New("insert rejected")).Once()

	engine := testEngine(store, newFakeClock(), true)
	snap, err := engine.Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, 1500, snap.RemainingSeconds)

	engine.Tick()
	assert.Equal(t, 1500, engine.Snapshot().RemainingSeconds)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Close", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteWriteFailureStillTransitions(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)

	_, err := engine.Start(context.Background())
	require.NoError(t, err)
	store.closeErr = errors.New("update rejected")
	tick(engine, clock, 1500)

	snap := engine.Snapshot()
	assert.Equal(t, model.PhaseShortBreak, snap.Phase)
	assert.Equal(t, 1, snap.CompletedFocusCount)
}

func TestSelectPhaseGuards(t *testing.T) {
	engine := testEngine(newMemoryStore(), newFakeClock(), true)

	_, err := engine.SelectPhase(model.Phase("nap"))
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = engine.Start(context.Background())
	require.NoError(t, err)
	_, err = engine.SelectPhase(model.PhaseShortBreak)
	assert.ErrorIs(t, err, ErrRunning)

	_, err = engine.Start(context.Background())
	assert.ErrorIs(t, err, ErrRunning)
}

func TestCloseStopsEverything(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	engine := testEngine(store, clock, true)
	ctx := context.Background()

	_, err := engine.Start(ctx)
	require.NoError(t, err)
	tick(engine, clock, 61)
	engine.Close(ctx)
	engine.Close(ctx)

	assert.Equal(t, model.SessionAbandoned, store.last().Status)
	before := engine.Snapshot()
	engine.Tick()
	assert.Equal(t, before, engine.Snapshot())

	_, err = engine.Start(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = engine.SelectPhase(model.PhaseShortBreak)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCountdownTaskStopsOnPause(t *testing.T) {
	store := newMemoryStore()
	engine := NewEngine("user-1", "room-1", store, Config{Interval: 2 * time.Millisecond, CloseAbandoned: true})
	ctx := context.Background()

	_, err := engine.Start(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return engine.Snapshot().RemainingSeconds < 1495
	}, time.Second, 2*time.Millisecond)

	paused := engine.Pause(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused.RemainingSeconds, engine.Snapshot().RemainingSeconds)

	_, err = engine.Start(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return engine.Snapshot().RemainingSeconds < paused.RemainingSeconds
	}, time.Second, 2*time.Millisecond)
	engine.Close(ctx)
}
