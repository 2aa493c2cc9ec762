// Package pomodoro runs the per participant, per room phase countdown and
// writes session boundaries to the session store.
package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/metrics"
	"focusrooms/backend/internal/model"
)

var (
	ErrRunning      = errors.New("timer is running")
	ErrInvalidPhase = errors.New("unknown phase")
	ErrClosed       = errors.New("timer is closed")
)

// LongBreakEvery is the number of completed focus phases per long break.
const LongBreakEvery = 4

const writeTimeout = 5 * time.Second

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// Store persists session boundaries.
type Store interface {
	Create(ctx context.Context, session *model.FocusSession) error
	Close(ctx context.Context, id string, closing model.SessionClose) (*model.FocusSession, error)
}

// Ticker is the subset of time.Ticker the engine needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type Config struct {
	// Interval between ticks; one tick is one countdown second.
	Interval time.Duration
	// CloseAbandoned closes the open record when a running phase is paused,
	// reset or torn down instead of leaving it open.
	CloseAbandoned bool
	Now            func() time.Time
	NewTicker      func(time.Duration) Ticker
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewTicker == nil {
		c.NewTicker = NewRealTicker
	}
	return c
}

type Snapshot struct {
	UserID               string      `json:"userId"`
	RoomID               string      `json:"roomId"`
	Phase                model.Phase `json:"phase"`
	Status               Status      `json:"status"`
	RemainingSeconds     int         `json:"remainingSeconds"`
	PhaseDurationSeconds int         `json:"phaseDurationSeconds"`
	SessionID            string      `json:"sessionId,omitempty"`
	StartedAt            *time.Time  `json:"startedAt,omitempty"`
	CompletedFocusCount  int         `json:"completedFocusCount"`
	Progress             float64     `json:"progress"`
}

// Engine is the phase state machine for one participant in one room. All
// events are serialised under mu; at most one countdown task is live.
type Engine struct {
	userID string
	roomID string
	store  Store
	cfg    Config

	mu             sync.Mutex
	phase          model.Phase
	status         Status
	remaining      int
	sessionID      string
	startedAt      time.Time
	completedFocus int
	closed         bool

	generation uint64
	stop       chan struct{}
}

func NewEngine(userID, roomID string, store Store, cfg Config) *Engine {
	return &Engine{
		userID:    userID,
		roomID:    roomID,
		store:     store,
		cfg:       cfg.withDefaults(),
		phase:     model.PhaseFocus,
		status:    StatusIdle,
		remaining: model.PhaseFocus.Seconds(),
	}
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	total := e.phase.Seconds()
	snap := Snapshot{
		UserID:               e.userID,
		RoomID:               e.roomID,
		Phase:                e.phase,
		Status:               e.status,
		RemainingSeconds:     e.remaining,
		PhaseDurationSeconds: total,
		SessionID:            e.sessionID,
		CompletedFocusCount:  e.completedFocus,
		Progress:             float64(total-e.remaining) / float64(total) * 100,
	}
	if e.status == StatusRunning {
		startedAt := e.startedAt
		snap.StartedAt = &startedAt
	}
	return snap
}

// SelectPhase switches phase while idle and restores the full duration. The
// completed focus tally is unaffected.
func (e *Engine) SelectPhase(phase model.Phase) (Snapshot, error) {
	if !phase.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.snapshotLocked(), ErrClosed
	}
	if e.status == StatusRunning {
		return e.snapshotLocked(), ErrRunning
	}
	e.phase = phase
	e.remaining = phase.Seconds()
	e.sessionID = ""
	return e.snapshotLocked(), nil
}

// Start opens a session record and begins the countdown. When the record
// cannot be created the engine stays idle and the error is returned.
func (e *Engine) Start(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.snapshotLocked(), ErrClosed
	}
	if e.status == StatusRunning {
		return e.snapshotLocked(), ErrRunning
	}

	now := e.cfg.Now().UTC()
	session := &model.FocusSession{
		ID:          uuid.NewString(),
		UserID:      e.userID,
		RoomID:      e.roomID,
		SessionType: e.phase,
		StartedAt:   now,
	}
	if err := e.store.Create(ctx, session); err != nil {
		metrics.RecordSessionWriteError("create")
		return e.snapshotLocked(), fmt.Errorf("create session record: %w", err)
	}

	e.status = StatusRunning
	e.sessionID = session.ID
	e.startedAt = now
	e.startTaskLocked()
	metrics.RecordTimerStart(string(e.phase))
	return e.snapshotLocked(), nil
}

// Pause stops the countdown and keeps the remaining time.
func (e *Engine) Pause(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return e.snapshotLocked()
	}
	e.stopTaskLocked()
	e.abandonLocked(ctx)
	e.status = StatusIdle
	return e.snapshotLocked()
}

// Reset stops the countdown and restores the current phase's full duration.
func (e *Engine) Reset(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		e.stopTaskLocked()
		e.abandonLocked(ctx)
	}
	e.status = StatusIdle
	e.remaining = e.phase.Seconds()
	e.sessionID = ""
	return e.snapshotLocked()
}

// Tick advances a running countdown by one second, completing the phase when
// it reaches zero. It is a no-op while idle or after Close.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked()
}

func (e *Engine) tickLocked() {
	if e.closed || e.status != StatusRunning {
		return
	}
	e.remaining--
	if e.remaining <= 0 {
		e.completeLocked()
	}
}

func (e *Engine) completeLocked() {
	e.stopTaskLocked()

	finished := e.phase
	now := e.cfg.Now().UTC()
	closing := model.SessionClose{
		EndedAt:         now,
		DurationMinutes: model.WholeMinutes(e.startedAt, now),
		Status:          model.SessionCompleted,
	}
	if finished == model.PhaseFocus {
		closing.PomodoroCount = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := e.store.Close(ctx, e.sessionID, closing); err != nil {
		metrics.RecordSessionWriteError("complete")
		logging.Warn().Err(err).
			Str("user_id", e.userID).
			Str("room_id", e.roomID).
			Str("session_id", e.sessionID).
			Msg("failed to record completed session")
	}
	metrics.RecordTimerCompletion(string(finished))

	next := model.PhaseFocus
	if finished == model.PhaseFocus {
		e.completedFocus++
		next = model.PhaseShortBreak
		if e.completedFocus%LongBreakEvery == 0 {
			next = model.PhaseLongBreak
		}
	}

	e.phase = next
	e.remaining = next.Seconds()
	e.status = StatusIdle
	e.sessionID = ""
	e.startedAt = time.Time{}
}

// abandonLocked applies the abandon policy to the open record, if any.
func (e *Engine) abandonLocked(ctx context.Context) {
	if e.sessionID == "" {
		return
	}
	sessionID := e.sessionID
	e.sessionID = ""
	if !e.cfg.CloseAbandoned {
		return
	}

	now := e.cfg.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_, err := e.store.Close(ctx, sessionID, model.SessionClose{
		EndedAt:         now,
		DurationMinutes: model.WholeMinutes(e.startedAt, now),
		PomodoroCount:   0,
		Status:          model.SessionAbandoned,
	})
	if err != nil {
		metrics.RecordSessionWriteError("abandon")
		logging.Warn().Err(err).
			Str("user_id", e.userID).
			Str("room_id", e.roomID).
			Str("session_id", sessionID).
			Msg("failed to close abandoned session")
		return
	}
	metrics.RecordSessionAbandoned()
}

// Close tears the engine down. Later events are rejected or ignored.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.status == StatusRunning {
		e.stopTaskLocked()
		e.abandonLocked(ctx)
		e.status = StatusIdle
	}
	e.closed = true
}

func (e *Engine) startTaskLocked() {
	e.stopTaskLocked()
	stop := make(chan struct{})
	e.stop = stop
	gen := e.generation
	ticker := e.cfg.NewTicker(e.cfg.Interval)
	go e.run(gen, stop, ticker)
}

// stopTaskLocked cancels the live task and invalidates any tick it may be
// about to deliver.
func (e *Engine) stopTaskLocked() {
	e.generation++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) run(gen uint64, stop <-chan struct{}, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			e.mu.Lock()
			if e.generation != gen {
				e.mu.Unlock()
				return
			}
			e.tickLocked()
			e.mu.Unlock()
		}
	}
}
