// Package view keeps room projections consistent with the change feed by
// re-reading on every relevant notification.
package view

import (
	"context"
	"sync"
	"time"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

// Source is the read side a room view reconciles against.
type Source interface {
	NameResolver
	ListGoals(ctx context.Context, roomID string) ([]model.Goal, error)
	ListActiveParticipants(ctx context.Context, roomID string) ([]model.RoomParticipant, error)
	ListOpenSessions(ctx context.Context, roomID string) ([]model.FocusSession, error)
	LookupProfiles(ctx context.Context, userIDs []string) (map[string]*model.Profile, error)
}

type FrameType string

const (
	FrameSnapshot FrameType = "snapshot"
	FrameGoals    FrameType = "goals"
	FramePresence FrameType = "presence"
	FrameActivity FrameType = "activity"
)

type Frame struct {
	Type     FrameType        `json:"type"`
	RoomID   string           `json:"roomId"`
	Goals    *GoalBoard       `json:"goals,omitempty"`
	Presence *Presence        `json:"presence,omitempty"`
	Activity []model.Activity `json:"activity,omitempty"`
}

const readTimeout = 5 * time.Second

// RoomView is one viewer's mounted room: goal board, presence and activity
// log, each fed by its own scoped subscription.
type RoomView struct {
	roomID string
	source Source
	log    *ActivityLog

	ctx    context.Context
	cancel context.CancelFunc
	subs   []*realtime.Subscription
	wg     sync.WaitGroup
	frames chan Frame
	// emitMu keeps emit from racing the close of frames.
	emitMu sync.RWMutex

	mu            sync.Mutex
	goals         []model.Goal
	participants  []model.RoomParticipant
	profiles      map[string]*model.Profile
	activePhases  map[string]model.Phase
	showCompleted bool
	closeOnce     sync.Once
}

// Mount subscribes first and then loads the initial state, so no change
// committed after Mount returns can be missed.
func Mount(ctx context.Context, roomID string, source Source, feed realtime.Feed) *RoomView {
	runCtx, cancel := context.WithCancel(context.Background())
	v := &RoomView{
		roomID: roomID,
		source: source,
		log:    NewActivityLog(source, nil),
		ctx:    runCtx,
		cancel: cancel,
		frames: make(chan Frame, 16),
	}

	goals := feed.Subscribe(realtime.Filter{Table: realtime.TableGoals, RoomID: roomID})
	participants := feed.Subscribe(realtime.Filter{Table: realtime.TableParticipants, RoomID: roomID})
	sessions := feed.Subscribe(realtime.Filter{Table: realtime.TableSessions, RoomID: roomID})
	v.subs = []*realtime.Subscription{goals, participants, sessions}

	v.reloadGoals(ctx)
	v.reloadParticipants(ctx)
	v.reloadSessions(ctx)

	v.consume(goals, func(change realtime.Change) {
		v.reloadGoals(v.ctx)
		v.emitGoals()
		v.record(change)
	})
	v.consume(participants, func(change realtime.Change) {
		v.reloadParticipants(v.ctx)
		v.emitPresence()
		v.record(change)
	})
	v.consume(sessions, func(change realtime.Change) {
		v.reloadSessions(v.ctx)
		v.emitPresence()
		v.record(change)
	})
	return v
}

// Frames delivers updates after the initial snapshot. It is closed by Close.
func (v *RoomView) Frames() <-chan Frame {
	return v.frames
}

func (v *RoomView) Snapshot() Frame {
	board := v.GoalBoard()
	presence := v.Presence()
	return Frame{
		Type:     FrameSnapshot,
		RoomID:   v.roomID,
		Goals:    &board,
		Presence: &presence,
		Activity: v.log.Entries(),
	}
}

func (v *RoomView) GoalBoard() GoalBoard {
	v.mu.Lock()
	defer v.mu.Unlock()
	return NewGoalBoard(v.goals, v.showCompleted)
}

func (v *RoomView) Presence() Presence {
	v.mu.Lock()
	defer v.mu.Unlock()
	return BuildPresence(v.participants, v.profiles, v.activePhases)
}

func (v *RoomView) Activity() []model.Activity {
	return v.log.Entries()
}

// SetShowCompleted expands or collapses the completed goals section.
func (v *RoomView) SetShowCompleted(show bool) {
	v.mu.Lock()
	v.showCompleted = show
	v.mu.Unlock()
	v.emitGoals()
}

// Close releases every subscription and waits for in-progress reactions.
func (v *RoomView) Close() {
	v.closeOnce.Do(func() {
		v.cancel()
		for _, sub := range v.subs {
			sub.Cancel()
		}
		v.wg.Wait()
		v.emitMu.Lock()
		close(v.frames)
		v.emitMu.Unlock()
	})
}

func (v *RoomView) consume(sub *realtime.Subscription, react func(realtime.Change)) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		for change := range sub.C {
			if v.ctx.Err() != nil {
				return
			}
			react(change)
		}
	}()
}

func (v *RoomView) reloadGoals(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	goals, err := v.source.ListGoals(ctx, v.roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", v.roomID).Str("table", string(realtime.TableGoals)).Msg("goal reload failed")
		goals = nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx.Err() == nil {
		v.goals = goals
	}
}

func (v *RoomView) reloadParticipants(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	participants, err := v.source.ListActiveParticipants(ctx, v.roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", v.roomID).Str("table", string(realtime.TableParticipants)).Msg("presence reload failed")
		participants = nil
	}
	profiles, err := v.source.LookupProfiles(ctx, participantIDs(participants))
	if err != nil {
		logging.Warn().Err(err).Str("room_id", v.roomID).Str("table", string(realtime.TableProfiles)).Msg("profile lookup failed")
		profiles = nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx.Err() == nil {
		v.participants = participants
		v.profiles = profiles
	}
}

func (v *RoomView) reloadSessions(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	open, err := v.source.ListOpenSessions(ctx, v.roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", v.roomID).Str("table", string(realtime.TableSessions)).Msg("active session reload failed")
		open = nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx.Err() == nil {
		v.activePhases = ActiveSessionMap(open)
	}
}

func (v *RoomView) record(change realtime.Change) {
	if _, ok := v.log.Apply(v.ctx, change); ok {
		v.emit(Frame{Type: FrameActivity, RoomID: v.roomID, Activity: v.log.Entries()})
	}
}

func (v *RoomView) emitGoals() {
	board := v.GoalBoard()
	v.emit(Frame{Type: FrameGoals, RoomID: v.roomID, Goals: &board})
}

func (v *RoomView) emitPresence() {
	presence := v.Presence()
	v.emit(Frame{Type: FramePresence, RoomID: v.roomID, Presence: &presence})
}

func (v *RoomView) emit(frame Frame) {
	v.emitMu.RLock()
	defer v.emitMu.RUnlock()
	if v.ctx.Err() != nil {
		return
	}
	select {
	case v.frames <- frame:
	case <-v.ctx.Done():
	}
}
