package service

import (
	"context"
	"errors"
	"net/http"

	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/pomodoro"
)

// TimerService drives a participant's own timer in a room. Each
// participant's timer is independent of everyone else's.
type TimerService struct {
	rooms   *RoomService
	engines *pomodoro.Manager
}

func NewTimerService(rooms *RoomService, engines *pomodoro.Manager) *TimerService {
	s := &TimerService{rooms: rooms, engines: engines}
	rooms.OnLeave(func(ctx context.Context, userID, roomID string) {
		engines.Teardown(ctx, userID, roomID)
	})
	return s
}

type SelectPhaseInput struct {
	Phase model.Phase `json:"phase" validate:"required,oneof=focus short_break long_break"`
}

func (s *TimerService) engine(ctx context.Context, roomID, userID string) (*pomodoro.Engine, *apperrors.APIError) {
	if apiErr := s.rooms.RequireMember(ctx, roomID, userID); apiErr != nil {
		return nil, apiErr
	}
	engine, err := s.engines.Engine(userID, roomID)
	if err != nil {
		return nil, apperrors.New(http.StatusServiceUnavailable, "timers_unavailable", "timers are shutting down")
	}
	return engine, nil
}

func (s *TimerService) Snapshot(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError) {
	engine, apiErr := s.engine(ctx, roomID, userID)
	if apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	return engine.Snapshot(), nil
}

// Start begins the current phase. A failed session write leaves the timer
// idle and is only logged; the caller sees the unchanged state.
func (s *TimerService) Start(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError) {
	engine, apiErr := s.engine(ctx, roomID, userID)
	if apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	snap, err := engine.Start(ctx)
	switch {
	case errors.Is(err, pomodoro.ErrRunning):
		return snap, apperrors.Conflict("timer_running", "timer is already running", snap)
	case errors.Is(err, pomodoro.ErrClosed):
		return snap, apperrors.Conflict("timer_closed", "timer is no longer available", nil)
	case err != nil:
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("timer start failed")
	}
	return snap, nil
}

func (s *TimerService) Pause(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError) {
	engine, apiErr := s.engine(ctx, roomID, userID)
	if apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	return engine.Pause(ctx), nil
}

func (s *TimerService) Reset(ctx context.Context, roomID, userID string) (pomodoro.Snapshot, *apperrors.APIError) {
	engine, apiErr := s.engine(ctx, roomID, userID)
	if apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	return engine.Reset(ctx), nil
}

func (s *TimerService) SelectPhase(ctx context.Context, roomID, userID string, input SelectPhaseInput) (pomodoro.Snapshot, *apperrors.APIError) {
	if apiErr := validateInput(input); apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	engine, apiErr := s.engine(ctx, roomID, userID)
	if apiErr != nil {
		return pomodoro.Snapshot{}, apiErr
	}
	snap, err := engine.SelectPhase(input.Phase)
	switch {
	case errors.Is(err, pomodoro.ErrRunning):
		return snap, apperrors.Conflict("timer_running", "pause or reset the timer before switching phase", snap)
	case errors.Is(err, pomodoro.ErrInvalidPhase):
		return snap, apperrors.BadRequest("invalid_phase", err.Error())
	case errors.Is(err, pomodoro.ErrClosed):
		return snap, apperrors.Conflict("timer_closed", "timer is no longer available", nil)
	}
	return snap, nil
}
