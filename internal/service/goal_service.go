package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusrooms/backend/internal/backend"
	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/repository"
	"focusrooms/backend/internal/view"
)

type GoalService struct {
	client *backend.Client
	rooms  *RoomService

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGoalService(client *backend.Client, rooms *RoomService) *GoalService {
	return &GoalService{
		client:   client,
		rooms:    rooms,
		inFlight: make(map[string]struct{}),
	}
}

type CreateGoalInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// Board lists the room's goals newest first, split into open and completed.
// Any room member may read it; a read failure yields an empty board.
func (s *GoalService) Board(ctx context.Context, roomID, userID string, showCompleted bool) (view.GoalBoard, *apperrors.APIError) {
	if apiErr := s.rooms.RequireMember(ctx, roomID, userID); apiErr != nil {
		return view.GoalBoard{}, apiErr
	}
	goals, err := s.client.ListGoals(ctx, roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("list goals failed")
		goals = nil
	}
	return view.NewGoalBoard(goals, showCompleted), nil
}

func (s *GoalService) Create(ctx context.Context, roomID, userID string, input CreateGoalInput) (*model.Goal, *apperrors.APIError) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		input.Description = &trimmed
		if trimmed == "" {
			input.Description = nil
		}
	}
	if apiErr := validateInput(input); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.rooms.RequireMember(ctx, roomID, userID); apiErr != nil {
		return nil, apiErr
	}

	goal := &model.Goal{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.client.Goals.Create(ctx, goal); err != nil {
		logging.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("create goal failed")
		return nil, apperrors.Internal("failed to create goal")
	}
	return goal, nil
}

// Toggle flips completion for the goal's owner. A toggle arriving while
// another is in flight for the same goal is rejected without effect.
func (s *GoalService) Toggle(ctx context.Context, goalID, userID string) (*model.Goal, *apperrors.APIError) {
	goal, apiErr := s.owned(ctx, goalID, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	if !s.acquire(goalID) {
		return nil, apperrors.Conflict("toggle_in_flight", "goal is already being updated", nil)
	}
	defer s.release(goalID)

	updated, err := s.client.Goals.Toggle(ctx, goal.ID, time.Now())
	if err != nil {
		logging.Error().Err(err).Str("room_id", goal.RoomID).Str("goal_id", goalID).Msg("toggle goal failed")
		return nil, apperrors.Internal("failed to update goal")
	}
	return updated, nil
}

// Delete removes the owner's goal once the caller has confirmed it.
func (s *GoalService) Delete(ctx context.Context, goalID, userID string, confirmed bool) *apperrors.APIError {
	goal, apiErr := s.owned(ctx, goalID, userID)
	if apiErr != nil {
		return apiErr
	}
	if !confirmed {
		return apperrors.ConfirmationRequired("deleting a goal cannot be undone; confirm to proceed")
	}
	if err := s.client.Goals.Delete(ctx, goal.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("goal_not_found", "goal not found")
		}
		logging.Error().Err(err).Str("room_id", goal.RoomID).Str("goal_id", goalID).Msg("delete goal failed")
		return apperrors.Internal("failed to delete goal")
	}
	return nil
}

func (s *GoalService) owned(ctx context.Context, goalID, userID string) (*model.Goal, *apperrors.APIError) {
	goal, err := s.client.Goals.GetByID(ctx, goalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("goal_not_found", "goal not found")
	}
	if err != nil {
		logging.Warn().Err(err).Str("goal_id", goalID).Msg("get goal failed")
		return nil, apperrors.Internal("failed to load goal")
	}
	if goal.UserID != userID {
		return nil, apperrors.Forbidden("only the goal owner can change it")
	}
	return goal, nil
}

func (s *GoalService) acquire(goalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[goalID]; busy {
		return false
	}
	s.inFlight[goalID] = struct{}{}
	return true
}

func (s *GoalService) release(goalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, goalID)
}
