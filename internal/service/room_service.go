package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"focusrooms/backend/internal/backend"
	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/repository"
	"focusrooms/backend/internal/view"
)

// RoomLeaveHook runs after a participant leaves a room.
type RoomLeaveHook func(ctx context.Context, userID, roomID string)

type RoomService struct {
	client  *backend.Client
	onLeave []RoomLeaveHook
}

func NewRoomService(client *backend.Client) *RoomService {
	return &RoomService{client: client}
}

// OnLeave registers a hook run after every successful leave.
func (s *RoomService) OnLeave(hook RoomLeaveHook) {
	s.onLeave = append(s.onLeave, hook)
}

type CreateRoomInput struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Description     *string `json:"description" validate:"omitempty,max=500"`
	MaxParticipants *int    `json:"maxParticipants" validate:"omitempty,min=2,max=50"`
	IsPublic        *bool   `json:"isPublic"`
}

type JoinResult struct {
	Participant   *model.RoomParticipant `json:"participant"`
	AlreadyJoined bool                   `json:"alreadyJoined"`
}

// Create makes the room and enrolls the creator in the same write.
func (s *RoomService) Create(ctx context.Context, userID string, input CreateRoomInput) (*model.Room, *apperrors.APIError) {
	input.Name = strings.TrimSpace(input.Name)
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

	now := time.Now().UTC()
	room := &model.Room{
		ID:              uuid.NewString(),
		Name:            input.Name,
		Description:     input.Description,
		CreatorID:       userID,
		MaxParticipants: model.DefaultRoomParticipants,
		IsPublic:        true,
		CreatedAt:       now,
	}
	if input.MaxParticipants != nil {
		room.MaxParticipants = *input.MaxParticipants
	}
	if input.IsPublic != nil {
		room.IsPublic = *input.IsPublic
	}
	creator := &model.RoomParticipant{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		UserID:   userID,
		IsActive: true,
		JoinedAt: now,
	}

	if err := s.client.Rooms.CreateWithCreator(ctx, room, creator); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("create room failed")
		return nil, apperrors.Internal("failed to create room")
	}
	room.ParticipantCount = 1
	return room, nil
}

// List returns public rooms, newest first. A read failure yields an empty
// list.
func (s *RoomService) List(ctx context.Context) []model.Room {
	rooms, err := s.client.Rooms.ListPublic(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("list rooms failed")
		return []model.Room{}
	}
	return rooms
}

func (s *RoomService) Get(ctx context.Context, roomID string) (*model.Room, *apperrors.APIError) {
	room, err := s.client.Rooms.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("room_not_found", "room not found")
	}
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("get room failed")
		return nil, apperrors.Internal("failed to load room")
	}
	return room, nil
}

// Join enrolls the user. A duplicate join is success: an active row is
// returned as is and an inactive one is reactivated. A full room rejects
// newcomers.
func (s *RoomService) Join(ctx context.Context, roomID, userID string) (*JoinResult, *apperrors.APIError) {
	room, apiErr := s.Get(ctx, roomID)
	if apiErr != nil {
		return nil, apiErr
	}

	existing, err := s.client.Participants.Get(ctx, roomID, userID)
	switch {
	case err == nil && existing.IsActive:
		return &JoinResult{Participant: existing, AlreadyJoined: true}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("participant lookup failed")
		return nil, apperrors.Internal("failed to join room")
	}

	count, err := s.client.Participants.CountActive(ctx, roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("count participants failed")
		return nil, apperrors.Internal("failed to join room")
	}
	if count >= room.MaxParticipants {
		return nil, apperrors.Conflict("room_full", "room is full", map[string]int{"maxParticipants": room.MaxParticipants})
	}

	now := time.Now().UTC()
	if existing != nil {
		participant, _, err := s.client.Participants.SetActive(ctx, roomID, userID, true, now)
		if err != nil {
			logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("rejoin failed")
			return nil, apperrors.Internal("failed to join room")
		}
		return &JoinResult{Participant: participant, AlreadyJoined: true}, nil
	}

	participant := &model.RoomParticipant{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   userID,
		IsActive: true,
		JoinedAt: now,
	}
	if err := s.client.Participants.Insert(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			current, getErr := s.client.Participants.Get(ctx, roomID, userID)
			if getErr == nil {
				return &JoinResult{Participant: current, AlreadyJoined: true}, nil
			}
		}
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("join failed")
		return nil, apperrors.Internal("failed to join room")
	}
	return &JoinResult{Participant: participant}, nil
}

// Leave marks the participation inactive, keeping the row.
func (s *RoomService) Leave(ctx context.Context, roomID, userID string) (*model.RoomParticipant, *apperrors.APIError) {
	participant, _, err := s.client.Participants.SetActive(ctx, roomID, userID, false, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("not_participant", "not a participant of this room")
	}
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("leave failed")
		return nil, apperrors.Internal("failed to leave room")
	}
	for _, hook := range s.onLeave {
		hook(ctx, userID, roomID)
	}
	return participant, nil
}

// RequireMember admits active participants of an existing room.
func (s *RoomService) RequireMember(ctx context.Context, roomID, userID string) *apperrors.APIError {
	if _, apiErr := s.Get(ctx, roomID); apiErr != nil {
		return apiErr
	}
	participant, err := s.client.Participants.Get(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !participant.IsActive) {
		return apperrors.Forbidden("join the room first")
	}
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("membership check failed")
		return apperrors.Internal("failed to check membership")
	}
	return nil
}

// Presence reads the room's presence projection once.
func (s *RoomService) Presence(ctx context.Context, roomID string) view.Presence {
	participants, err := s.client.ListActiveParticipants(ctx, roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("presence read failed")
		participants = nil
	}
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.UserID)
	}
	profiles, err := s.client.LookupProfiles(ctx, ids)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("profile read failed")
	}
	open, err := s.client.ListOpenSessions(ctx, roomID)
	if err != nil {
		logging.Warn().Err(err).Str("room_id", roomID).Msg("open session read failed")
	}
	return view.BuildPresence(participants, profiles, view.ActiveSessionMap(open))
}
