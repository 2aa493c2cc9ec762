package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

type ParticipantRepository struct {
	db *sql.DB
	notifier
}

func NewParticipantRepository(db *sql.DB, pub realtime.Publisher) *ParticipantRepository {
	return &ParticipantRepository{db: db, notifier: notifier{pub: pub}}
}

const participantColumns = `id, room_id, user_id, is_active, joined_at, left_at`

func insertParticipant(ctx context.Context, ex execer, participant *model.RoomParticipant) error {
	_, err := ex.ExecContext(
		ctx,
		`INSERT INTO room_participants (id, room_id, user_id, is_active, joined_at, left_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		participant.ID,
		participant.RoomID,
		participant.UserID,
		participant.IsActive,
		formatTime(participant.JoinedAt),
		formatNullableTime(participant.LeftAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// Insert adds a participation row. A second row for the same room and user
// fails with ErrConflict.
func (r *ParticipantRepository) Insert(ctx context.Context, participant *model.RoomParticipant) error {
	if err := insertParticipant(ctx, r.db, participant); err != nil {
		return err
	}
	r.notify(realtime.TableParticipants, realtime.Insert, participant.RoomID, nil, participant)
	return nil
}

func (r *ParticipantRepository) Get(ctx context.Context, roomID, userID string) (*model.RoomParticipant, error) {
	return getParticipant(ctx, r.db, roomID, userID)
}

func getParticipant(ctx context.Context, ex execer, roomID, userID string) (*model.RoomParticipant, error) {
	row := ex.QueryRowContext(
		ctx,
		`SELECT `+participantColumns+` FROM room_participants WHERE room_id = ? AND user_id = ?`,
		roomID,
		userID,
	)
	return scanParticipant(row)
}

// SetActive flips the presence flag. Activating clears left_at, deactivating
// stamps it with at. It returns ErrNotFound when no row exists and the
// unchanged row when the flag already has the requested value.
func (r *ParticipantRepository) SetActive(ctx context.Context, roomID, userID string, active bool, at time.Time) (*model.RoomParticipant, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	before, err := getParticipant(ctx, tx, roomID, userID)
	if err != nil {
		return nil, false, err
	}
	if before.IsActive == active {
		return before, false, nil
	}

	after := *before
	after.IsActive = active
	if active {
		after.JoinedAt = at
		after.LeftAt = nil
	} else {
		leftAt := at
		after.LeftAt = &leftAt
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE room_participants SET is_active = ?, joined_at = ?, left_at = ? WHERE id = ?`,
		after.IsActive,
		formatTime(after.JoinedAt),
		formatNullableTime(after.LeftAt),
		after.ID,
	); err != nil {
		return nil, false, fmt.Errorf("update participant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit participant: %w", err)
	}

	r.notify(realtime.TableParticipants, realtime.Update, roomID, before, &after)
	return &after, true, nil
}

// ListActive returns the room's present participants, earliest joiner first.
func (r *ParticipantRepository) ListActive(ctx context.Context, roomID string) ([]model.RoomParticipant, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+participantColumns+`
		 FROM room_participants
		 WHERE room_id = ? AND is_active = 1
		 ORDER BY joined_at ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]model.RoomParticipant, 0)
	for rows.Next() {
		participant, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, *participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func (r *ParticipantRepository) CountActive(ctx context.Context, roomID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM room_participants WHERE room_id = ? AND is_active = 1`,
		roomID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

func scanParticipant(s scanner) (*model.RoomParticipant, error) {
	var participant model.RoomParticipant
	var joinedAt string
	var leftAt sql.NullString
	if err := s.Scan(
		&participant.ID,
		&participant.RoomID,
		&participant.UserID,
		&participant.IsActive,
		&joinedAt,
		&leftAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}

	parsed, err := parseTime(joinedAt)
	if err != nil {
		return nil, fmt.Errorf("parse participant joined_at: %w", err)
	}
	participant.JoinedAt = parsed
	if participant.LeftAt, err = parseNullableTime(leftAt, "participant left_at"); err != nil {
		return nil, err
	}
	return &participant, nil
}
