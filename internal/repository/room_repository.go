package repository

import (
	"context"
	"database/sql"
	"fmt"

	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

type RoomRepository struct {
	db *sql.DB
	notifier
}

func NewRoomRepository(db *sql.DB, pub realtime.Publisher) *RoomRepository {
	return &RoomRepository{db: db, notifier: notifier{pub: pub}}
}

const roomColumns = `r.id, r.name, r.description, r.creator_id, r.max_participants, r.is_public, r.created_at,
	(SELECT COUNT(1) FROM room_participants p WHERE p.room_id = r.id AND p.is_active = 1)`

// CreateWithCreator inserts the room and enrolls its creator as an active
// participant in one transaction.
func (r *RoomRepository) CreateWithCreator(ctx context.Context, room *model.Room, creator *model.RoomParticipant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO rooms (id, name, description, creator_id, max_participants, is_public, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		room.Description,
		room.CreatorID,
		room.MaxParticipants,
		room.IsPublic,
		formatTime(room.CreatedAt),
	); err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	if err := insertParticipant(ctx, tx, creator); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit room: %w", err)
	}
	room.ParticipantCount = 1

	r.notify(realtime.TableRooms, realtime.Insert, room.ID, nil, room)
	r.notify(realtime.TableParticipants, realtime.Insert, room.ID, nil, creator)
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = ?`, id)
	return scanRoom(row)
}

// ListPublic returns public rooms, newest first.
func (r *RoomRepository) ListPublic(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+roomColumns+`
		 FROM rooms r
		 WHERE r.is_public = 1
		 ORDER BY r.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]model.Room, 0)
	for rows.Next() {
		room, scanErr := scanRoom(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

func scanRoom(s scanner) (*model.Room, error) {
	var room model.Room
	var description sql.NullString
	var createdAt string
	if err := s.Scan(
		&room.ID,
		&room.Name,
		&description,
		&room.CreatorID,
		&room.MaxParticipants,
		&room.IsPublic,
		&createdAt,
		&room.ParticipantCount,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan room: %w", err)
	}
	room.Description = nullableString(description)
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse room created_at: %w", err)
	}
	room.CreatedAt = parsed
	return &room, nil
}
