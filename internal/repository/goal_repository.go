package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

type GoalRepository struct {
	db *sql.DB
	notifier
}

func NewGoalRepository(db *sql.DB, pub realtime.Publisher) *GoalRepository {
	return &GoalRepository{db: db, notifier: notifier{pub: pub}}
}

const goalColumns = `id, room_id, user_id, title, description, is_completed, completed_at, created_at`

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO goals (id, room_id, user_id, title, description, is_completed, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID,
		goal.RoomID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.IsCompleted,
		formatNullableTime(goal.CompletedAt),
		formatTime(goal.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	r.notify(realtime.TableGoals, realtime.Insert, goal.RoomID, nil, goal)
	return nil
}

func (r *GoalRepository) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	return scanGoal(row)
}

// ListByRoom returns the room's goals, newest first.
func (r *GoalRepository) ListByRoom(ctx context.Context, roomID string) ([]model.Goal, error) {
	return r.list(
		ctx,
		`SELECT `+goalColumns+` FROM goals WHERE room_id = ? ORDER BY created_at DESC`,
		roomID,
	)
}

// ListByUser returns every goal the user owns across rooms.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]model.Goal, error) {
	return r.list(
		ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
}

// Toggle flips completion of the goal as one write: completed_at is set when
// completing and cleared when reopening.
func (r *GoalRepository) Toggle(ctx context.Context, id string, now time.Time) (*model.Goal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	before, err := scanGoal(tx.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	after := before.Toggled(now.UTC())

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE goals SET is_completed = ?, completed_at = ? WHERE id = ?`,
		after.IsCompleted,
		formatNullableTime(after.CompletedAt),
		id,
	); err != nil {
		return nil, fmt.Errorf("toggle goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit goal: %w", err)
	}

	r.notify(realtime.TableGoals, realtime.Update, after.RoomID, before, &after)
	return &after, nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	before, err := scanGoal(tx.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit goal delete: %w", err)
	}

	r.notify(realtime.TableGoals, realtime.Delete, before.RoomID, before, nil)
	return nil
}

func (r *GoalRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Goal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]model.Goal, 0)
	for rows.Next() {
		goal, scanErr := scanGoal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func scanGoal(s scanner) (*model.Goal, error) {
	var goal model.Goal
	var description sql.NullString
	var completedAt sql.NullString
	var createdAt string
	if err := s.Scan(
		&goal.ID,
		&goal.RoomID,
		&goal.UserID,
		&goal.Title,
		&description,
		&goal.IsCompleted,
		&completedAt,
		&createdAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	goal.Description = nullableString(description)

	var err error
	if goal.CompletedAt, err = parseNullableTime(completedAt, "goal completed_at"); err != nil {
		return nil, err
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse goal created_at: %w", err)
	}
	goal.CreatedAt = parsed
	return &goal, nil
}
