package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/realtime"
)

type SessionRepository struct {
	db *sql.DB
	notifier
}

func NewSessionRepository(db *sql.DB, pub realtime.Publisher) *SessionRepository {
	return &SessionRepository{db: db, notifier: notifier{pub: pub}}
}

const sessionColumns = `id, user_id, room_id, session_type, status, started_at, ended_at, duration_minutes, pomodoro_count`

// Create inserts an open session record.
func (r *SessionRepository) Create(ctx context.Context, session *model.FocusSession) error {
	session.Status = model.SessionOpen
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO focus_sessions (id, user_id, room_id, session_type, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.RoomID,
		session.SessionType,
		session.Status,
		formatTime(session.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	r.notify(realtime.TableSessions, realtime.Insert, session.RoomID, nil, session)
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.FocusSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM focus_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// Close applies the single closing write to an open session. Closing a
// session that is already closed returns ErrConflict and changes nothing.
func (r *SessionRepository) Close(ctx context.Context, id string, closing model.SessionClose) (*model.FocusSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	before, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM focus_sessions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if !before.Open() {
		return nil, ErrConflict
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE focus_sessions
		 SET ended_at = ?,
		     duration_minutes = ?,
		     pomodoro_count = ?,
		     status = ?
		 WHERE id = ? AND ended_at IS NULL`,
		formatTime(closing.EndedAt),
		closing.DurationMinutes,
		closing.PomodoroCount,
		closing.Status,
		id,
	); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}

	after := *before
	endedAt := closing.EndedAt.UTC()
	duration := closing.DurationMinutes
	count := closing.PomodoroCount
	after.EndedAt = &endedAt
	after.DurationMinutes = &duration
	after.PomodoroCount = &count
	after.Status = closing.Status

	r.notify(realtime.TableSessions, realtime.Update, after.RoomID, before, &after)
	return &after, nil
}

// ListOpenByRoom returns sessions in the room whose ended_at is null.
func (r *SessionRepository) ListOpenByRoom(ctx context.Context, roomID string) ([]model.FocusSession, error) {
	return r.list(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE room_id = ? AND ended_at IS NULL
		 ORDER BY started_at ASC`,
		roomID,
	)
}

// ListClosedByUser returns every closed session of the user across rooms.
func (r *SessionRepository) ListClosedByUser(ctx context.Context, userID string) ([]model.FocusSession, error) {
	return r.list(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE user_id = ? AND ended_at IS NOT NULL
		 ORDER BY started_at DESC`,
		userID,
	)
}

// ListClosedByUserSince returns closed sessions started at or after since,
// oldest first.
func (r *SessionRepository) ListClosedByUserSince(ctx context.Context, userID string, since time.Time) ([]model.FocusSession, error) {
	return r.list(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE user_id = ? AND ended_at IS NOT NULL AND started_at >= ?
		 ORDER BY started_at ASC`,
		userID,
		formatTime(since),
	)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.FocusSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.FocusSession, 0)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s scanner) (*model.FocusSession, error) {
	session := model.FocusSession{}
	var startedAt string
	var endedAt sql.NullString
	var duration sql.NullInt64
	var pomodoroCount sql.NullInt64
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.RoomID,
		&session.SessionType,
		&session.Status,
		&startedAt,
		&endedAt,
		&duration,
		&pomodoroCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	session.StartedAt = parsedStartedAt

	if session.EndedAt, err = parseNullableTime(endedAt, "session ended_at"); err != nil {
		return nil, err
	}
	if session.EndedAt != nil {
		session.DurationMinutes = nullableInt(duration)
		session.PomodoroCount = nullableInt(pomodoroCount)
	}
	return &session, nil
}
