package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/realtime"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type scanner interface {
	Scan(dest ...interface{}) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// notifier publishes one change per committed write. A nil publisher is
// allowed and turns notifications off.
type notifier struct {
	pub realtime.Publisher
}

func (n notifier) notify(table realtime.Table, changeType realtime.ChangeType, roomID string, oldRecord, newRecord interface{}) {
	if n.pub == nil {
		return
	}
	change, err := realtime.NewChange(table, changeType, roomID, oldRecord, newRecord)
	if err != nil {
		logging.Err(err).Str("table", string(table)).Str("room_id", roomID).Msg("build change event")
		return
	}
	n.pub.Publish(change)
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("rollback failed")
	}
}

func rowsAffected(result sql.Result, op string) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n, nil
}
