package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const defaultListLimit = 50

// SQLiteDispatchLogStore implements DispatchLogStore backed by SQLite.
type SQLiteDispatchLogStore struct {
	db *sql.DB
}

// NewSQLiteDispatchLogStore returns a new SQLiteDispatchLogStore.
func NewSQLiteDispatchLogStore(db *sql.DB) *SQLiteDispatchLogStore {
	return &SQLiteDispatchLogStore{db: db}
}

// LogDispatch inserts a dispatch record into the database.
func (s *SQLiteDispatchLogStore) LogDispatch(ctx context.Context, e DispatchLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_log (dispatch_id, message_id, topic, event_type, recipient,
			transport, status, kind, error_msg, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DispatchID, e.MessageID, e.Topic, e.EventType, e.Recipient,
		e.Transport, e.Status, e.Kind, e.ErrorMsg, e.DurationMS, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch log: %w", err)
	}
	return nil
}

// ListDispatches returns the most recent entries ordered by created_at descending.
func (s *SQLiteDispatchLogStore) ListDispatches(ctx context.Context, f ListFilter) (entries []DispatchLogEntry, err error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var where []string
	var args []any
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.EventType)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	query := `SELECT id, dispatch_id, message_id, topic, event_type, recipient, transport,
		status, kind, error_msg, duration_ms, created_at FROM dispatch_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	entries = []DispatchLogEntry{}
	for rows.Next() {
		var e DispatchLogEntry
		if err := rows.Scan(&e.ID, &e.DispatchID, &e.MessageID, &e.Topic, &e.EventType,
			&e.Recipient, &e.Transport, &e.Status, &e.Kind, &e.ErrorMsg, &e.DurationMS,
			&e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch log rows: %w", err)
	}
	return entries, nil
}

// PruneBefore deletes entries older than cutoff.
func (s *SQLiteDispatchLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dispatch_log WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning dispatch log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}
