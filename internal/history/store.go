// Package history stores a durable per-dispatch log of every notification
// the system actually delivered, in a local sqlite database. The gating
// engine's decision state lives in its own JSON file; this log exists for
// statistics and post-hoc inspection.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/skywatch/skywatch/internal/notify"
)

// Store is a sqlite-backed notification history log. It implements
// notify.Recorder. The engine is a single logical writer, so writes are
// synchronous.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenOrNil opens the history database, degrading to no history on
// failure: an empty path or an unopenable database returns nil with a
// warning, and the caller treats a nil store as "history disabled".
func OpenOrNil(dbPath string) *Store {
	if dbPath == "" {
		return nil
	}
	store, err := Open(dbPath)
	if err != nil {
		log.Printf("WARNING: notification history unavailable (%v), continuing without it", err)
		return nil
	}
	return store
}

// RecordNotification appends one dispatched notification to the log.
// Write failures are logged and dropped; history is best-effort.
func (s *Store) RecordNotification(rec notify.Record) {
	_, err := s.db.Exec(
		`INSERT INTO notification_history (alert_id, event, severity, priority, reason, title, message, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AlertID, rec.Event, rec.Severity, rec.Priority, rec.Reason,
		rec.Title, rec.Message, rec.SentAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		log.Printf("WARNING: failed to record notification for alert %q: %v", rec.AlertID, err)
	}
}

// Recent returns up to limit dispatched notifications, newest first.
func (s *Store) Recent(limit int) ([]notify.Record, error) {
	rows, err := s.db.Query(
		`SELECT alert_id, event, severity, priority, reason, title, message, sent_at
		 FROM notification_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notification history: %w", err)
	}
	defer rows.Close()

	var records []notify.Record
	for rows.Next() {
		var rec notify.Record
		var sentAt string
		if err := rows.Scan(&rec.AlertID, &rec.Event, &rec.Severity, &rec.Priority,
			&rec.Reason, &rec.Title, &rec.Message, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning notification history row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, sentAt); err == nil {
			rec.SentAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentCount returns how many notifications were dispatched at or after
// the given time.
func (s *Store) RecentCount(since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM notification_history WHERE datetime(sent_at) >= datetime(?)",
		since.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting notification history: %w", err)
	}
	return count, nil
}

// Purge deletes log rows older than the given time and returns how many
// were removed.
func (s *Store) Purge(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM notification_history WHERE datetime(sent_at) < datetime(?)",
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purging notification history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
