package dropcopy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

// Store is the SQLite outbox of drop-copy events
type Store struct {
	db    *sql.DB
	topic string
}

// OutboxEvent is a stored event waiting to be published
type OutboxEvent struct {
	ID                  int64
	EventID             string
	Kind                string
	ClOrdID             string
	Topic               string
	PayloadJSON         string
	CreatedUnixMillis   int64
	PublishedUnixMillis sql.NullInt64
}

// Open creates or opens the outbox at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; the handlers and the publisher share it
	db.SetMaxOpenConns(1)

	store := &Store{db: db, topic: msg.TopicLifecycle}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS lifecycle_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			cl_ord_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			created_unix_millis INTEGER NOT NULL,
			published_unix_millis INTEGER NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_unpublished
			ON lifecycle_events(published_unix_millis)
			WHERE published_unix_millis IS NULL`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// Append stores ev unless its event id is already present. It reports
// whether a row was written.
func (s *Store) Append(ctx context.Context, ev Event) (bool, error) {
	payload, err := json.Marshal(ev.Msg())
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (event_id, kind, cl_ord_id, topic, payload_json, created_unix_millis, published_unix_millis)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)
		 ON CONFLICT(event_id) DO NOTHING`,
		ev.EventID, string(ev.Kind), ev.ClOrdID, s.topic, string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// Record implements Recorder.
func (s *Store) Record(ctx context.Context, ev Event) error {
	_, err := s.Append(ctx, ev)
	return err
}

// ListUnpublished returns up to limit events not yet published, oldest first
func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, kind, cl_ord_id, topic, payload_json, created_unix_millis, published_unix_millis
		 FROM lifecycle_events
		 WHERE published_unix_millis IS NULL
		 ORDER BY id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.Kind, &e.ClOrdID, &e.Topic,
			&e.PayloadJSON, &e.CreatedUnixMillis, &e.PublishedUnixMillis,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// MarkPublished marks an event as published
func (s *Store) MarkPublished(ctx context.Context, eventID string, nowMillis int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE lifecycle_events SET published_unix_millis = ? WHERE event_id = ?",
		nowMillis, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
