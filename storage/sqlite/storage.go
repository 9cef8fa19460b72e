// Copyright (c) Microsoft. All rights reserved.

// Package sqlite provides an [ai.Storage] backed by a SQLite database,
// using the pure Go modernc.org/sqlite driver.
//
//	store, err := sqlite.Open(ctx, "state.db")
//	if err != nil { ... }
//	defer store.Close()
//
//	st, err := ai.LoadTurnState(ctx, store, turn)
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/microsoft/teams-ai/go/ai"
)

const schema = `CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`

// Storage is a SQLite [ai.Storage]. Use [Open] to create one.
type Storage struct {
	db *sql.DB
}

var _ ai.Storage = (*Storage)(nil)

// Open opens or creates the database at path and prepares its schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ai.ErrOperationFailed, path, err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive between calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: prepare schema: %w", ai.ErrOperationFailed, err)
		}
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Read(ctx context.Context, keys []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "SELECT key, value FROM state WHERE key IN (" + placeholders(len(keys)) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: read state: %w", ai.ErrOperationFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: scan state: %w", ai.ErrOperationFailed, err)
		}
		var item map[string]any
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return nil, fmt.Errorf("%w: decode %q: %w", ai.ErrOperationFailed, key, err)
		}
		out[key] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read state: %w", ai.ErrOperationFailed, err)
	}
	return out, nil
}

// Write upserts all changes in one transaction.
func (s *Storage) Write(ctx context.Context, changes map[string]map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin write: %w", ai.ErrOperationFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO state (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("%w: prepare write: %w", ai.ErrOperationFailed, err)
	}
	defer stmt.Close()

	for key, item := range changes {
		b, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("%w: encode %q: %w", ai.ErrOperationFailed, key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(b)); err != nil {
			return fmt.Errorf("%w: write %q: %w", ai.ErrOperationFailed, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit write: %w", ai.ErrOperationFailed, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM state WHERE key IN ("+placeholders(len(keys))+")", args...); err != nil {
		return fmt.Errorf("%w: delete state: %w", ai.ErrOperationFailed, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
