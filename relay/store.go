// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/courier-dev/courier/lib/sqlitepool"
)

// sessionSchema is applied to every connection. IF NOT EXISTS makes it
// idempotent across the pool.
const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	token          TEXT PRIMARY KEY,
	bound_session  TEXT NOT NULL,
	origin_payload TEXT NOT NULL DEFAULT '{}',
	created_at     INTEGER NOT NULL,
	expires_at     INTEGER NOT NULL,
	kind           TEXT NOT NULL
);
`

// Store persists session records in SQLite. It survives process
// restarts: operator replies may arrive long after the process that
// announced the token has been recycled.
//
// Store is safe for concurrent use. Writes go through SQLite's WAL
// journal, so a Lookup racing a Create sees either the old record or
// the new one, never a partial row.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// StoreConfig holds parameters for opening a Store.
type StoreConfig struct {
	// Path is the SQLite database file. Required.
	Path string

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// OpenStore opens (creating if necessary) the session database at the
// configured path. The caller must call Close when done.
func OpenStore(cfg StoreConfig) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sessionSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("relay: opening session store: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Create durably writes the record, overwriting any existing record
// for the same token. This is an idempotent register, not a
// uniqueness-enforcing insert — callers that need uniqueness check
// with Lookup first and retry on collision.
func (s *Store) Create(ctx context.Context, record Record) error {
	if len(record.Token) != TokenLength {
		return fmt.Errorf("relay: token %q is not %d characters", record.Token, TokenLength)
	}
	if record.ExpiresAt <= record.CreatedAt {
		return fmt.Errorf("relay: record for %s expires at or before creation", record.Token)
	}

	payload, err := json.Marshal(record.OriginPayload)
	if err != nil {
		return fmt.Errorf("relay: encoding origin payload for %s: %w", record.Token, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO sessions (token, bound_session, origin_payload, created_at, expires_at, kind)
		VALUES (:token, :bound_session, :origin_payload, :created_at, :expires_at, :kind)
		ON CONFLICT(token) DO UPDATE SET
			bound_session  = excluded.bound_session,
			origin_payload = excluded.origin_payload,
			created_at     = excluded.created_at,
			expires_at     = excluded.expires_at,
			kind           = excluded.kind`,
		&sqlitex.ExecOptions{
			Named: map[string]any{
				":token":          NormalizeToken(record.Token),
				":bound_session":  record.BoundSession,
				":origin_payload": string(payload),
				":created_at":     record.CreatedAt,
				":expires_at":     record.ExpiresAt,
				":kind":           record.Kind,
			},
		})
	if err != nil {
		return fmt.Errorf("relay: writing session %s: %w", record.Token, err)
	}

	s.logger.Debug("session created",
		"token", record.Token,
		"bound_session", record.BoundSession,
		"expires_at", record.ExpiresAt,
		"kind", record.Kind,
	)
	return nil
}

// Lookup returns the current persisted record for the token, or
// found=false if it was never created or already removed. The token is
// case-normalized before the query. Expiry is NOT checked here — the
// caller evaluates it against its own clock.
func (s *Store) Lookup(ctx context.Context, token string) (Record, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, false, err
	}
	defer s.pool.Put(conn)

	var record Record
	var found bool
	err = sqlitex.Execute(conn, `
		SELECT token, bound_session, origin_payload, created_at, expires_at, kind
		FROM sessions WHERE token = :token`,
		&sqlitex.ExecOptions{
			Named: map[string]any{":token": NormalizeToken(token)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				record.Token = stmt.ColumnText(0)
				record.BoundSession = stmt.ColumnText(1)
				record.CreatedAt = stmt.ColumnInt64(3)
				record.ExpiresAt = stmt.ColumnInt64(4)
				record.Kind = stmt.ColumnText(5)

				payload := stmt.ColumnText(2)
				if payload != "" && payload != "null" {
					if err := json.Unmarshal([]byte(payload), &record.OriginPayload); err != nil {
						return fmt.Errorf("decoding origin payload: %w", err)
					}
				}
				return nil
			},
		})
	if err != nil {
		return Record{}, false, fmt.Errorf("relay: reading session %s: %w", NormalizeToken(token), err)
	}
	return record, found, nil
}

// Remove deletes the record for the token. Idempotent — removing an
// absent token is not an error.
func (s *Store) Remove(ctx context.Context, token string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM sessions WHERE token = :token`,
		&sqlitex.ExecOptions{
			Named: map[string]any{":token": NormalizeToken(token)},
		})
	if err != nil {
		return fmt.Errorf("relay: removing session %s: %w", NormalizeToken(token), err)
	}
	return nil
}

// Count returns the number of persisted session records, expired or
// not. Used by the admin status endpoint.
func (s *Store) Count(ctx context.Context) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	var count int64
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM sessions`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("relay: counting sessions: %w", err)
	}
	return count, nil
}
