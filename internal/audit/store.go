// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists audit events in the Postgres lookups table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a lookup store backed by the given Postgres pool.
// It ensures the lookups table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure lookup schema: %w", err)
	}
	slog.Info("lookup store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS lookups (
			id             UUID PRIMARY KEY,
			message_id     TEXT NOT NULL,
			user_email     TEXT DEFAULT '',
			has_zip        BOOLEAN NOT NULL,
			password_found BOOLEAN NOT NULL,
			query          TEXT DEFAULT '',
			looked_up_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_lookups_looked_up_at ON lookups(looked_up_at DESC);
		CREATE INDEX IF NOT EXISTS idx_lookups_message ON lookups(message_id);
	`)
	return err
}

// Record inserts ev. Replaying the same event ID is a no-op.
func (s *Store) Record(ctx context.Context, ev Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lookups
			(id, message_id, user_email, has_zip, password_found, query, looked_up_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.MessageID, ev.User, ev.HasZip, ev.PasswordFound, ev.Query, ev.LookedUpAt)
	if err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, message_id, user_email, has_zip, password_found, query, looked_up_at
		FROM lookups
		ORDER BY looked_up_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// collectEvents scans multiple rows into a slice of Events.
func collectEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.ID, &ev.MessageID, &ev.User, &ev.HasZip,
			&ev.PasswordFound, &ev.Query, &ev.LookedUpAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
