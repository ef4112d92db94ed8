/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end

// Package postgres implements a pin-store backend using PostgreSQL.
// First-use atomicity comes from an INSERT ... ON CONFLICT DO NOTHING on
// the (tool_id, domain) primary key: exactly one concurrent inserter creates
// the row, every other writer observes zero rows affected.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"schemapin/internal/pinstore/postgres/migrations"
	"schemapin/internal/pinstore/types"
)

// Storage implements types.Store over a PostgreSQL database.
type Storage struct {
	ctx             context.Context
	client          *sql.DB
	dsn             string
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
}

// New opens a connection to PostgreSQL, validates it with a ping, and runs
// pending migrations to ensure the schema_pins table exists.
func New(ctx context.Context, opts ...types.Option) (types.Store, error) {
	s := &Storage{ctx: ctx}

	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open dsn: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if err := migrations.Up(db); err != nil {
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	db.SetConnMaxIdleTime(s.connMaxIdleTime)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetMaxOpenConns(s.maxOpenConns)

	s.client = db

	return s, nil
}

// CheckAndPin implements the TOFU check via INSERT ... ON CONFLICT DO
// NOTHING: RowsAffected()==1 means this call created the pin (first_use);
// 0 means a row already existed, so we compare fingerprints ourselves.
func (s *Storage) CheckAndPin(ctx context.Context, toolID, domain, fingerprint string) (types.PinResult, error) {
	const q = `
INSERT INTO schema_pins (tool_id, domain, fingerprint, pinned_at, last_verified)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (tool_id, domain) DO NOTHING
`

	res, err := s.client.ExecContext(ctx, q, toolID, domain, fingerprint)
	if err != nil {
		return "", fmt.Errorf("postgres: insert pin: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("postgres: rows affected: %w", err)
	}

	if n == 1 {
		return types.PinFirstUse, nil
	}

	var existing string
	if err := s.client.QueryRowContext(ctx,
		`SELECT fingerprint FROM schema_pins WHERE tool_id = $1 AND domain = $2`,
		toolID, domain,
	).Scan(&existing); err != nil {
		return "", fmt.Errorf("postgres: select existing fingerprint: %w", err)
	}

	if existing == fingerprint {
		if _, err := s.client.ExecContext(ctx,
			`UPDATE schema_pins SET last_verified = now() WHERE tool_id = $1 AND domain = $2`,
			toolID, domain,
		); err != nil {
			return "", fmt.Errorf("postgres: update last_verified: %w", err)
		}
		return types.PinPinned, nil
	}

	return types.PinChanged, nil
}

// GetPinned returns the pin record for (toolID, domain), or nil if absent.
func (s *Storage) GetPinned(ctx context.Context, toolID, domain string) (*types.PinRecord, error) {
	const q = `
SELECT tool_id, domain, fingerprint, developer_name, pinned_at, last_verified
FROM schema_pins
WHERE tool_id = $1 AND domain = $2
`

	var rec types.PinRecord

	err := s.client.QueryRowContext(ctx, q, toolID, domain).Scan(
		&rec.ToolID, &rec.Domain, &rec.Fingerprint, &rec.DeveloperName, &rec.PinnedAt, &rec.LastVerified,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select pin: %w", err)
	}

	return &rec, nil
}

// Remove deletes the pin record for (toolID, domain), if any.
func (s *Storage) Remove(ctx context.Context, toolID, domain string) error {
	if _, err := s.client.ExecContext(ctx,
		`DELETE FROM schema_pins WHERE tool_id = $1 AND domain = $2`, toolID, domain,
	); err != nil {
		return fmt.Errorf("postgres: delete pin: %w", err)
	}

	return nil
}

// Replace explicitly overwrites the fingerprint for (toolID, domain).
func (s *Storage) Replace(ctx context.Context, toolID, domain, newFingerprint string) error {
	const q = `
INSERT INTO schema_pins (tool_id, domain, fingerprint, pinned_at, last_verified)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (tool_id, domain) DO UPDATE
SET fingerprint = EXCLUDED.fingerprint, last_verified = now()
`

	if _, err := s.client.ExecContext(ctx, q, toolID, domain, newFingerprint); err != nil {
		return fmt.Errorf("postgres: replace pin: %w", err)
	}

	return nil
}

// Serialize dumps every pin record as a JSON array.
func (s *Storage) Serialize(ctx context.Context) ([]byte, error) {
	const q = `SELECT tool_id, domain, fingerprint, developer_name, pinned_at, last_verified FROM schema_pins`

	rows, err := s.client.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: select all pins: %w", err)
	}
	defer rows.Close()

	var records []types.PinRecord

	for rows.Next() {
		var rec types.PinRecord
		if err := rows.Scan(&rec.ToolID, &rec.Domain, &rec.Fingerprint, &rec.DeveloperName, &rec.PinnedAt, &rec.LastVerified); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows error: %w", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to serialize pin store: %w", err)
	}

	return data, nil
}

// Close releases the underlying database connection pool.
func (s *Storage) Close() error {
	return s.client.Close()
}

// ProbeLiveness reports healthy when the database responds to a ping.
func (s *Storage) ProbeLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.client.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ProbeReadiness reports ready under the same condition as ProbeLiveness.
func (s *Storage) ProbeReadiness() http.HandlerFunc {
	return s.ProbeLiveness()
}

// ProbeStartup always reports started; initialization happens in New.
func (s *Storage) ProbeStartup() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// WithDSN sets the PostgreSQL connection string.
func (s *Storage) WithDSN(dsn string) {
	s.dsn = dsn
}

// WithDumpDir is a no-op for PostgreSQL storage.
func (s *Storage) WithDumpDir(string) {}

// WithDumpInterval is a no-op; PostgreSQL persistence is synchronous.
func (s *Storage) WithDumpInterval(time.Duration) {}

// WithConnMaxIdleTime sets the pool's maximum connection idle time.
func (s *Storage) WithConnMaxIdleTime(d time.Duration) {
	s.connMaxIdleTime = d
}

// WithConnMaxLifetime sets the pool's maximum connection lifetime.
func (s *Storage) WithConnMaxLifetime(d time.Duration) {
	s.connMaxLifetime = d
}

// WithMaxIdleConns sets the pool's maximum idle connection count.
func (s *Storage) WithMaxIdleConns(n int) {
	s.maxIdleConns = n
}

// WithMaxOpenConns sets the pool's maximum open connection count.
func (s *Storage) WithMaxOpenConns(n int) {
	s.maxOpenConns = n
}
