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

// Package types defines the pin-store wire types and the pluggable Store
// interface shared by the memory, filesystem, redis, and postgres backends.
package types

import (
	"context"
	"net/http"
	"time"
)

// PinResult is the outcome of a CheckAndPin call.
type PinResult string

const (
	PinFirstUse PinResult = "first_use"
	PinPinned   PinResult = "pinned"
	PinChanged  PinResult = "changed"
)

// StorageType selects a pin-store backend.
type StorageType string

const (
	StorageTypeMemory     StorageType = "memory"
	StorageTypeFilesystem StorageType = "filesystem"
	StorageTypeRedis      StorageType = "redis"
	StorageTypePostgres   StorageType = "postgres"
)

// PinRecord is a single (tool_id, domain) -> fingerprint binding with
// provenance.
type PinRecord struct {
	ToolID        string    `json:"tool_id"`
	Domain        string    `json:"domain"`
	Fingerprint   string    `json:"fingerprint"`
	DeveloperName string    `json:"developer_name,omitempty"`
	PinnedAt      time.Time `json:"pinned_at"`
	LastVerified  time.Time `json:"last_verified"`
}

// Key returns the storage key used to index a pin record.
func Key(toolID, domain string) string {
	return toolID + "@" + domain
}

// Store is the pin-store backend contract. CheckAndPin is the only method
// that may create an entry silently; it MUST NOT overwrite an existing
// fingerprint for the same (tool_id, domain).
type Store interface {
	CheckAndPin(ctx context.Context, toolID, domain, fingerprint string) (PinResult, error)
	GetPinned(ctx context.Context, toolID, domain string) (*PinRecord, error)
	Remove(ctx context.Context, toolID, domain string) error
	Replace(ctx context.Context, toolID, domain, newFingerprint string) error
	Serialize(ctx context.Context) ([]byte, error)
	Close() error

	ProbeLiveness() http.HandlerFunc
	ProbeReadiness() http.HandlerFunc
	ProbeStartup() http.HandlerFunc

	// The With* setters below are the targets of the functional Option
	// type; backends for which a setting is inapplicable implement it as
	// a no-op rather than omitting it, so every Option applies uniformly
	// across backends.
	WithDSN(dsn string)
	WithDumpDir(dir string)
	WithDumpInterval(d time.Duration)
	WithConnMaxIdleTime(d time.Duration)
	WithConnMaxLifetime(d time.Duration)
	WithMaxIdleConns(n int)
	WithMaxOpenConns(n int)
}

// Option is a functional option applied to a Store at construction time.
type Option func(Store)

// WithDSN sets the backend's data-source name (connection string). No-op
// for backends without an external connection.
func WithDSN(dsn string) Option {
	return func(s Store) { s.WithDSN(dsn) }
}

// WithDumpDir sets the directory used for on-disk dumps. No-op for backends
// that don't persist to a local directory.
func WithDumpDir(dir string) Option {
	return func(s Store) { s.WithDumpDir(dir) }
}

// WithDumpInterval sets the periodic dump interval. No-op for backends
// without periodic dumps.
func WithDumpInterval(d time.Duration) Option {
	return func(s Store) { s.WithDumpInterval(d) }
}

// WithConnMaxIdleTime sets the maximum idle time for pooled connections.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(s Store) { s.WithConnMaxIdleTime(d) }
}

// WithConnMaxLifetime sets the maximum lifetime for pooled connections.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s Store) { s.WithConnMaxLifetime(d) }
}

// WithMaxIdleConns sets the maximum number of idle pooled connections.
func WithMaxIdleConns(n int) Option {
	return func(s Store) { s.WithMaxIdleConns(n) }
}

// WithMaxOpenConns sets the maximum number of open pooled connections.
func WithMaxOpenConns(n int) Option {
	return func(s Store) { s.WithMaxOpenConns(n) }
}
