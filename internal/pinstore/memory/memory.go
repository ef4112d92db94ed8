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

// Package memory implements an in-memory pin-store backend. Data is lost
// when the process terminates; suitable for tests and ephemeral deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"schemapin/internal/pinstore/types"
)

// Storage implements types.Store over a mutex-guarded map. CheckAndPin's
// first-writer-wins atomicity comes from holding the mutex across the
// read-then-maybe-write sequence.
type Storage struct {
	mu   sync.Mutex
	pins map[string]types.PinRecord
}

// New constructs an in-memory pin-store backend.
func New(_ context.Context, opts ...types.Option) (types.Store, error) {
	s := &Storage{pins: make(map[string]types.PinRecord)}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CheckAndPin implements the TOFU check: first_use on no entry, pinned on
// matching fingerprint, changed (store unchanged) otherwise.
func (s *Storage) CheckAndPin(_ context.Context, toolID, domain, fingerprint string) (types.PinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.Key(toolID, domain)

	existing, ok := s.pins[key]
	if !ok {
		now := time.Now()
		s.pins[key] = types.PinRecord{
			ToolID:       toolID,
			Domain:       domain,
			Fingerprint:  fingerprint,
			PinnedAt:     now,
			LastVerified: now,
		}
		return types.PinFirstUse, nil
	}

	if existing.Fingerprint == fingerprint {
		existing.LastVerified = time.Now()
		s.pins[key] = existing
		return types.PinPinned, nil
	}

	return types.PinChanged, nil
}

// GetPinned returns the pin record for (toolID, domain), or nil if absent.
func (s *Storage) GetPinned(_ context.Context, toolID, domain string) (*types.PinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[types.Key(toolID, domain)]
	if !ok {
		return nil, nil
	}

	return &rec, nil
}

// Remove deletes the pin record for (toolID, domain), if any.
func (s *Storage) Remove(_ context.Context, toolID, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pins, types.Key(toolID, domain))
	return nil
}

// Replace explicitly overwrites the fingerprint for (toolID, domain),
// creating the record if it doesn't already exist.
func (s *Storage) Replace(_ context.Context, toolID, domain, newFingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.Key(toolID, domain)
	now := time.Now()

	rec, ok := s.pins[key]
	if !ok {
		rec = types.PinRecord{ToolID: toolID, Domain: domain, PinnedAt: now}
	}
	rec.Fingerprint = newFingerprint
	rec.LastVerified = now
	s.pins[key] = rec

	return nil
}

// Serialize dumps every pin record as a JSON array.
func (s *Storage) Serialize(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]types.PinRecord, 0, len(s.pins))
	for _, rec := range s.pins {
		records = append(records, rec)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to serialize pin store: %w", err)
	}

	return data, nil
}

// Close is a no-op; there are no resources to release.
func (s *Storage) Close() error {
	return nil
}

// ProbeLiveness always reports healthy; in-memory storage has no external
// dependency to go unhealthy.
func (s *Storage) ProbeLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// ProbeReadiness always reports ready.
func (s *Storage) ProbeReadiness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// ProbeStartup always reports started; in-memory storage requires no
// initialization time.
func (s *Storage) ProbeStartup() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// WithDSN is a no-op for in-memory storage.
func (s *Storage) WithDSN(string) {}

// WithDumpDir is a no-op for in-memory storage.
func (s *Storage) WithDumpDir(string) {}

// WithDumpInterval is a no-op for in-memory storage.
func (s *Storage) WithDumpInterval(time.Duration) {}

// WithConnMaxIdleTime is a no-op for in-memory storage.
func (s *Storage) WithConnMaxIdleTime(time.Duration) {}

// WithConnMaxLifetime is a no-op for in-memory storage.
func (s *Storage) WithConnMaxLifetime(time.Duration) {}

// WithMaxIdleConns is a no-op for in-memory storage.
func (s *Storage) WithMaxIdleConns(int) {}

// WithMaxOpenConns is a no-op for in-memory storage.
func (s *Storage) WithMaxOpenConns(int) {}
