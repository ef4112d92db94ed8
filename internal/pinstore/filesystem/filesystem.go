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

// Package filesystem implements a pin-store backend persisted as a single
// JSON dump file, written atomically via a temp-file-then-rename sequence,
// and refreshed on a periodic background tick.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"schemapin/internal/pinstore/types"
)

const dumpFile = "pins.json"

// Storage implements types.Store by keeping the authoritative pin set in a
// mutex-guarded map and mirroring it to dumpFile under dumpDir, either on
// every mutation or (when dumpInterval is set) on a periodic tick.
type Storage struct {
	mu           sync.Mutex
	pins         map[string]types.PinRecord
	dumpDir      string
	dumpInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a filesystem-backed pin-store, creating dumpDir (0700) and
// loading any pre-existing dump file. If a dump interval is configured, a
// background flush loop is started; otherwise every mutation is flushed
// synchronously.
func New(ctx context.Context, opts ...types.Option) (types.Store, error) {
	s := &Storage{pins: make(map[string]types.PinRecord)}

	for _, opt := range opts {
		opt(s)
	}

	if s.dumpDir == "" {
		s.dumpDir = "."
	}

	if err := os.MkdirAll(s.dumpDir, 0700); err != nil {
		return nil, fmt.Errorf("filesystem: failed to create dump directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("filesystem: failed to load existing dump: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.dumpInterval > 0 {
		go s.startPeriodicFlush()
	}

	return s, nil
}

func (s *Storage) load() error {
	path := filepath.Join(s.dumpDir, dumpFile)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var records []types.PinRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return err
	}

	for _, rec := range records {
		s.pins[types.Key(rec.ToolID, rec.Domain)] = rec
	}

	return nil
}

// startPeriodicFlush runs a background loop that periodically persists the
// pin set to disk, until the constructor's context is cancelled.
func (s *Storage) startPeriodicFlush() {
	slog.Info("pinstore: starting periodic flush", "interval", s.dumpInterval.Seconds())

	ticker := time.NewTicker(s.dumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("pinstore: stopping periodic flush")
			return
		case <-ticker.C:
			if err := s.flush(); err != nil {
				slog.Error("pinstore: failed to flush pin store", "error", err)
			} else {
				slog.Debug("pinstore: successfully flushed pin store")
			}
		}
	}
}

// flush snapshots the current pin set and writes it atomically.
func (s *Storage) flush() error {
	s.mu.Lock()
	records := make([]types.PinRecord, 0, len(s.pins))
	for _, rec := range s.pins {
		records = append(records, rec)
	}
	s.mu.Unlock()

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("filesystem: marshal pin records: %w", err)
	}

	return s.saveFile(data)
}

// saveFile writes data to dumpFile atomically using a temp-file-then-rename
// sequence: create temp file, write, fsync, close, rename.
func (s *Storage) saveFile(data []byte) error {
	target := filepath.Join(s.dumpDir, dumpFile)

	tmpFile, err := os.CreateTemp(s.dumpDir, fmt.Sprintf(".%s.tmp-*", dumpFile))
	if err != nil {
		return fmt.Errorf("filesystem: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("filesystem: write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("filesystem: fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("filesystem: close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), target); err != nil {
		return fmt.Errorf("filesystem: rename %s -> %s: %w", tmpFile.Name(), target, err)
	}

	return nil
}

// CheckAndPin implements the TOFU check and, when no background flush loop
// is running, persists the change synchronously.
func (s *Storage) CheckAndPin(_ context.Context, toolID, domain, fingerprint string) (types.PinResult, error) {
	s.mu.Lock()
	key := types.Key(toolID, domain)
	existing, ok := s.pins[key]

	var result types.PinResult
	switch {
	case !ok:
		now := time.Now()
		s.pins[key] = types.PinRecord{
			ToolID:       toolID,
			Domain:       domain,
			Fingerprint:  fingerprint,
			PinnedAt:     now,
			LastVerified: now,
		}
		result = types.PinFirstUse
	case existing.Fingerprint == fingerprint:
		existing.LastVerified = time.Now()
		s.pins[key] = existing
		result = types.PinPinned
	default:
		result = types.PinChanged
	}
	s.mu.Unlock()

	if result == types.PinFirstUse && s.dumpInterval == 0 {
		if err := s.flush(); err != nil {
			return result, err
		}
	}

	return result, nil
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

// Remove deletes the pin record for (toolID, domain), flushing synchronously
// when no background flush loop is running.
func (s *Storage) Remove(_ context.Context, toolID, domain string) error {
	s.mu.Lock()
	delete(s.pins, types.Key(toolID, domain))
	s.mu.Unlock()

	if s.dumpInterval == 0 {
		return s.flush()
	}

	return nil
}

// Replace overwrites the fingerprint for (toolID, domain), flushing
// synchronously when no background flush loop is running.
func (s *Storage) Replace(_ context.Context, toolID, domain, newFingerprint string) error {
	s.mu.Lock()
	key := types.Key(toolID, domain)
	now := time.Now()

	rec, ok := s.pins[key]
	if !ok {
		rec = types.PinRecord{ToolID: toolID, Domain: domain, PinnedAt: now}
	}
	rec.Fingerprint = newFingerprint
	rec.LastVerified = now
	s.pins[key] = rec
	s.mu.Unlock()

	if s.dumpInterval == 0 {
		return s.flush()
	}

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
		return nil, fmt.Errorf("filesystem: failed to serialize pin store: %w", err)
	}

	return data, nil
}

// Close stops the background flush loop, if running, and performs a final
// synchronous flush.
func (s *Storage) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	return s.flush()
}

// ProbeLiveness reports healthy when the dump directory is readable.
func (s *Storage) ProbeLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if _, err := os.ReadDir(s.dumpDir); err != nil {
			slog.Warn("pinstore: liveness NOT alive (filesystem)", "dumpDir", s.dumpDir, "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.TrimSpace(err.Error())))
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// ProbeReadiness reports ready under the same condition as ProbeLiveness.
func (s *Storage) ProbeReadiness() http.HandlerFunc {
	return s.ProbeLiveness()
}

// ProbeStartup always reports started.
func (s *Storage) ProbeStartup() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// WithDSN is a no-op for filesystem storage.
func (s *Storage) WithDSN(string) {}

// WithDumpDir sets the directory the pin store is persisted under.
func (s *Storage) WithDumpDir(dir string) {
	s.dumpDir = dir
}

// WithDumpInterval sets the periodic flush interval; zero disables the
// background loop and falls back to flushing synchronously on mutation.
func (s *Storage) WithDumpInterval(d time.Duration) {
	s.dumpInterval = d
}

// WithConnMaxIdleTime is a no-op for filesystem storage.
func (s *Storage) WithConnMaxIdleTime(time.Duration) {}

// WithConnMaxLifetime is a no-op for filesystem storage.
func (s *Storage) WithConnMaxLifetime(time.Duration) {}

// WithMaxIdleConns is a no-op for filesystem storage.
func (s *Storage) WithMaxIdleConns(int) {}

// WithMaxOpenConns is a no-op for filesystem storage.
func (s *Storage) WithMaxOpenConns(int) {}
