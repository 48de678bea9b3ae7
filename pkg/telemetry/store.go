// Package telemetry collects arbitrary client statistics into a single
// persisted JSON array.
//
// Each submission is either one JSON value, appended as-is, or a JSON array,
// whose elements are appended individually. The file is rewritten atomically
// on every submission.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrInvalidPayload is returned when a submission is not valid JSON.
var ErrInvalidPayload = errors.New("telemetry: payload is not valid JSON")

// Store is a file-backed collection of JSON values.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore returns a Store persisting to path. The file is created on the
// first Append.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append merges payload into the collection and returns how many values were
// added.
func (s *Store) Append(payload []byte) (int, error) {
	payload = bytes.TrimSpace(payload)
	if !json.Valid(payload) {
		return 0, ErrInvalidPayload
	}

	var added []json.RawMessage
	if len(payload) > 0 && payload[0] == '[' {
		if err := json.Unmarshal(payload, &added); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else {
		added = []json.RawMessage{json.RawMessage(payload)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.loadLocked()
	existing = append(existing, added...)
	if err := s.saveLocked(existing); err != nil {
		return 0, err
	}
	return len(added), nil
}

// All returns every collected value.
func (s *Store) All() ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	return values, nil
}

// loadLocked reads the current collection. A missing or corrupt file is
// treated as empty so new submissions are never rejected because of it.
func (s *Store) loadLocked() []json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("stats file unreadable, starting fresh", "path", s.path, "error", err)
		}
		return nil
	}

	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.Warn("stats file corrupt, starting fresh", "path", s.path, "error", err)
		return nil
	}
	return values
}

func (s *Store) saveLocked(values []json.RawMessage) error {
	if values == nil {
		values = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stats-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp stats file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close stats: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace stats: %w", err)
	}
	return nil
}
