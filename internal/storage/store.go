package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"market-snapshot/internal/snapshot"
)

var (
	// ErrNoSnapshot indicates no snapshot document exists at the configured
	// path yet.
	ErrNoSnapshot = errors.New("storage: no snapshot written yet")
)

// Options parameterise the snapshot store.
type Options struct {
	// Path is the destination of the snapshot document.
	Path string
	// Pretty enables indented output for human diffing.
	Pretty bool
}

// Store persists the snapshot document. Writes go through a temporary file
// in the destination directory followed by a rename, so a concurrent reader
// sees either the previous complete document or the new one, never a
// partial write.
type Store struct {
	opts   Options
	logger zerolog.Logger
}

// NewStore constructs a snapshot store.
func NewStore(opts Options, logger zerolog.Logger) *Store {
	return &Store{
		opts:   opts,
		logger: logger.With().Str("component", "snapshot_store").Logger(),
	}
}

// Path returns the configured snapshot destination.
func (s *Store) Path() string {
	return s.opts.Path
}

// Write atomically replaces the snapshot document on disk.
func (s *Store) Write(snap *snapshot.Snapshot) error {
	if s.opts.Path == "" {
		return fmt.Errorf("storage: snapshot path not configured")
	}

	payload, err := s.encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.opts.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// The temporary file lives next to the destination: rename is only
	// atomic within one filesystem.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.opts.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		if removeErr := os.Remove(tmpName); removeErr != nil && !os.IsNotExist(removeErr) {
			s.logger.Warn().Err(removeErr).Str("path", tmpName).Msg("failed to remove temp snapshot")
		}
	}

	if _, err := tmp.Write(payload); err != nil {
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.opts.Path); err != nil {
		cleanup()
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Debug().Str("path", s.opts.Path).Int("bytes", len(payload)).Msg("snapshot replaced")
	return nil
}

// Load reads the snapshot document from disk.
func (s *Store) Load() (*snapshot.Snapshot, error) {
	if s.opts.Path == "" {
		return nil, fmt.Errorf("storage: snapshot path not configured")
	}

	payload, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, s.opts.Path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Store) encode(snap *snapshot.Snapshot) ([]byte, error) {
	if s.opts.Pretty {
		payload, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(payload, '\n'), nil
	}
	return json.Marshal(snap)
}
