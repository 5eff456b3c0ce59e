package syncdriver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var errMissingStatePath = errors.New("sync state path is required")

// StateStore keeps the server timestamp of the last pass whose server
// changes were merged. The next pass asks the remote only for rows changed
// after it.
type StateStore interface {
	LastSyncTimestamp(ctx context.Context) (int64, error)
	SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error
}

// MemoryState is a StateStore that lives as long as the process.
type MemoryState struct {
	mu        sync.Mutex
	timestamp int64
}

func NewMemoryState() *MemoryState {
	return &MemoryState{}
}

func (s *MemoryState) LastSyncTimestamp(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timestamp, nil
}

func (s *MemoryState) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.timestamp = timestamp
	s.mu.Unlock()
	return nil
}

// FileState is a StateStore backed by a small YAML document, written
// atomically so a crash leaves either the old or the new timestamp.
type FileState struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

type stateDocument struct {
	LastSyncTimestamp int64     `yaml:"lastSyncTimestamp"`
	UpdatedAt         time.Time `yaml:"updatedAt"`
}

// NewFileState returns a FileState stored at path. The file is created on the
// first save; a missing file reads as timestamp zero.
func NewFileState(path string) (*FileState, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errMissingStatePath
	}
	return &FileState{path: filepath.Clean(path), clock: time.Now}, nil
}

// StatePathFor names the state file kept beside a database file.
func StatePathFor(databasePath string) string {
	return databasePath + ".sync.yaml"
}

func (s *FileState) Path() string {
	return s.path
}

func (s *FileState) LastSyncTimestamp(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var document stateDocument
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return 0, fmt.Errorf("decode sync state %s: %w", s.path, err)
	}
	return document.LastSyncTimestamp, nil
}

func (s *FileState) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := yaml.Marshal(stateDocument{LastSyncTimestamp: timestamp, UpdatedAt: s.clock().UTC()})
	if err != nil {
		return err
	}
	return atomicWriteFile(s.path, raw, 0o600)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sync-state-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	return os.Rename(tmpPath, path)
}
