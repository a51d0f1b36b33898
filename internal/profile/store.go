package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"interview-relay/internal/shared/util"
)

// Store persists the profile document.
type Store interface {
	Load(ctx context.Context) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

// FileStore keeps the profile as one JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The parent directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the profile. A missing file yields an empty profile.
func (s *FileStore) Load(ctx context.Context) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// Save writes the profile atomically: a synced temp file renamed over the
// old one.
func (s *FileStore) Save(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := util.WriteFileAtomic(s.path, raw); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
