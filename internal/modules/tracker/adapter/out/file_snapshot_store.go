package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"witar/internal/modules/tracker/domain"
	trackerout "witar/internal/modules/tracker/port/out"
	apperrors "witar/internal/platform/errors"
)

// FileSnapshotStore keeps the session snapshot as a single versioned JSON
// blob. Writes go through a temp file and rename, so a crash mid-write
// leaves either the previous snapshot or none, never a torn one.
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(path string) trackerout.SnapshotStore {
	return &FileSnapshotStore{path: path}
}

func (s *FileSnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *FileSnapshotStore) Load(_ context.Context) (domain.Snapshot, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Snapshot{}, apperrors.ErrNoSnapshot
		}
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap := domain.Snapshot{}
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.Snapshot{}, apperrors.ErrNoSnapshot
	}
	if snap.Version != domain.SnapshotVersion {
		return domain.Snapshot{}, apperrors.ErrNoSnapshot
	}
	return snap, nil
}

func (s *FileSnapshotStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
