package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
)

// FileModelStore persists one JSON snapshot per user under a directory.
// Saves write a temporary file and then rename it over the previous copy,
// so a crash mid-write never corrupts the durable snapshot.
type FileModelStore struct {
	dir string
}

func NewFileModelStore(dir string) (*FileModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &FileModelStore{dir: dir}, nil
}

func (s *FileModelStore) path(userID uuid.UUID) string {
	return filepath.Join(s.dir, userID.String()+".json")
}

func (s *FileModelStore) Load(userID uuid.UUID) (*domain.ModelSnapshot, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, domain.ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model snapshot: %w", err)
	}

	var snapshot domain.ModelSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode model snapshot: %w", err)
	}
	if snapshot.UserID != userID {
		return nil, fmt.Errorf("model snapshot user mismatch: file for %s holds %s", userID, snapshot.UserID)
	}
	if snapshot.Table == nil {
		snapshot.Table = make(domain.QTable)
	}
	return &snapshot, nil
}

func (s *FileModelStore) Save(snapshot *domain.ModelSnapshot) error {
	snapshot.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model snapshot: %w", err)
	}

	path := s.path(snapshot.UserID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace model snapshot: %w", err)
	}
	return nil
}
