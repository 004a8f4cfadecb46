package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/l5yth/potato-mesh/internal/models"
)

// FileStore keeps the checkpoint in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op.
func (s *FileStore) Close() {}

// Ping checks that the parent directory is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Load reads the checkpoint. A missing file is an empty checkpoint.
func (s *FileStore) Load(ctx context.Context) (*models.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return decodeCheckpoint(nil)
		}
		return nil, err
	}
	return decodeCheckpoint(data)
}

// Save writes the checkpoint through a temp file and rename so a crash
// never leaves a truncated document behind.
func (s *FileStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o644)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
