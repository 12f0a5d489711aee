package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CoverStore keeps book cover images under a public-readable directory,
// keyed by generated filenames so uploads can never collide or traverse.
type CoverStore struct {
	dir string
}

func NewCoverStore(dir string) (*CoverStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create covers dir")
	}
	return &CoverStore{dir: dir}, nil
}

func (s *CoverStore) Dir() string {
	return s.dir
}

// Save writes the stream under a fresh uuid-based name and returns that name.
func (s *CoverStore) Save(ext string, src io.Reader) (string, error) {
	name := uuid.New().String() + ext
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "create cover file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, src); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write cover file")
	}
	return name, nil
}

func (s *CoverStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
