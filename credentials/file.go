package credentials

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// dirPermissions is the permission mode for the credentials directory.
	dirPermissions = 0700

	// filePermissions keeps tokens readable by the owner only.
	filePermissions = 0600
)

var _ Store = (*FileStore)(nil)

// FileStore persists the entries as a small YAML document. Writes go through a temporary
// file and a rename so a crash never leaves a half-written pair behind.
type FileStore struct {
	path string
	lock sync.Mutex
}

// NewFileStore returns a store backed by path. The file and its directory are created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, pair TokenPair) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := yaml.Marshal(map[string]string{
		AccessTokenKey:  pair.AccessToken,
		RefreshTokenKey: pair.RefreshToken,
	})
	if err != nil {
		return apperrors.Wrapf(err, "[FileStore.Save] marshal")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return apperrors.Wrapf(err, "[FileStore.Save] creating directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return apperrors.Wrapf(err, "[FileStore.Save] create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return apperrors.Wrapf(err, "[FileStore.Save] write")
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return apperrors.Wrapf(err, "[FileStore.Save] chmod")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrapf(err, "[FileStore.Save] close")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperrors.Wrapf(err, "[FileStore.Save] rename into %s", s.path)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (*TokenPair, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "[FileStore.Load] read %s", s.path)
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCorrupt, "[FileStore.Load] %s: %v", s.path, err)
	}
	return FromEntries(entries)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrapf(err, "[FileStore.Clear] remove %s", s.path)
	}
	return nil
}
