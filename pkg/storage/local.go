package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStore keeps blobs as files directly under the root of fs
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore creates a store on fs. Production wraps the upload directory
// in a BasePathFs; tests pass a MemMapFs.
func NewLocalStore(fs afero.Fs) *LocalStore {
	return &LocalStore{fs: fs}
}

func (s *LocalStore) Name() string { return "local" }

// Put writes the blob, removing a partial file if the copy fails
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	path, err := cleanName(name)
	if err != nil {
		return err
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(path)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		_ = s.fs.Remove(path)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	path, err := cleanName(name)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a blob is present
func (s *LocalStore) Exists(name string) (bool, error) {
	path, err := cleanName(name)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, path)
}

// cleanName rejects anything that is not a plain file name
func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." {
		return "", fmt.Errorf("invalid blob name: %q", name)
	}
	return base, nil
}
