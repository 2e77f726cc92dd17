// Package archive stores and unpacks course backup archives. A store
// resolves opaque handles to archive contents; where those bytes live
// (local disk, S3) is a deployment choice.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// LocalStore keeps archives as files under a base directory. Handles are
// paths relative to the base.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, errors.New("base dir is required")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	if mkErr := os.MkdirAll(abs, 0o750); mkErr != nil {
		return nil, fmt.Errorf("create base dir: %w", mkErr)
	}
	return &LocalStore{baseDir: abs}, nil
}

// resolvePath confines a handle inside the base directory.
func (s *LocalStore) resolvePath(handle string) (string, error) {
	if handle == "" {
		return "", errors.New("archive handle is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(handle))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("archive handle %q escapes store", handle)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Resolve opens the archive behind the handle for reading.
func (s *LocalStore) Resolve(_ context.Context, handle string) (io.ReadCloser, error) {
	path, err := s.resolvePath(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return f, nil
}

// Put stores an archive under the handle, replacing any existing content.
func (s *LocalStore) Put(_ context.Context, handle string, r io.Reader, _ int64) error {
	path, err := s.resolvePath(handle)
	if err != nil {
		return err
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o750); mkErr != nil {
		return fmt.Errorf("create archive dir: %w", mkErr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, copyErr := io.Copy(tmp, r); copyErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write archive: %w", copyErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close archive: %w", closeErr)
	}
	if renameErr := os.Rename(tmpName, path); renameErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize archive: %w", renameErr)
	}
	return nil
}
