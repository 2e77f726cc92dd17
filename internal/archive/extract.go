package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/campuskit/courserestore/internal/domain/model"
)

// Extract unpacks a zip archive stream into dir. The stream is spooled to a
// temporary file first since zip needs random access. Entries that would
// escape dir are rejected.
func Extract(r io.Reader, dir string) error {
	tmp, err := os.CreateTemp("", "courserestore-*.zip")
	if err != nil {
		return &model.ExtractionError{Dir: dir, Err: fmt.Errorf("spool archive: %w", err)}
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return &model.ExtractionError{Dir: dir, Err: fmt.Errorf("spool archive: %w", err)}
	}

	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return &model.ExtractionError{Dir: dir, Err: fmt.Errorf("open archive: %w", err)}
	}

	for _, f := range zr.File {
		if extractErr := extractEntry(f, dir); extractErr != nil {
			return &model.ExtractionError{Dir: dir, Err: extractErr}
		}
	}
	return nil
}

func extractEntry(f *zip.File, dir string) error {
	cleaned := filepath.Clean(filepath.FromSlash(f.Name))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("entry %q escapes extraction dir", f.Name)
	}
	target := filepath.Join(dir, cleaned)

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("create dir %s: %w", cleaned, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", cleaned, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", cleaned, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create file %s: %w", cleaned, err)
	}

	if _, copyErr := io.Copy(dst, src); copyErr != nil {
		_ = dst.Close()
		return fmt.Errorf("write file %s: %w", cleaned, copyErr)
	}
	if closeErr := dst.Close(); closeErr != nil {
		return fmt.Errorf("close file %s: %w", cleaned, closeErr)
	}
	return nil
}
