package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/courserestore/internal/domain/model"
)

func zipArchive(t *testing.T, entries map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		if strings.HasSuffix(name, "/") {
			_, err := w.Create(name)
			require.NoError(t, err)
			continue
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return bytes.NewReader(buf.Bytes())
}

func TestExtract_UnpacksEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	archive := zipArchive(t, map[string]string{
		"moodle_backup.xml":            "<moodle_backup/>",
		"course/course.xml":            "<course/>",
		"activities/quiz_5/module.xml": "<module/>",
		"files/":                       "",
	})

	require.NoError(t, Extract(archive, dir))

	data, err := os.ReadFile(filepath.Join(dir, "moodle_backup.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<moodle_backup/>", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "activities", "quiz_5", "module.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<module/>", string(data))

	info, err := os.Stat(filepath.Join(dir, "files"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtract_RejectsTraversalEntry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	archive := zipArchive(t, map[string]string{
		"../outside.txt": "escape",
	})

	err := Extract(archive, dir)
	require.Error(t, err)

	var extractErr *model.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Contains(t, extractErr.Error(), "escapes extraction dir")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_RejectsAbsoluteEntry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	archive := zipArchive(t, map[string]string{
		"/etc/cron.d/evil": "boom",
	})

	err := Extract(archive, dir)
	require.Error(t, err)

	var extractErr *model.ExtractionError
	require.True(t, errors.As(err, &extractErr))
}

func TestExtract_RejectsNonZipStream(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	err := Extract(strings.NewReader("this is not a zip"), dir)
	require.Error(t, err)

	var extractErr *model.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, dir, extractErr.Dir)
}
