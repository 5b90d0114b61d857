package mirror

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCopyTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "parquet")
	dst := filepath.Join(t.TempDir(), "public", "parquet")
	write(t, filepath.Join(src, "station_meta.json"), "{}")
	write(t, filepath.Join(src, "raw", "a.parquet"), "raw")
	write(t, filepath.Join(src, "raw", "b.parquet.partial"), "half")
	write(t, filepath.Join(src, "daily", "a_daily.parquet"), "daily")

	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := os.ReadFile(filepath.Join(dst, "raw", "a.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(got))
	assert.FileExists(t, filepath.Join(dst, "daily", "a_daily.parquet"))
	assert.NoFileExists(t, filepath.Join(dst, "raw", "b.parquet.partial"))
}

func TestCopyTree_MissingSource(t *testing.T) {
	_, err := CopyTree(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	assert.Error(t, err)
}

func TestCopyFile_OverwritesAndKeepsModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.parquet")
	dst := filepath.Join(dir, "out", "dst.parquet")
	write(t, src, "new")
	write(t, dst, "old content")

	mtime := time.Date(2025, 12, 27, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, mtime.Equal(info.ModTime()))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
