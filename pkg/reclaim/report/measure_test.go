package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.bin"), make([]byte, 250), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "deep", "c.bin"), make([]byte, 50), 0o644))

	stats, err := MeasureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stats.Size)
	assert.WithinDuration(t, time.Now(), stats.NewestMtime, time.Minute)
}

func TestMeasureDirNewestMtime(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old")
	newFile := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("y"), 0o644))

	past := time.Now().Add(-90 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))
	require.NoError(t, os.Chtimes(newFile, recent, recent))

	stats, err := MeasureDir(dir)
	require.NoError(t, err)
	assert.WithinDuration(t, recent, stats.NewestMtime, time.Second)
}

func TestMeasureDirEmpty(t *testing.T) {
	stats, err := MeasureDir(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, stats.Size)
	assert.True(t, stats.NewestMtime.IsZero(), "no files means no establishable mtime")
}

func TestMeasureDirSymlinksContributeNothing(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "target")
	require.NoError(t, os.WriteFile(target, make([]byte, 5000), 0o644))

	if err := os.Symlink(target, filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real"), make([]byte, 10), 0o644))

	stats, err := MeasureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Size, "link target size must not be counted")
}

func TestMeasureDirOnSymlinkRoot(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "f"), make([]byte, 100), 0o644))

	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	stats, err := MeasureDir(link)
	require.NoError(t, err)
	assert.Zero(t, stats.Size)
}

func TestMeasureDirOnRegularFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, make([]byte, 42), 0o644))

	stats, err := MeasureDir(file)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.Size)
}

func TestMeasureDirMissing(t *testing.T) {
	_, err := MeasureDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
