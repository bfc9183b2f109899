package fileops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	content := []byte("some bytes worth keeping")
	require.NoError(t, os.WriteFile(src, content, 0644))

	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
}

func TestTempOutputPath(t *testing.T) {
	assert.Equal(t, "/home/u/photo.morphtmp.png", TempOutputPath("/home/u/photo.!png", "png"))
	assert.Equal(t, "/home/u/a.2024.morphtmp.pdf", TempOutputPath("/home/u/a.2024.!!pdf", "pdf"))
}

func TestIsTempPath(t *testing.T) {
	assert.True(t, IsTempPath("/home/u/photo.morphtmp.png"))
	assert.True(t, IsTempPath(TempDirPath("/home/u/album")))
	assert.False(t, IsTempPath("/home/u/photo.png"))
	assert.False(t, IsTempPath("/home/morphtmp-user/photo.png"))
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, "out.morphtmp.png")
	final := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(tmp, []byte("image"), 0644))

	require.NoError(t, ReplaceFile(tmp, final))

	assert.NoFileExists(t, tmp)
	assert.FileExists(t, final)
}

func TestCaptureAndApplyOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0640))

	owner, err := CaptureOwner(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getuid(), owner.UID)
	assert.Equal(t, os.FileMode(0640), owner.Mode)

	// Applying to a fresh file with our own uid/gid must succeed
	// unprivileged.
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("y"), 0600))
	require.NoError(t, owner.Apply(other))

	info, err := os.Stat(other)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestSweepStaleTemps(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "a.morphtmp.png")
	fresh := filepath.Join(dir, "b.morphtmp.png")
	normal := filepath.Join(dir, "keep.png")
	staleDir := TempDirPath(filepath.Join(dir, "album"))

	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(normal, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(staleDir, 0755))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(staleDir, old, old))

	removed := SweepStaleTemps(dir, 15*time.Minute)

	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, normal)
	assert.NoDirExists(t, staleDir)
}
