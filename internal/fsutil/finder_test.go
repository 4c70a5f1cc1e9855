package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.hcl"))
	touch(t, filepath.Join(dir, "nested", "a.HCL"))
	touch(t, filepath.Join(dir, "nested", "jobs.yaml"))
	touch(t, filepath.Join(dir, "README.md"))

	files, err := FindFilesByExtension([]string{dir, filepath.Join(dir, "b.hcl")}, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.hcl"),
		filepath.Join(dir, "nested", "a.HCL"),
	}, files)

	files, err = FindFilesByExtension([]string{dir}, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "nested", "jobs.yaml")}, files)

	_, err = FindFilesByExtension([]string{filepath.Join(dir, "missing")}, ".hcl")
	require.Error(t, err)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"*TUMBLE*", "*FT*"}, []string{"*_old"})
	require.NoError(t, err)

	assert.True(t, m.Match("unet_TUMBLE_0.5"))
	assert.True(t, m.Match("unet_FT_munich"))
	assert.False(t, m.Match("unet_FT_munich_old"))
	assert.False(t, m.Match("unet_plain"))

	all, err := NewMatcher(nil, nil)
	require.NoError(t, err)
	assert.True(t, all.Match("anything"))
}

func TestMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "log.txt"))
	touch(t, filepath.Join(dir, "a.txt"))
	touch(t, filepath.Join(dir, "stdout.out"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.txt"), 0o755))

	files, err := MatchingFiles(dir, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "log.txt")}, files)
}

func TestMatchingFiles_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "shared", "log.txt")
	touch(t, target)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "log.txt")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "dangling.txt")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "subdir"), filepath.Join(dir, "linkdir.txt")))

	files, err := MatchingFiles(dir, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "log.txt")}, files)
}
