package fingerprint_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amit-devb/zetten/internal/fingerprint"
	"github.com/stretchr/testify/require"
)

func TestCompute_Deterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world"), 0o644))

	h1, err := fingerprint.Compute([]string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	h2, err := fingerprint.Compute([]string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestCompute_ContentChangeChangesHash(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))
	h1, err := fingerprint.Compute([]string{p})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte("goodbye"), 0o644))
	h2, err := fingerprint.Compute([]string{p})
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}

func TestCompute_MtimeOnlyDoesNotChangeHash(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))
	h1, err := fingerprint.Compute([]string{p})
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(p, future, future))

	h2, err := fingerprint.Compute([]string{p})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestCompute_RenameChangesHash(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("same content"), 0o644))

	hOld, err := fingerprint.Compute([]string{oldPath})
	require.NoError(t, err)

	require.NoError(t, os.Rename(oldPath, newPath))
	hNew, err := fingerprint.Compute([]string{newPath})
	require.NoError(t, err)

	require.NotEqual(t, hOld, hNew)
}

func TestCompute_MissingPathContributesNothing(t *testing.T) {
	dir := t.TempDir()
	h1, err := fingerprint.Compute([]string{filepath.Join(dir, "does-not-exist.txt")})
	require.NoError(t, err)
	h2, err := fingerprint.Compute(nil)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestCompute_DirectoryRecursesSorted(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), []byte("2"), 0o644))

	h1, err := fingerprint.Compute([]string{dir})
	require.NoError(t, err)
	require.NotEmpty(t, h1)
}
