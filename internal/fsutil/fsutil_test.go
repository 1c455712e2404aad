package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicVisibleInOnePiece(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.job")
	require.NoError(t, WriteFileAtomic(path, []byte("hello")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no leftover temp file after a successful atomic write")
}

func TestWriteJSONAtomicAndReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.json")

	type limits struct {
		CoresTotal int `json:"cores_total"`
	}
	require.NoError(t, WriteJSONAtomic(path, limits{CoresTotal: 8}))

	var out limits
	ok, err := ReadJSON(path, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 8, out.CoresTotal)
}

func TestReadJSONMissingFile(t *testing.T) {
	var out struct{}
	ok, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveStaleTemp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0000000001.job"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0000000001.job.tmp-abcd"), []byte("y"), 0644))

	require.NoError(t, RemoveStaleTemp(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, strings.Contains(entries[0].Name(), ".tmp-"))
}

func TestEnsureDirAndIsDirExist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "queue")
	ok, err := IsDirExist(dir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, EnsureDir(dir))

	ok, err = IsDirExist(dir)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileExist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.False(t, FileExist(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.True(t, FileExist(path))
}
