package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveReadList(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("a.yaml", []byte("primaire: []"))
	require.NoError(t, err)
	_, err = store.Save("nested/b.yaml", []byte("secondaire: []"))
	require.NoError(t, err)

	data, err := store.Read("a.yaml")
	require.NoError(t, err)
	assert.Equal(t, "primaire: []", string(data))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.yaml", filepath.Join("nested", "b.yaml")}, names)
}

func TestLocalStorageResolveStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etc", "passwd"), store.Path("../../etc/passwd"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.yaml", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("new.yaml", []byte("y"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.yaml"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.yaml"}, deleted)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"new.yaml"}, names)
}
