package kv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "devent.json"), s.Path())

	_, ok, err := s.Get(KeyFavorites)
	require.NoError(t, err)
	assert.False(t, ok, "missing file is an empty namespace")

	require.NoError(t, s.Set(KeyFavorites, "[1,2]"))
	require.NoError(t, s.Set(KeyEvents, "[]"))

	reopened, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	v, ok, err := reopened.Get(KeyFavorites)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1,2]", v)

	require.NoError(t, reopened.Remove(KeyFavorites))
	_, ok, _ = s.Get(KeyFavorites)
	assert.False(t, ok)
}

func TestFileStore_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	_, err := NewFileStore(dir, "test", 0)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStore_CorruptNamespace(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	_, _, err = s.Get(KeyEvents)
	assert.Error(t, err)
	assert.Error(t, s.Set(KeyEvents, "[]"), "write must not clobber an unreadable namespace")
}

func TestFileStore_Quota(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "", 64)
	require.NoError(t, err)

	err = s.Set(KeyEvents, strings.Repeat("x", 100))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, ok, err := s.Get(KeyEvents)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Changed(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "", 0)
	require.NoError(t, err)

	changed, err := s.Changed()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, s.Set(KeyEvents, "[]"))
	changed, err = s.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "own writes are not external changes")

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(s.Path(), future, future))

	changed, err = s.Changed()
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = s.Get(KeyEvents)
	require.NoError(t, err)
	changed, _ = s.Changed()
	assert.False(t, changed, "reading acknowledges the change")
}

func TestFileStore_ChangedSeenByFreshStore(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	require.NoError(t, writer.Set(KeyEvents, "[]"))

	unchanged, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	changed, err := unchanged.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "a FileStore write is not an external change")

	require.NoError(t, os.WriteFile(writer.Path(), []byte(`{"devent_events":"[{\"id\":1}]"}`), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(writer.Path(), future, future))

	fresh, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	changed, err = fresh.Changed()
	require.NoError(t, err)
	assert.True(t, changed, "edit made outside a FileStore")

	require.NoError(t, fresh.Set(KeyFavorites, "[]"))
	again, err := NewFileStore(dir, "", 0)
	require.NoError(t, err)
	changed, err = again.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "the next write records a new marker")
}
