package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := &SessionStore{Path: filepath.Join(dir, "session.json")}

	// Empty store
	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)

	sess := Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		IssuedAt:     time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Save(sess))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "access-token", loaded.AccessToken)
	assert.Equal(t, "refresh-token", loaded.RefreshToken)
	assert.True(t, loaded.ExpiresAt.Equal(sess.ExpiresAt))
}

func TestSessionStore_SaveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	store := &SessionStore{Path: filepath.Join(dir, "session.json")}

	require.NoError(t, store.Save(Session{AccessToken: "first"}))
	require.NoError(t, store.Save(Session{AccessToken: "second"}))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", loaded.AccessToken)
}

func TestSessionStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session.json")
	store := &SessionStore{Path: path}

	require.NoError(t, store.Save(Session{AccessToken: "secret"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestSessionStore_Clear(t *testing.T) {
	dir := t.TempDir()
	store := &SessionStore{Path: filepath.Join(dir, "session.json")}

	require.NoError(t, store.Save(Session{AccessToken: "tok"}))
	require.NoError(t, store.Clear())

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)

	// Clearing an absent session is not an error
	require.NoError(t, store.Clear())
}

func TestSessionStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := &SessionStore{Path: path}
	_, _, err := store.Load()
	assert.Error(t, err)
}

func TestSessionStore_EmptyTokenIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token": ""}`), 0o600))

	store := &SessionStore{Path: path}
	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}
