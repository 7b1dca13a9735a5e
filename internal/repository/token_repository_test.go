package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestFileTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poulin", "credentials.json")
	store := NewFileTokenStore(path, testLogger())

	_, ok := store.Get()
	require.False(t, ok)

	pair := models.TokenPair{Access: "acc-1", Refresh: "ref-1"}
	require.NoError(t, store.Set(pair))

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, pair, got)

	// A second store over the same path sees the pair, like a new
	// browser tab reading localStorage.
	reopened := NewFileTokenStore(path, testLogger())
	got, ok = reopened.Get()
	require.True(t, ok)
	require.Equal(t, pair, got)
}

func TestFileTokenStore_FixedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileTokenStore(path, testLogger())
	require.NoError(t, store.Set(models.TokenPair{Access: "a", Refresh: "r"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"a","refresh_token":"r"}`, string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenStore_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileTokenStore(path, testLogger())

	require.NoError(t, store.Set(models.TokenPair{Access: "old", Refresh: "old"}))
	require.NoError(t, store.Set(models.TokenPair{Access: "new", Refresh: "new"}))

	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "new", got.Access)
}

func TestFileTokenStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store := NewFileTokenStore(path, testLogger())
	_, ok := store.Get()
	require.False(t, ok)
}

func TestFileTokenStore_ClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileTokenStore(path, testLogger())

	require.NoError(t, store.Set(models.TokenPair{Access: "a", Refresh: "r"}))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, ok := store.Get()
	require.False(t, ok)
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()

	_, ok := store.Get()
	require.False(t, ok)

	require.NoError(t, store.Set(models.TokenPair{Access: "a"}))
	got, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "a", got.Access)

	require.NoError(t, store.Clear())
	_, ok = store.Get()
	require.False(t, ok)
}
