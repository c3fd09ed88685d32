package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizbd/quizbd-go/internal/storage"
)

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f, err := storage.OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Set("auth", []byte(`{"token":"t1"}`)))
	require.NoError(t, f.Set("activeClass", []byte(`7`)))

	// A fresh open must see everything the first instance persisted.
	f2, err := storage.OpenFile(path)
	require.NoError(t, err)

	v, ok := f2.Get("auth")
	require.True(t, ok)
	require.JSONEq(t, `{"token":"t1"}`, string(v))

	v, ok = f2.Get("activeClass")
	require.True(t, ok)
	require.Equal(t, "7", string(v))
}

func TestFile_DeleteIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f, err := storage.OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Set("auth", []byte(`"x"`)))
	require.NoError(t, f.Delete("auth"))
	require.NoError(t, f.Delete("auth"), "deleting a missing key is a no-op")

	f2, err := storage.OpenFile(path)
	require.NoError(t, err)

	_, ok := f2.Get("auth")
	require.False(t, ok)
}

func TestFile_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	f, err := storage.OpenFile(path)
	require.NoError(t, err, "corrupt state must not fail startup")

	_, ok := f.Get("auth")
	require.False(t, ok)
}
