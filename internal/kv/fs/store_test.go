package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "kv"), nil)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "note:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "note:1", `{"id":"1"}`))
	v, ok, err := s.Get(ctx, "note:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, v)

	info, err := os.Stat(filepath.Join(s.Dir(), fileName("note:1")))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Delete(ctx, "note:1"))
	require.NoError(t, s.Delete(ctx, "note:1"))
	_, ok, _ = s.Get(ctx, "note:1")
	assert.False(t, ok)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o600))
	_, err = Open(bad, nil)
	assert.Error(t, err)
}

func TestKeyFromFile(t *testing.T) {
	k, ok := keyFromFile("/tmp/x/" + fileName("categories:list"))
	assert.True(t, ok)
	assert.Equal(t, "categories:list", k)

	_, ok = keyFromFile(".tmp-12345")
	assert.False(t, ok)
	_, ok = keyFromFile("!!!.kv")
	assert.False(t, ok)
}

func TestWatch_EmitsChangedKeys(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "note:42", "{}"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case k := <-ch:
			if k == "note:42" {
				return
			}
		case <-deadline:
			t.Fatalf("no watch event for note:42")
		}
	}
}
