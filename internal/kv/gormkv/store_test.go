package gormkv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestStore инициализирует in-memory SQLite (modernc.org/sqlite) для тестов.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(dsn)
	require.NoError(t, err, "failed to open sqlite (modernc)")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDialector_ByDSN(t *testing.T) {
	assert.Equal(t, "postgres", Dialector("postgres://u:p@localhost:5432/notes").Name())
	assert.Equal(t, "postgres", Dialector("postgresql://localhost/notes").Name())
	assert.Equal(t, "sqlite", Dialector("file:notes.db").Name())
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestStore_GetSetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "categories:list")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "categories:list", `[]`))
	require.NoError(t, s.Set(ctx, "categories:list", `["c1"]`))

	v, ok, err := s.Get(ctx, "categories:list")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["c1"]`, v)

	var cnt int64
	require.NoError(t, s.db.Model(&Entry{}).Count(&cnt).Error)
	assert.Equal(t, int64(1), cnt, "upsert must not duplicate rows")

	require.NoError(t, s.Delete(ctx, "categories:list"))
	require.NoError(t, s.Delete(ctx, "categories:list"))
	_, ok, err = s.Get(ctx, "categories:list")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_WithExistingDB(t *testing.T) {
	db, err := gorm.Open(Dialector(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, db.Migrator().HasTable(&Entry{}))
}
