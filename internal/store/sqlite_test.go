package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authvault/internal/common"
	"authvault/internal/locks"

	_ "modernc.org/sqlite"
)

func setupSQLiteKV(t *testing.T) *SQLiteKV {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteKV(db)
}

func TestSQLiteKV_SetGetDelete(t *testing.T) {
	kv := setupSQLiteKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// upsert replaces
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))
	got, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// deleting an absent key is fine
	require.NoError(t, kv.Delete(ctx, "k"))
}

func TestSQLiteKV_RecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	s := NewRecordStore(NewSQLiteKV(db), locks.NewRegistry(), "authvault")
	rec, err := s.Create(ctx, "hash-on-disk", RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopen the same file: a fresh process would see identical fields.
	db2, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	s2 := NewRecordStore(NewSQLiteKV(db2), locks.NewRegistry(), "authvault")
	got, err := s2.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.TokenHash, got.TokenHash)
	assert.Equal(t, rec.Role, got.Role)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	all, err := s2.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
