package secrets

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authvault/internal/common"
	"authvault/internal/locks"
	"authvault/internal/logging"
	"authvault/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.RecordStore) {
	t.Helper()
	records := store.NewRecordStore(store.NewMemoryKV(), locks.NewRegistry(), "test")
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(records, logger), records
}

func createUser(t *testing.T, records *store.RecordStore) *store.UserRecord {
	t.Helper()
	rec, err := records.Create(context.Background(), "hash", store.RoleUser)
	require.NoError(t, err)
	return rec
}

func TestAddReveal_RoundTrip(t *testing.T) {
	svc, records := newTestService(t)
	rec := createUser(t, records)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rec.ID, "openai", "sk-live-123", "pass", 0))

	got, err := svc.Reveal(ctx, rec.ID, "openai", "pass")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", got)
}

func TestReveal_WrongPassphrase(t *testing.T) {
	svc, records := newTestService(t)
	rec := createUser(t, records)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rec.ID, "openai", "sk-live-123", "pass", 0))

	_, err := svc.Reveal(ctx, rec.ID, "openai", "wrong")
	assert.ErrorIs(t, err, common.ErrIntegrity)

	// A failed reveal does not consume usage.
	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Secrets, 1)
	assert.Zero(t, got.Secrets[0].UsageCounter)
}

func TestReveal_UsageLimit(t *testing.T) {
	svc, records := newTestService(t)
	rec := createUser(t, records)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rec.ID, "stripe", "sk_test", "pass", 2))

	for i := 0; i < 2; i++ {
		_, err := svc.Reveal(ctx, rec.ID, "stripe", "pass")
		require.NoError(t, err, "reveal %d", i+1)
	}

	_, err := svc.Reveal(ctx, rec.ID, "stripe", "pass")
	assert.ErrorIs(t, err, common.ErrUsageLimit)
}

func TestAdd_ReplacesProviderEntry(t *testing.T) {
	svc, records := newTestService(t)
	rec := createUser(t, records)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rec.ID, "openai", "old-key", "pass", 0))
	require.NoError(t, svc.Add(ctx, rec.ID, "openai", "new-key", "pass", 0))

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.Secrets, 1)

	plain, err := svc.Reveal(ctx, rec.ID, "openai", "pass")
	require.NoError(t, err)
	assert.Equal(t, "new-key", plain)
}

func TestRemove(t *testing.T) {
	svc, records := newTestService(t)
	rec := createUser(t, records)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rec.ID, "openai", "k1", "pass", 0))
	require.NoError(t, svc.Add(ctx, rec.ID, "stripe", "k2", "pass", 0))

	require.NoError(t, svc.Remove(ctx, rec.ID, "openai"))

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Secrets, 1)
	assert.Equal(t, "stripe", got.Secrets[0].ProviderID)

	// absent entry is a no-op
	require.NoError(t, svc.Remove(ctx, rec.ID, "openai"))
}

func TestSecrets_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Add(ctx, "550e8400-e29b-41d4-a716-446655440000", "p", "s", "pass", 0)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = svc.Add(ctx, "not-a-uuid", "p", "s", "pass", 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}
