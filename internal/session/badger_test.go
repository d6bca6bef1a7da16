package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pansobot/internal/domain"
)

// setupTestStore creates an in-memory store for testing.
func setupTestStore(t *testing.T, ttl time.Duration) *BadgerStore {
	t.Helper()

	testLogger := logrus.New()
	testLogger.SetOutput(os.Stderr)
	testLogger.SetLevel(logrus.ErrorLevel)

	store, err := NewBadgerStore(ttl, testLogger)
	require.NoError(t, err, "Failed to create test session store")

	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close test session store")
	})

	return store
}

func sampleSession(keyword string, counts map[string]int) domain.Session {
	byType := make(map[string][]domain.Resource)
	total := 0
	for resourceType, n := range counts {
		for i := 0; i < n; i++ {
			byType[resourceType] = append(byType[resourceType], domain.Resource{
				Note:   keyword,
				URL:    "https://example.com/share",
				Source: "tg:channel",
			})
		}
		total += n
	}
	return domain.Session{Keyword: keyword, ResultsByType: byType, Total: total}
}

func TestBadgerStore_PutAndGetSession(t *testing.T) {
	store := setupTestStore(t, 0)
	ctx := context.Background()
	userID := int64(123)

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound, "Expected ErrNotFound before any Put")

	first := sampleSession("ironman", map[string]int{"magnet": 4, "baidu": 3})
	require.NoError(t, store.Put(ctx, userID, first))

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ironman", got.Keyword)
	assert.Equal(t, 7, got.Total)
	assert.Len(t, got.ResultsByType["magnet"], 4)
	assert.Len(t, got.ResultsByType["baidu"], 3)

	// A new search overwrites the previous session entirely.
	second := sampleSession("batman", map[string]int{"quark": 2})
	require.NoError(t, store.Put(ctx, userID, second))

	got, err = store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "batman", got.Keyword)
	assert.Equal(t, 2, got.Total)
	assert.Empty(t, got.ResultsByType["magnet"], "Old session types must not leak into the new session")

	// Sessions are isolated per user.
	_, err = store.Get(ctx, int64(999))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_RevealEntries(t *testing.T) {
	store := setupTestStore(t, 0)
	ctx := context.Background()
	userID := int64(42)

	_, err := store.GetReveal(ctx, userID, "copy_42_0_1")
	assert.ErrorIs(t, err, ErrNotFound)

	magnet := "magnet:?xt=urn:btih:deadbeef"
	require.NoError(t, store.PutReveal(ctx, userID, "copy_42_0_1", magnet))

	url, err := store.GetReveal(ctx, userID, "copy_42_0_1")
	require.NoError(t, err)
	assert.Equal(t, magnet, url)

	// Re-rendering a page writes the same key again; last write wins.
	require.NoError(t, store.PutReveal(ctx, userID, "copy_42_0_1", magnet))
	url, err = store.GetReveal(ctx, userID, "copy_42_0_1")
	require.NoError(t, err)
	assert.Equal(t, magnet, url)

	// Keys are scoped to their user.
	_, err = store.GetReveal(ctx, int64(43), "copy_42_0_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_QuickType(t *testing.T) {
	store := setupTestStore(t, 0)
	ctx := context.Background()
	userID := int64(7)

	_, err := store.TakeQuickType(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound, "No pending type before PutQuickType")

	require.NoError(t, store.PutQuickType(ctx, userID, "baidu"))

	resourceType, err := store.TakeQuickType(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "baidu", resourceType)

	// Take consumes the pending type; the next search is unscoped again.
	_, err = store.TakeQuickType(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Choosing a provider twice keeps only the last choice.
	require.NoError(t, store.PutQuickType(ctx, userID, "baidu"))
	require.NoError(t, store.PutQuickType(ctx, userID, "magnet"))
	resourceType, err = store.TakeQuickType(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "magnet", resourceType)
}

func TestBadgerStore_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping TTL expiry test in short mode")
	}

	store := setupTestStore(t, time.Second)
	ctx := context.Background()
	userID := int64(55)

	require.NoError(t, store.Put(ctx, userID, sampleSession("ttl", map[string]int{"magnet": 1})))
	require.NoError(t, store.PutReveal(ctx, userID, "copy_55_0_1", "magnet:?xt=urn:btih:cafe"))

	// Badger TTLs have one-second granularity.
	time.Sleep(2100 * time.Millisecond)

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound, "Session should expire after its TTL")
	_, err = store.GetReveal(ctx, userID, "copy_55_0_1")
	assert.ErrorIs(t, err, ErrNotFound, "Reveal entries should expire after the TTL")
}
