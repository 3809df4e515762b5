package aliases

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "aliases.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))

	primary, ok := store.Lookup("TJ'S #552")
	assert.True(t, ok)
	assert.Equal(t, "Trader Joe's", primary)
}

func TestLookupCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Add(context.Background(), "TJ'S #552", "Trader Joe's"))

	primary, ok := store.Lookup("tj's #552")
	assert.True(t, ok)
	assert.Equal(t, "Trader Joe's", primary)
}

func TestLookupExactOnly(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Add(context.Background(), "TJ'S #552", "Trader Joe's"))

	// Near misses never resolve; equivalence is explicit or nothing.
	_, ok := store.Lookup("TJ'S #553")
	assert.False(t, ok)

	_, ok = store.Lookup("")
	assert.False(t, ok)
}

func TestAddUpdatesExistingAlias(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))
	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joes Inc"))

	primary, ok := store.Lookup("TJ'S #552")
	assert.True(t, ok)
	assert.Equal(t, "Trader Joes Inc", primary)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddRejectsEmpty(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Add(context.Background(), "", "Trader Joe's"))
	assert.Error(t, store.Add(context.Background(), "TJ'S", "  "))
}

func TestLookupBumpsUsageCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))

	store.Lookup("TJ'S #552")
	store.Lookup("TJ'S #552")

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].UsageCount)
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "WF MKT #10", "Whole Foods"))
	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))
	require.NoError(t, store.Add(ctx, "TJS POS", "Trader Joe's"))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by primary name, then alias.
	assert.Equal(t, "Trader Joe's", all[0].PrimaryName)
	assert.Equal(t, "TJ'S #552", all[0].Name)
	assert.Equal(t, "TJS POS", all[1].Name)
	assert.Equal(t, "Whole Foods", all[2].PrimaryName)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))

	require.NoError(t, store.Delete(ctx, "TJ'S #552"))
	_, ok := store.Lookup("TJ'S #552")
	assert.False(t, ok)

	assert.Error(t, store.Delete(ctx, "TJ'S #552"), "deleting an unknown alias should fail")
}

func TestFindSimilar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "TJ'S #552", "Trader Joe's"))
	require.NoError(t, store.Add(ctx, "WF MKT #10", "Whole Foods"))

	matches, err := store.FindSimilar(ctx, "trader joes", 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Trader Joe's", matches[0].Alias.PrimaryName)

	matches, err = store.FindSimilar(ctx, "zzzzzzzz", 0.5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
