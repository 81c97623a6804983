package envstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	vars, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, vars)

	changed, err := store.Put(ctx, "u1", map[string]string{"API_KEY": "secret", "MODE": "prod"})
	require.NoError(t, err)
	require.True(t, changed)

	// identical map is a no-op
	changed, err = store.Put(ctx, "u1", map[string]string{"MODE": "prod", "API_KEY": "secret"})
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = store.Put(ctx, "u1", map[string]string{"API_KEY": "rotated"})
	require.NoError(t, err)
	require.True(t, changed)

	vars, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"API_KEY": "rotated"}, vars)

	// tenants are independent
	vars, err = store.Get(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, vars)

	require.NoError(t, store.Delete(ctx, "u1"))
	vars, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, vars)

	// deleting an absent tenant is fine
	require.NoError(t, store.Delete(ctx, "never-stored"))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFile(dir)
	require.NoError(t, err)
	_, err = store.Put(ctx, "u1", map[string]string{"A": "1"})
	require.NoError(t, err)

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	vars, err := reopened.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"A": "1"}, vars)
}

func TestFileStoreEscapesTenantIDs(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// a hostile id must not escape the store directory
	_, err = store.Put(ctx, "../outside", map[string]string{"A": "1"})
	require.NoError(t, err)

	vars, err := store.Get(ctx, "../outside")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"A": "1"}, vars)
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	_, err := store.Put(ctx, "u1", map[string]string{"A": "1"})
	require.NoError(t, err)

	vars, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	vars["A"] = "mutated"

	again, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "1", again["A"])
}
