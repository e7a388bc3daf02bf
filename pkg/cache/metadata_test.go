package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/history-engine/pkg/kvstore"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

const storageKey = "test/metadata-cache"

func TestMetadataCache_AttributeRoundTrip(t *testing.T) {
	c := NewMetadataCache(kvstore.NewMemoryStore(), storageKey, zap.NewNop())

	_, ok := c.GetAttribute("account", "revenue")
	assert.False(t, ok)

	attr := models.AttributeMetadata{LogicalName: "revenue", DisplayName: "Annual Revenue"}
	c.SetAttribute("account", attr)

	got, ok := c.GetAttribute("account", "revenue")
	require.True(t, ok)
	assert.Equal(t, attr, got)
}

func TestMetadataCache_EntityAccessors(t *testing.T) {
	c := NewMetadataCache(kvstore.NewMemoryStore(), storageKey, zap.NewNop())

	_, ok := c.GetEntityDisplayName("account")
	assert.False(t, ok)
	_, ok = c.GetEntityPrimaryNameAttribute("account")
	assert.False(t, ok)

	c.SetEntityDisplayName("account", "Account")
	c.SetEntityPrimaryNameAttribute("account", "name")

	name, ok := c.GetEntityDisplayName("account")
	require.True(t, ok)
	assert.Equal(t, "Account", name)

	attr, ok := c.GetEntityPrimaryNameAttribute("account")
	require.True(t, ok)
	assert.Equal(t, "name", attr)
}

func TestMetadataCache_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	c := NewMetadataCache(store, storageKey, zap.NewNop())
	c.SetEntityDisplayName("account", "Account")
	c.SetAttribute("account", models.AttributeMetadata{LogicalName: "name", DisplayName: "Account Name"})
	c.Save(ctx)

	reloaded := NewMetadataCache(store, storageKey, zap.NewNop())
	reloaded.Load(ctx)

	name, ok := reloaded.GetEntityDisplayName("account")
	require.True(t, ok)
	assert.Equal(t, "Account", name)

	attr, ok := reloaded.GetAttribute("account", "name")
	require.True(t, ok)
	assert.Equal(t, "Account Name", attr.DisplayName)
}

// A version mismatch on load discards the whole cache: previously-cached
// keys resolve to nothing. Cold start, not an error.
func TestMetadataCache_VersionMismatchDiscards(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	stale, err := json.Marshal(map[string]any{
		"version": Version - 1,
		"entityMetadataMap": map[string]any{
			"account": map[string]any{"displayName": "Account"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storageKey, stale))

	c := NewMetadataCache(store, storageKey, zap.NewNop())
	c.Load(ctx)

	_, ok := c.GetEntityDisplayName("account")
	assert.False(t, ok)
}

func TestMetadataCache_CorruptBlobDiscarded(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storageKey, []byte("{not json")))

	c := NewMetadataCache(store, storageKey, zap.NewNop())
	c.Load(ctx)

	_, ok := c.GetEntityDisplayName("account")
	assert.False(t, ok)
}

// failingStore always errors; persistence failures must be swallowed.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("store unavailable")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("store unavailable") }
func (failingStore) Close() error                         { return nil }

func TestMetadataCache_PersistenceFailuresSwallowed(t *testing.T) {
	ctx := context.Background()
	c := NewMetadataCache(failingStore{}, storageKey, zap.NewNop())

	// Neither Load nor Save panics or surfaces the error.
	c.Load(ctx)
	c.SetEntityDisplayName("account", "Account")
	c.Save(ctx)

	name, ok := c.GetEntityDisplayName("account")
	require.True(t, ok)
	assert.Equal(t, "Account", name)
}

func TestDisplayNameCache(t *testing.T) {
	c := NewDisplayNameCache()

	_, ok := c.GetDisplayName("id-1")
	assert.False(t, ok)

	c.SetDisplayName("id-1", "Northwind")
	name, ok := c.GetDisplayName("id-1")
	require.True(t, ok)
	assert.Equal(t, "Northwind", name)
}
