// Package cache holds the two-tier display metadata caches: a versioned,
// persisted entity/attribute metadata cache and an ephemeral display-name
// cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/history-engine/pkg/kvstore"
	"github.com/ekaya-inc/history-engine/pkg/models"
)

// Version is the persisted blob format version. Bump it whenever the blob
// layout changes; a mismatch on load discards the cache and starts cold.
const Version = 2

// persistedBlob is the on-store representation of the cache.
type persistedBlob struct {
	Version  int                               `json:"version"`
	Entities map[string]*models.EntityMetadata `json:"entityMetadataMap"`
}

// MetadataCache caches entity and attribute display metadata across sessions.
// Correctness never depends on it: loads and saves are best-effort and a
// stale or missing cache only costs extra metadata fetches.
//
// The cache has a single writer (the enrichment orchestrator's cache-update
// phase); reads happen only after that phase completes, so no locking is
// needed.
type MetadataCache struct {
	store      kvstore.Store
	storageKey string
	logger     *zap.Logger

	entities map[string]*models.EntityMetadata
}

// NewMetadataCache creates an empty cache persisted under storageKey.
func NewMetadataCache(store kvstore.Store, storageKey string, logger *zap.Logger) *MetadataCache {
	return &MetadataCache{
		store:      store,
		storageKey: storageKey,
		logger:     logger.Named("metadata-cache"),
		entities:   make(map[string]*models.EntityMetadata),
	}
}

// Load restores the cache from the store. A missing blob, a corrupt blob or
// a version mismatch all start cold; none of them is an error.
func (c *MetadataCache) Load(ctx context.Context) {
	raw, err := c.store.Get(ctx, c.storageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return
	}
	if err != nil {
		c.logger.Warn("Failed to load metadata cache, starting cold", zap.Error(err))
		return
	}

	var blob persistedBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		c.logger.Warn("Discarding corrupt metadata cache", zap.Error(err))
		return
	}
	if blob.Version != Version {
		c.logger.Debug("Discarding metadata cache with stale version",
			zap.Int("found", blob.Version),
			zap.Int("want", Version))
		return
	}

	if blob.Entities != nil {
		c.entities = blob.Entities
	}
}

// Save persists the cache. Persistence failures are logged and swallowed.
func (c *MetadataCache) Save(ctx context.Context) {
	raw, err := json.Marshal(persistedBlob{Version: Version, Entities: c.entities})
	if err != nil {
		c.logger.Warn("Failed to marshal metadata cache", zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, c.storageKey, raw); err != nil {
		c.logger.Warn("Failed to persist metadata cache", zap.Error(err))
	}
}

// GetAttribute returns the cached metadata for one attribute of an entity
// type.
func (c *MetadataCache) GetAttribute(entityType, key string) (models.AttributeMetadata, bool) {
	entity, ok := c.entities[entityType]
	if !ok {
		return models.AttributeMetadata{}, false
	}
	attr, ok := entity.Attributes[key]
	return attr, ok
}

// SetAttribute caches metadata for one attribute of an entity type.
func (c *MetadataCache) SetAttribute(entityType string, attr models.AttributeMetadata) {
	entity := c.ensureEntity(entityType)
	entity.Attributes[attr.LogicalName] = attr
}

// GetEntityDisplayName returns the cached display name of an entity type.
func (c *MetadataCache) GetEntityDisplayName(entityType string) (string, bool) {
	entity, ok := c.entities[entityType]
	if !ok || entity.DisplayName == "" {
		return "", false
	}
	return entity.DisplayName, true
}

// SetEntityDisplayName caches the display name of an entity type.
func (c *MetadataCache) SetEntityDisplayName(entityType, displayName string) {
	c.ensureEntity(entityType).DisplayName = displayName
}

// GetEntityPrimaryNameAttribute returns the cached primary-name attribute of
// an entity type.
func (c *MetadataCache) GetEntityPrimaryNameAttribute(entityType string) (string, bool) {
	entity, ok := c.entities[entityType]
	if !ok || entity.PrimaryNameAttribute == "" {
		return "", false
	}
	return entity.PrimaryNameAttribute, true
}

// SetEntityPrimaryNameAttribute caches the primary-name attribute of an
// entity type.
func (c *MetadataCache) SetEntityPrimaryNameAttribute(entityType, attribute string) {
	c.ensureEntity(entityType).PrimaryNameAttribute = attribute
}

func (c *MetadataCache) ensureEntity(entityType string) *models.EntityMetadata {
	entity, ok := c.entities[entityType]
	if !ok {
		entity = &models.EntityMetadata{Attributes: make(map[string]models.AttributeMetadata)}
		c.entities[entityType] = entity
	}
	if entity.Attributes == nil {
		entity.Attributes = make(map[string]models.AttributeMetadata)
	}
	return entity
}
