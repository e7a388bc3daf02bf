package schema

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/history-engine/pkg/models"
)

// StaticMetadataSource serves entity metadata from a loaded schema map. It
// satisfies the enrichment orchestrator's metadata-fetch contract, so hosts
// can run the pipeline without a live metadata endpoint.
type StaticMetadataSource struct {
	m *Map
}

// NewStaticMetadataSource wraps a loaded schema map.
func NewStaticMetadataSource(m *Map) *StaticMetadataSource {
	return &StaticMetadataSource{m: m}
}

// FetchEntityMetadata returns the static metadata for entityType, restricted
// to the requested attribute keys. Attributes absent from the map fall back
// to their raw key as the display label.
func (s *StaticMetadataSource) FetchEntityMetadata(_ context.Context, entityType string, attributes []string) (*models.EntityMetadata, error) {
	entity, ok := s.m.Entities[entityType]
	if !ok {
		return nil, fmt.Errorf("entity type %q not in schema map", entityType)
	}

	displayName := entity.DisplayName
	if displayName == "" {
		displayName = DeriveDisplayName(entityType)
	}

	meta := &models.EntityMetadata{
		DisplayName:          displayName,
		PrimaryNameAttribute: entity.PrimaryNameField,
		Attributes:           make(map[string]models.AttributeMetadata, len(attributes)),
	}

	for _, key := range attributes {
		label, ok := entity.Attributes[key]
		if !ok {
			label = key
		}
		meta.Attributes[key] = models.AttributeMetadata{LogicalName: key, DisplayName: label}
	}

	return meta, nil
}
