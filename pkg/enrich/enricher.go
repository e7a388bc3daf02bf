// Package enrich substitutes human-readable labels into parsed audit items.
package enrich

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/cache"
	"github.com/ekaya-inc/history-engine/pkg/models"
	"github.com/ekaya-inc/history-engine/pkg/schema"
)

// MetadataFetcher fetches display metadata for one entity type, restricted
// to the requested attribute keys.
type MetadataFetcher interface {
	FetchEntityMetadata(ctx context.Context, entityType string, attributes []string) (*models.EntityMetadata, error)
}

// RecordFetcher bulk-fetches records of one type by id, selecting a single
// attribute, and returns id -> attribute value.
type RecordFetcher interface {
	FetchRecords(ctx context.Context, entityType string, ids []string, attribute string) (map[string]string, error)
}

// Enricher drives the enrichment pass: gap analysis, batched metadata fetch,
// cache update, target display-name resolution and final projection.
//
// Phases run strictly in order because later phases read cache state written
// by earlier ones; requests within a phase run concurrently, one per distinct
// entity type. Any fetch failure fails the whole pass with nothing applied.
type Enricher struct {
	metadata      MetadataFetcher
	records       RecordFetcher
	metaCache     *cache.MetadataCache
	names         *cache.DisplayNameCache
	maxConcurrent int
	logger        *zap.Logger
}

// NewEnricher creates an Enricher. maxConcurrent bounds in-flight requests
// within a phase; zero or negative means unbounded.
func NewEnricher(
	metadata MetadataFetcher,
	records RecordFetcher,
	metaCache *cache.MetadataCache,
	names *cache.DisplayNameCache,
	maxConcurrent int,
	logger *zap.Logger,
) *Enricher {
	return &Enricher{
		metadata:      metadata,
		records:       records,
		metaCache:     metaCache,
		names:         names,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("enricher"),
	}
}

// Enrich resolves display labels for the given items and projects them into
// display-ready rows. Items are never mutated.
func (e *Enricher) Enrich(ctx context.Context, items []*models.AuditDetailItem) ([]*models.HistoryRow, error) {
	gaps := e.analyzeGaps(items)

	if err := e.fetchMetadata(ctx, gaps); err != nil {
		return nil, err
	}

	if err := e.resolveTargetNames(ctx, items); err != nil {
		return nil, err
	}

	return e.project(items), nil
}

// metadataGap is the per-entity-type result of gap analysis: attribute keys
// missing from the metadata cache, plus whether the type's own display name
// or primary-name attribute is unknown.
type metadataGap struct {
	attributes map[string]struct{}
	needInfo   bool
}

// analyzeGaps scans all items for metadata the cache cannot yet serve.
func (e *Enricher) analyzeGaps(items []*models.AuditDetailItem) map[string]*metadataGap {
	gaps := make(map[string]*metadataGap)
	ensure := func(entityType string) *metadataGap {
		gap, ok := gaps[entityType]
		if !ok {
			gap = &metadataGap{attributes: make(map[string]struct{})}
			gaps[entityType] = gap
		}
		return gap
	}

	for _, item := range items {
		for _, change := range item.ChangeItems {
			if _, ok := e.metaCache.GetAttribute(item.Subject.LogicalName, change.FieldKey); !ok {
				ensure(item.Subject.LogicalName).attributes[change.FieldKey] = struct{}{}
			}
		}

		for _, target := range item.TargetChanges {
			_, haveName := e.metaCache.GetEntityDisplayName(target.Target.LogicalName)
			_, havePrimary := e.metaCache.GetEntityPrimaryNameAttribute(target.Target.LogicalName)
			if !haveName || !havePrimary {
				ensure(target.Target.LogicalName).needInfo = true
			}
		}
	}

	// Drop types where nothing is actually missing.
	for entityType, gap := range gaps {
		if len(gap.attributes) == 0 && !gap.needInfo {
			delete(gaps, entityType)
		}
	}
	return gaps
}

// fetchMetadata performs one metadata request per entity type with gaps,
// concurrently, then applies all results to the cache and persists it.
// No partial application: any failure discards the whole batch.
func (e *Enricher) fetchMetadata(ctx context.Context, gaps map[string]*metadataGap) error {
	if len(gaps) == 0 {
		return nil
	}

	tasks := make([]fetchTask[*models.EntityMetadata], 0, len(gaps))
	for _, entityType := range sortedGapKeys(gaps) {
		entityType := entityType
		attributes := sortedSet(gaps[entityType].attributes)
		tasks = append(tasks, fetchTask[*models.EntityMetadata]{
			Key: entityType,
			Execute: func(ctx context.Context) (*models.EntityMetadata, error) {
				return e.metadata.FetchEntityMetadata(ctx, entityType, attributes)
			},
		})
	}

	results, err := runBatch(ctx, tasks, e.maxConcurrent)
	if err != nil {
		return apperrors.NewTransportError(err, "failed to fetch entity metadata")
	}

	for entityType, meta := range results {
		if meta == nil {
			continue
		}
		for _, attr := range meta.Attributes {
			e.metaCache.SetAttribute(entityType, attr)
		}
		if meta.DisplayName != "" {
			e.metaCache.SetEntityDisplayName(entityType, meta.DisplayName)
		}
		if meta.PrimaryNameAttribute != "" {
			e.metaCache.SetEntityPrimaryNameAttribute(entityType, meta.PrimaryNameAttribute)
		}
	}

	e.metaCache.Save(ctx)
	e.logger.Debug("Metadata cache updated", zap.Int("entity_types", len(results)))
	return nil
}

// resolveTargetNames batch-fetches primary names for target records missing
// from the display-name cache, grouped by entity type. Runs after the
// metadata phase because it needs each type's primary-name attribute.
func (e *Enricher) resolveTargetNames(ctx context.Context, items []*models.AuditDetailItem) error {
	missing := make(map[string]map[string]struct{})
	for _, item := range items {
		for _, target := range item.TargetChanges {
			ref := target.Target
			if _, ok := e.names.GetDisplayName(ref.ID); ok {
				continue
			}
			if _, ok := e.metaCache.GetEntityPrimaryNameAttribute(ref.LogicalName); !ok {
				// Still unresolvable; projection falls back to the entity
				// display name.
				continue
			}
			if missing[ref.LogicalName] == nil {
				missing[ref.LogicalName] = make(map[string]struct{})
			}
			missing[ref.LogicalName][ref.ID] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	entityTypes := make([]string, 0, len(missing))
	for entityType := range missing {
		entityTypes = append(entityTypes, entityType)
	}
	sort.Strings(entityTypes)

	tasks := make([]fetchTask[map[string]string], 0, len(entityTypes))
	for _, entityType := range entityTypes {
		entityType := entityType
		ids := sortedSet(missing[entityType])
		primaryName, _ := e.metaCache.GetEntityPrimaryNameAttribute(entityType)
		tasks = append(tasks, fetchTask[map[string]string]{
			Key: entityType,
			Execute: func(ctx context.Context) (map[string]string, error) {
				return e.records.FetchRecords(ctx, entityType, ids, primaryName)
			},
		})
	}

	results, err := runBatch(ctx, tasks, e.maxConcurrent)
	if err != nil {
		return apperrors.NewTransportError(err, "failed to fetch target record names")
	}

	for _, names := range results {
		for id, name := range names {
			e.names.SetDisplayName(id, name)
		}
	}
	return nil
}

// project substitutes labels into the final display-ready rows.
func (e *Enricher) project(items []*models.AuditDetailItem) []*models.HistoryRow {
	rows := make([]*models.HistoryRow, 0, len(items))
	for _, item := range items {
		row := &models.HistoryRow{
			ID:          item.ID,
			Timestamp:   item.Timestamp,
			UserID:      item.UserID,
			UserName:    item.UserName,
			ActionCode:  item.ActionCode,
			ActionLabel: item.ActionLabel,
			Subject:     item.Subject,
		}

		for _, change := range item.ChangeItems {
			label := change.FieldKey
			if attr, ok := e.metaCache.GetAttribute(item.Subject.LogicalName, change.FieldKey); ok && attr.DisplayName != "" {
				label = attr.DisplayName
			}
			row.Changes = append(row.Changes, models.LabeledChange{
				FieldKey: change.FieldKey,
				Label:    label,
				OldValue: change.OldValue.Text,
				NewValue: change.NewValue.Text,
			})
		}

		for _, target := range item.TargetChanges {
			labeled := models.LabeledTarget{
				Target:   target.Target,
				OldValue: target.OldValue.Text,
				NewValue: target.NewValue.Text,
			}
			name := e.targetDisplayName(target.Target)
			if target.NewValue.Lookup != nil {
				labeled.NewValue = name
			} else if target.OldValue.Lookup != nil {
				labeled.OldValue = name
			}
			row.Targets = append(row.Targets, labeled)
		}

		rows = append(rows, row)
	}
	return rows
}

// targetDisplayName resolves the text shown for a target record: its primary
// name when known, else the entity type's display name, else a name derived
// from the logical name.
func (e *Enricher) targetDisplayName(ref models.EntityReference) string {
	if name, ok := e.names.GetDisplayName(ref.ID); ok {
		return name
	}
	if name, ok := e.metaCache.GetEntityDisplayName(ref.LogicalName); ok {
		return name
	}
	return schema.DeriveDisplayName(ref.LogicalName)
}

func sortedGapKeys(gaps map[string]*metadataGap) []string {
	keys := make([]string, 0, len(gaps))
	for key := range gaps {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
