// Package history composes the full pipeline: descriptor validation, query
// execution, reference extraction, concurrent per-record history fetches,
// stream merging and enrichment.
package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/history-engine/pkg/apperrors"
	"github.com/ekaya-inc/history-engine/pkg/changes"
	"github.com/ekaya-inc/history-engine/pkg/config"
	"github.com/ekaya-inc/history-engine/pkg/extract"
	"github.com/ekaya-inc/history-engine/pkg/models"
	"github.com/ekaya-inc/history-engine/pkg/query"
	"github.com/ekaya-inc/history-engine/pkg/streams"
)

// QueryExecutor runs a serialized expansion query against the primary record
// and returns the raw response payload.
type QueryExecutor interface {
	Execute(ctx context.Context, params string, primaryID string) (map[string]any, error)
}

// ChangeHistoryFetcher returns one page of raw audit entries for a record,
// newest first, plus the token for the next page. An empty token requests the
// first page; an empty returned token means no further pages.
type ChangeHistoryFetcher interface {
	FetchPage(ctx context.Context, ref models.EntityReference, pageToken string) ([]*models.RawAuditEntry, string, error)
}

// Enricher resolves display labels for parsed items and projects them into
// display-ready rows.
type Enricher interface {
	Enrich(ctx context.Context, items []*models.AuditDetailItem) ([]*models.HistoryRow, error)
}

// Service runs the change-history pipeline for one primary record.
type Service interface {
	Run(ctx context.Context, descriptor []byte, primaryID string) ([]*models.HistoryRow, error)
}

type service struct {
	executor QueryExecutor
	fetcher  ChangeHistoryFetcher
	enricher Enricher
	cfg      *config.HistoryConfig
	logger   *zap.Logger
}

var _ Service = (*service)(nil)

// NewService creates a history Service with injected collaborators.
func NewService(
	executor QueryExecutor,
	fetcher ChangeHistoryFetcher,
	enricher Enricher,
	cfg *config.HistoryConfig,
	logger *zap.Logger,
) Service {
	return &service{
		executor: executor,
		fetcher:  fetcher,
		enricher: enricher,
		cfg:      cfg,
		logger:   logger.Named("history-service"),
	}
}

// Run validates the descriptor, resolves the related record set, fetches and
// parses every record's change history concurrently, merges the streams
// newest-first and enriches the result.
func (s *service) Run(ctx context.Context, descriptor []byte, primaryID string) ([]*models.HistoryRow, error) {
	plan, err := query.Parse(descriptor)
	if err != nil {
		return nil, err
	}

	params, err := query.Build(plan)
	if err != nil {
		return nil, err
	}

	payload, err := s.executor.Execute(ctx, params, primaryID)
	if err != nil {
		return nil, apperrors.NewTransportError(err, "failed to execute expansion query")
	}

	primary := models.EntityReference{LogicalName: plan.PrimaryEntityLogicalName, ID: primaryID}
	refs := ensurePrimary(extract.References(payload), primary)
	s.logger.Debug("Resolved record set",
		zap.String("primary_type", primary.LogicalName),
		zap.Int("records", len(refs)))

	perRef := make([][]*models.AuditDetailItem, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentFetches)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			items, err := s.fetchHistory(gctx, ref)
			if err != nil {
				return err
			}
			perRef[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := streams.MergeSorted(perRef, changes.Compare)
	return s.enricher.Enrich(ctx, merged)
}

// fetchHistory pulls every page of one record's change log and parses each
// entry. Pages arrive newest-first, so the concatenation is already ordered.
func (s *service) fetchHistory(ctx context.Context, ref models.EntityReference) ([]*models.AuditDetailItem, error) {
	var items []*models.AuditDetailItem
	pageToken := ""
	for {
		entries, nextToken, err := s.fetcher.FetchPage(ctx, ref, pageToken)
		if err != nil {
			return nil, apperrors.NewTransportError(err,
				"failed to fetch change history for %s/%s", ref.LogicalName, ref.ID)
		}

		for _, entry := range entries {
			item, err := changes.Parse(entry)
			if err != nil {
				return nil, fmt.Errorf("failed to parse audit entry %s: %w", entry.ID, err)
			}
			items = append(items, item)
		}

		if nextToken == "" {
			return items, nil
		}
		pageToken = nextToken
	}
}

// ensurePrimary guarantees the primary record leads the set even when the
// query response omitted it.
func ensurePrimary(refs []models.EntityReference, primary models.EntityReference) []models.EntityReference {
	for _, ref := range refs {
		if ref == primary {
			return refs
		}
	}
	return append([]models.EntityReference{primary}, refs...)
}
