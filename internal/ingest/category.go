package ingest

import (
	"context"
	"fmt"

	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/logger"
)

// CategoryFetcher loads the direct children of a category.
type CategoryFetcher struct {
	client    InsightClient
	warehouse Warehouse
}

// NewCategoryFetcher creates a new CategoryFetcher.
func NewCategoryFetcher(client InsightClient, warehouse Warehouse) *CategoryFetcher {
	return &CategoryFetcher{client: client, warehouse: warehouse}
}

// Fetch requests the children of cid, appends them to destination and returns
// the number of rows appended.
func (f *CategoryFetcher) Fetch(ctx context.Context, cid, destination string) (int, error) {
	log := logger.FromContext(ctx).With().Str("cid", cid).Logger()

	body, err := f.client.FetchCategory(ctx, cid)
	if err != nil {
		return 0, fmt.Errorf("CategoryFetcher.Fetch: %w", failure.AtStage(stageForClientError(err), err))
	}

	rows, err := transformCategoryResponse(body)
	if err != nil {
		return 0, fmt.Errorf("CategoryFetcher.Fetch: %w", failure.AtStage(failure.StageNormalize, err))
	}

	log.Info().
		Str("destination", destination).
		Int("records", len(rows)).
		Msg("Start uploading to BigQuery")

	if err := f.warehouse.AppendCategories(ctx, destination, rows); err != nil {
		return 0, fmt.Errorf("CategoryFetcher.Fetch: %w", failure.AtStage(failure.StageLoad, err))
	}

	log.Info().Int("records", len(rows)).Msgf("%d records are updated", len(rows))
	return len(rows), nil
}
