package ingest

import (
	"context"

	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/insight"
)

// InsightClient fetches raw JSON documents from the shopping insight endpoints.
type InsightClient interface {
	FetchCategory(ctx context.Context, cid string) (map[string]interface{}, error)
	FetchRankPage(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error)
}

// Warehouse appends normalized batches to destination tables.
// Destinations are "project.dataset.table" or "dataset.table".
type Warehouse interface {
	AppendCategories(ctx context.Context, destination string, rows []*infra.CategoryRow) error
	AppendKeywordRanks(ctx context.Context, destination string, rows []*infra.KeywordRankRow) error
}

// RankFetcher runs one keyword-rank ingestion for a single end date.
type RankFetcher interface {
	Fetch(ctx context.Context, req KeywordRankRequest) (int, error)
}

var (
	_ InsightClient = (*insight.Client)(nil)
	_ Warehouse     = (*infra.BigQueryWarehouse)(nil)
	_ RankFetcher   = (*KeywordRankFetcher)(nil)
)
