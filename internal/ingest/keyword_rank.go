package ingest

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/shopping-insight/internal/logger"
	"github.com/dvloznov/shopping-insight/internal/window"
)

// KeywordRankRequest identifies one keyword-rank ingestion.
type KeywordRankRequest struct {
	CID         string
	EndDate     civil.Date
	DateType    window.Period
	Destination string
}

// KeywordRankFetcher pages through the keyword ranking of a category and
// appends the combined batch in a single load.
type KeywordRankFetcher struct {
	client          InsightClient
	warehouse       Warehouse
	stopOnEmptyPage bool
	now             func() time.Time
}

// KeywordRankOption configures a KeywordRankFetcher.
type KeywordRankOption func(*KeywordRankFetcher)

// WithStopOnEmptyPage ends pagination at the first page without entries
// instead of always requesting RankPages pages.
func WithStopOnEmptyPage(stop bool) KeywordRankOption {
	return func(f *KeywordRankFetcher) { f.stopOnEmptyPage = stop }
}

// WithClock replaces the clock used for the batch updated_at stamp.
func WithClock(now func() time.Time) KeywordRankOption {
	return func(f *KeywordRankFetcher) { f.now = now }
}

// NewKeywordRankFetcher creates a new KeywordRankFetcher.
func NewKeywordRankFetcher(client InsightClient, warehouse Warehouse, opts ...KeywordRankOption) *KeywordRankFetcher {
	f := &KeywordRankFetcher{
		client:    client,
		warehouse: warehouse,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch runs the keyword-rank pipeline for req and returns the number of rows appended.
// Any failure aborts the call before anything is loaded.
func (f *KeywordRankFetcher) Fetch(ctx context.Context, req KeywordRankRequest) (int, error) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"cid":       req.CID,
		"end_date":  req.EndDate.String(),
		"date_type": string(req.DateType),
	})
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{Request: req}
	p := NewPipeline(
		&DeriveWindowStep{},
		&FetchRankPagesStep{Client: f.client, StopOnEmptyPage: f.stopOnEmptyPage},
		&NormalizeRanksStep{Now: f.now},
		&AppendRanksStep{Warehouse: f.warehouse},
	)

	if err := p.Execute(ctx, state); err != nil {
		return 0, fmt.Errorf("KeywordRankFetcher.Fetch: %w", err)
	}

	log.Info().
		Str("window", state.Window.String()).
		Int("pages", state.Pages).
		Int("records", len(state.Rows)).
		Msgf("%d records are updated", len(state.Rows))

	return len(state.Rows), nil
}
