package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/insight"
	"github.com/dvloznov/shopping-insight/internal/logger"
	"github.com/dvloznov/shopping-insight/internal/window"
)

// PipelineStep represents a single step of a keyword-rank fetch.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request KeywordRankRequest
	Window  window.Window

	// Entries holds the ranks of every fetched page, in page order.
	Entries []map[string]interface{}
	Pages   int

	UpdatedAt time.Time
	Rows      []*infra.KeywordRankRow
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Step 1: DeriveWindowStep computes the date window for the request.
type DeriveWindowStep struct{}

func (s *DeriveWindowStep) Execute(ctx context.Context, state *PipelineState) error {
	// Invalid input is reported without a stage: nothing was requested yet.
	w, err := window.Derive(state.Request.EndDate, state.Request.DateType)
	if err != nil {
		return err
	}
	state.Window = w
	return nil
}

// Step 2: FetchRankPagesStep requests every ranking page and collects the entries.
type FetchRankPagesStep struct {
	Client          InsightClient
	StopOnEmptyPage bool
}

func (s *FetchRankPagesStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	for page := 1; page <= RankPages; page++ {
		body, err := s.Client.FetchRankPage(ctx, insight.RankPageRequest{
			CID:       state.Request.CID,
			StartDate: state.Window.Start().String(),
			EndDate:   state.Window.End().String(),
			Page:      page,
			Count:     RankPageSize,
		})
		if err != nil {
			return failure.AtStage(stageForClientError(err), err)
		}

		entries, err := rankEntries(body)
		if err != nil {
			return failure.AtStage(failure.StageNormalize, fmt.Errorf("page %d: %w", page, err))
		}

		state.Pages++
		state.Entries = append(state.Entries, entries...)

		if s.StopOnEmptyPage && len(entries) == 0 {
			log.Debug().Int("page", page).Msg("Empty ranking page, stopping pagination")
			break
		}
	}

	return nil
}

// Step 3: NormalizeRanksStep turns the collected entries into stamped rows.
type NormalizeRanksStep struct {
	Now func() time.Time
}

func (s *NormalizeRanksStep) Execute(ctx context.Context, state *PipelineState) error {
	// One timestamp for the whole batch.
	state.UpdatedAt = s.Now().UTC()

	rows := make([]*infra.KeywordRankRow, 0, len(state.Entries))
	for i, obj := range state.Entries {
		entry, err := transformRankEntry(obj)
		if err != nil {
			return failure.AtStage(failure.StageNormalize, fmt.Errorf("rank entry %d: %w", i, err))
		}
		rows = append(rows, &infra.KeywordRankRow{
			CID:       state.Request.CID,
			StartDate: state.Window.Start(),
			EndDate:   state.Window.End(),
			DateType:  string(state.Window.Period()),
			Keyword:   entry.Keyword,
			Rank:      entry.Rank,
			UpdatedAt: state.UpdatedAt,
		})
	}

	state.Rows = rows
	return nil
}

// Step 4: AppendRanksStep appends the batch to the destination table.
type AppendRanksStep struct {
	Warehouse Warehouse
}

func (s *AppendRanksStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("destination", state.Request.Destination).
		Int("records", len(state.Rows)).
		Msg("Start uploading to BigQuery")

	if err := s.Warehouse.AppendKeywordRanks(ctx, state.Request.Destination, state.Rows); err != nil {
		return failure.AtStage(failure.StageLoad, err)
	}
	return nil
}

// stageForClientError maps insight client errors onto a stage. Undecodable
// bodies are a normalization failure; everything else happened on the wire.
func stageForClientError(err error) failure.Stage {
	if errors.Is(err, failure.ErrResponseShape) {
		return failure.StageNormalize
	}
	return failure.StageFetch
}
