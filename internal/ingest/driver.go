package ingest

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/jobs"
	"github.com/dvloznov/shopping-insight/internal/logger"
	"github.com/dvloznov/shopping-insight/internal/window"
)

// DriverRequest describes a backfill over an inclusive range of end dates.
type DriverRequest struct {
	CID         string
	DateType    window.Period
	StartDate   civil.Date
	EndDate     civil.Date
	Destination string
}

// DriverSummary reports what a Driver run did.
type DriverSummary struct {
	// Dates is the number of end dates in the requested range.
	Dates int
	// Completed is the number of dates whose batch was appended.
	Completed int
	Records   int
	Runs      []*jobs.IngestRun
}

// Driver runs a keyword-rank fetch for every date of a range, one after another.
type Driver struct {
	fetcher RankFetcher
	runs    jobs.RunStore
	now     func() time.Time
}

// NewDriver creates a new Driver that records each attempt in runs.
func NewDriver(fetcher RankFetcher, runs jobs.RunStore) *Driver {
	return &Driver{fetcher: fetcher, runs: runs, now: time.Now}
}

// Run fetches each date of the range in ascending order. The first failure
// stops the loop; the returned summary covers the dates attempted so far.
func (d *Driver) Run(ctx context.Context, req DriverRequest) (*DriverSummary, error) {
	days := window.Days(req.StartDate, req.EndDate)
	if len(days) == 0 {
		return nil, fmt.Errorf("Driver.Run: start date %s is after end date %s", req.StartDate, req.EndDate)
	}

	log := logger.FromContext(ctx)
	summary := &DriverSummary{Dates: len(days)}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("Driver.Run: %s: %w", day, err)
		}

		run := &jobs.IngestRun{
			Kind:     jobs.RunKindKeywordRank,
			CID:      req.CID,
			EndDate:  day.String(),
			DateType: string(req.DateType),
		}

		err := Track(ctx, d.runs, d.now, run, func(ctx context.Context) (int, error) {
			return d.fetcher.Fetch(ctx, KeywordRankRequest{
				CID:         req.CID,
				EndDate:     day,
				DateType:    req.DateType,
				Destination: req.Destination,
			})
		})
		summary.Runs = append(summary.Runs, run)
		if err != nil {
			return summary, fmt.Errorf("Driver.Run: %s: %w", day, err)
		}

		summary.Completed++
		summary.Records += run.Records
	}

	log.Info().
		Int("dates", summary.Dates).
		Int("records", summary.Records).
		Msg("Date range completed")

	return summary, nil
}

// Track executes fn as run and records its start and outcome in store.
// run is updated in place; fn's error is returned unchanged.
func Track(ctx context.Context, store jobs.RunStore, now func() time.Time, run *jobs.IngestRun, fn func(ctx context.Context) (int, error)) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	run.Status = jobs.RunStatusRunning
	run.StartedAt = now().UTC()

	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("Track: saving run: %w", err)
	}

	records, fnErr := fn(ctx)

	completed := now().UTC()
	run.CompletedAt = &completed
	run.Records = records
	if fnErr != nil {
		run.Status = jobs.RunStatusFailed
		run.Error = fnErr.Error()
		if stage, ok := failure.StageOf(fnErr); ok {
			run.Stage = string(stage)
		}
	} else {
		run.Status = jobs.RunStatusCompleted
	}

	if err := store.SaveRun(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to record run outcome")
	}

	return fnErr
}
