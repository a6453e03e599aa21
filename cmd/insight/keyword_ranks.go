package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/ingest"
	"github.com/dvloznov/shopping-insight/internal/insight"
	"github.com/dvloznov/shopping-insight/internal/jobs"
	"github.com/dvloznov/shopping-insight/internal/jobs/inmemory"
)

var timeNow = time.Now

var keywordRanksCmd = &cobra.Command{
	Use:   "keyword-ranks",
	Short: "Append keyword rankings for every end date in a range",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateKeywordRanks(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		start, _ := cfg.StartDay()
		end, _ := cfg.EndDay()

		ctx, cancel, err := runContext(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cancel()

		client, err := insight.NewClient(cfg.InsightOptions())
		if err != nil {
			return err
		}

		wh, err := infra.NewBigQueryWarehouse(ctx, cfg.WarehouseConfig())
		if err != nil {
			return failure.AtStage(failure.StageLoad, err)
		}
		defer wh.Close()

		fetcher := ingest.NewKeywordRankFetcher(client, wh, ingest.WithStopOnEmptyPage(cfg.StopOnEmptyPage))
		store := inmemory.NewStore()
		driver := ingest.NewDriver(fetcher, store)

		summary, runErr := driver.Run(ctx, ingest.DriverRequest{
			CID:         cfg.CID,
			DateType:    cfg.Period(),
			StartDate:   start,
			EndDate:     end,
			Destination: cfg.KeywordRankDestination,
		})

		failed, err := store.ListRuns(ctx, jobs.RunFilter{Status: jobs.RunStatusFailed})
		if err == nil {
			for _, r := range failed {
				log.Warn().
					Str("run_id", r.RunID).
					Str("end_date", r.EndDate).
					Str("stage", r.Stage).
					Dur("duration", r.Duration()).
					Msg("Date failed")
			}
		}

		if summary != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d dates loaded, %d records are updated\n",
				summary.Completed, summary.Dates, summary.Records)
		}
		return runErr
	},
}

func init() {
	f := keywordRanksCmd.Flags()
	f.StringVar(&flagCID, "cid", "", "Category id to rank keywords for")
	f.StringVar(&flagDateType, "date-type", "", "Window period: date, week or month")
	f.StringVar(&flagStartDate, "start-date", "", "First end date of the range (YYYY-MM-DD)")
	f.StringVar(&flagEndDate, "end-date", "", "Last end date of the range (YYYY-MM-DD)")
	f.BoolVar(&flagStopOnEmptyPage, "stop-on-empty-page", false, "Stop paging at the first empty ranking page")
}
