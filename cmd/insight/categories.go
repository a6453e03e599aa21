package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/ingest"
	"github.com/dvloznov/shopping-insight/internal/insight"
	"github.com/dvloznov/shopping-insight/internal/jobs"
	"github.com/dvloznov/shopping-insight/internal/jobs/inmemory"
)

// Query flags shared by the ingestion commands.
var (
	flagCID             string
	flagDateType        string
	flagStartDate       string
	flagEndDate         string
	flagStopOnEmptyPage bool
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Append the child categories of a category id",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateCategories(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

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

		fetcher := ingest.NewCategoryFetcher(client, wh)
		store := inmemory.NewStore()

		run := &jobs.IngestRun{Kind: jobs.RunKindCategory, CID: cfg.CID}
		err = ingest.Track(ctx, store, timeNow, run, func(ctx context.Context) (int, error) {
			return fetcher.Fetch(ctx, cfg.CID, cfg.CategoryDestination)
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d records are updated\n", run.Records)
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&flagCID, "cid", "", "Category id whose children are loaded")
}
