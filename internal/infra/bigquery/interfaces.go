package bigquery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/gcsuploader"
	"github.com/dvloznov/shopping-insight/internal/logger"
)

// WarehouseConfig configures a BigQueryWarehouse.
type WarehouseConfig struct {
	// ProjectID is the billing project. Empty means detect it from the credentials.
	ProjectID string

	// CredentialsFile is a service-account key file. Empty means Application Default Credentials.
	CredentialsFile string

	// StagingBucket, when set, routes load files through GCS.
	StagingBucket string
	StagingPrefix string
}

// BigQueryWarehouse appends row batches to BigQuery tables through load jobs.
// It holds one client for all loads of a run.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	storage *gcsuploader.GCSStorageService
	staging *Staging
}

// NewBigQueryWarehouse authenticates and creates the shared BigQuery client.
func NewBigQueryWarehouse(ctx context.Context, cfg WarehouseConfig) (*BigQueryWarehouse, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("NewBigQueryWarehouse: %w: credentials file: %v", failure.ErrAuthentication, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	project := cfg.ProjectID
	if project == "" {
		project = bigquery.DetectProjectID
	}

	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWarehouse: %w: creating client: %v", failure.ErrAuthentication, err)
	}

	w := &BigQueryWarehouse{client: client}

	if cfg.StagingBucket != "" {
		svc, err := gcsuploader.NewGCSStorageService(ctx, opts...)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("NewBigQueryWarehouse: %w: %v", failure.ErrAuthentication, err)
		}
		w.storage = svc
		w.staging = &Staging{Stager: svc, Bucket: cfg.StagingBucket, Prefix: cfg.StagingPrefix}
	}

	return w, nil
}

// Close closes the BigQuery and storage clients.
func (w *BigQueryWarehouse) Close() error {
	var errs []error
	if w.client != nil {
		errs = append(errs, w.client.Close())
	}
	if w.storage != nil {
		errs = append(errs, w.storage.Close())
	}
	return errors.Join(errs...)
}

// AppendCategories appends rows to destination with CategorySchema.
func (w *BigQueryWarehouse) AppendCategories(ctx context.Context, destination string, rows []*CategoryRow) error {
	return AppendCategoriesWithClient(ctx, w.client, w.staging, destination, rows)
}

// AppendKeywordRanks appends rows to destination with KeywordRankSchema.
func (w *BigQueryWarehouse) AppendKeywordRanks(ctx context.Context, destination string, rows []*KeywordRankRow) error {
	return AppendKeywordRanksWithClient(ctx, w.client, w.staging, destination, rows)
}

// AppendCategoriesWithClient appends category rows using the provided BigQuery client.
// An empty batch starts no load job, so a first run without rows does not
// create the destination table.
func AppendCategoriesWithClient(ctx context.Context, client *bigquery.Client, staging *Staging, destination string, rows []*CategoryRow) error {
	if len(rows) == 0 {
		log := logger.FromContext(ctx)
		log.Info().Str("destination", destination).Msg("No category rows to load")
		return nil
	}

	ref, err := ParseDestination(destination)
	if err != nil {
		return fmt.Errorf("AppendCategories: %w", err)
	}

	data, err := EncodeCategories(rows)
	if err != nil {
		return fmt.Errorf("AppendCategories: %w", err)
	}

	if err := AppendParquetWithClient(ctx, client, staging, ref, CategorySchema(), data); err != nil {
		return fmt.Errorf("AppendCategories: %s: %w", ref, err)
	}
	return nil
}

// AppendKeywordRanksWithClient appends keyword-rank rows using the provided BigQuery client.
// As with categories, an empty batch neither loads nor creates the table.
func AppendKeywordRanksWithClient(ctx context.Context, client *bigquery.Client, staging *Staging, destination string, rows []*KeywordRankRow) error {
	if len(rows) == 0 {
		log := logger.FromContext(ctx)
		log.Info().Str("destination", destination).Msg("No keyword rank rows to load")
		return nil
	}

	ref, err := ParseDestination(destination)
	if err != nil {
		return fmt.Errorf("AppendKeywordRanks: %w", err)
	}

	data, err := EncodeKeywordRanks(rows)
	if err != nil {
		return fmt.Errorf("AppendKeywordRanks: %w", err)
	}

	if err := AppendParquetWithClient(ctx, client, staging, ref, KeywordRankSchema(), data); err != nil {
		return fmt.Errorf("AppendKeywordRanks: %s: %w", ref, err)
	}
	return nil
}
