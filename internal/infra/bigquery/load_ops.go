package bigquery

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/logger"
)

const parquetContentType = "application/vnd.apache.parquet"

// ObjectStager uploads a load file to object storage and returns its gs:// URI.
type ObjectStager interface {
	UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
}

// Staging describes where load files are written before a GCS-sourced load.
// A nil *Staging loads the bytes inline.
type Staging struct {
	Stager ObjectStager
	Bucket string
	Prefix string
}

// AppendParquetWithClient appends a Parquet load file to ref using the provided
// BigQuery client and waits for the load job to finish.
func AppendParquetWithClient(ctx context.Context, client *bigquery.Client, staging *Staging, ref TableRef, schema bigquery.Schema, data []byte) error {
	log := logger.FromContext(ctx)

	src, err := loadSource(ctx, staging, ref, schema, data)
	if err != nil {
		return err
	}

	project := ref.ProjectID
	if project == "" {
		project = client.Project()
	}

	loader := client.DatasetInProject(project, ref.DatasetID).Table(ref.TableID).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("AppendParquet: %w: running load job: %v", failure.ErrLoadJob, err)
	}

	log.Debug().Str("job_id", job.ID()).Str("table", ref.String()).Msg("load job started")

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("AppendParquet: %w: waiting for job %s: %v", failure.ErrLoadJob, job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("AppendParquet: %w: job %s: %v", failure.ErrLoadJob, job.ID(), err)
	}

	return nil
}

func loadSource(ctx context.Context, staging *Staging, ref TableRef, schema bigquery.Schema, data []byte) (bigquery.LoadSource, error) {
	if staging == nil || staging.Stager == nil {
		rs := bigquery.NewReaderSource(bytes.NewReader(data))
		rs.SourceFormat = bigquery.Parquet
		rs.Schema = schema
		return rs, nil
	}

	object := StagingObjectName(staging.Prefix, ref, uuid.NewString())
	uri, err := staging.Stager.UploadBytes(ctx, staging.Bucket, object, data, parquetContentType)
	if err != nil {
		return nil, fmt.Errorf("AppendParquet: %w: staging load file: %v", failure.ErrLoadJob, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Msg("load file staged")

	gcsRef := bigquery.NewGCSReference(uri)
	gcsRef.SourceFormat = bigquery.Parquet
	gcsRef.Schema = schema
	return gcsRef, nil
}

// StagingObjectName builds "{prefix}/{dataset}/{table}/{id}.parquet".
func StagingObjectName(prefix string, ref TableRef, id string) string {
	return path.Join(prefix, ref.DatasetID, ref.TableID, id+".parquet")
}
