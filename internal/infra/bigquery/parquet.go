package bigquery

import (
	"bytes"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/dvloznov/shopping-insight/internal/failure"
)

// Load files are Parquet so the physical column types line up with the
// declared schema: DATE as INT32 days, TIMESTAMP as INT64 microseconds.

type categoryRecord struct {
	CID        string `parquet:"name=cid, type=BYTE_ARRAY, convertedtype=UTF8"`
	PID        string `parquet:"name=pid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name       string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ParentPath string `parquet:"name=parentPath, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      int64  `parquet:"name=level, type=INT64"`
}

type keywordRankRecord struct {
	CID       string `parquet:"name=cid, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartDate int32  `parquet:"name=start_date, type=INT32, convertedtype=DATE"`
	EndDate   int32  `parquet:"name=end_date, type=INT32, convertedtype=DATE"`
	DateType  string `parquet:"name=date_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Keyword   string `parquet:"name=keyword, type=BYTE_ARRAY, convertedtype=UTF8"`
	Rank      int64  `parquet:"name=rank, type=INT64"`
	UpdatedAt int64  `parquet:"name=updated_at, type=INT64, convertedtype=TIMESTAMP_MICROS"`
}

var unixEpoch = civil.Date{Year: 1970, Month: 1, Day: 1}

func epochDays(d civil.Date) int32 {
	return int32(d.DaysSince(unixEpoch))
}

func toCategoryRecords(rows []*CategoryRow) []categoryRecord {
	out := make([]categoryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, categoryRecord{
			CID:        r.CID,
			PID:        r.PID,
			Name:       r.Name,
			ParentPath: r.ParentPath,
			Level:      r.Level,
		})
	}
	return out
}

func toKeywordRankRecords(rows []*KeywordRankRow) ([]keywordRankRecord, error) {
	out := make([]keywordRankRecord, 0, len(rows))
	for i, r := range rows {
		if !r.StartDate.IsValid() || !r.EndDate.IsValid() {
			return nil, fmt.Errorf("row %d: %w: invalid window %v..%v", i, failure.ErrSchemaMismatch, r.StartDate, r.EndDate)
		}
		if r.UpdatedAt.IsZero() {
			return nil, fmt.Errorf("row %d: %w: updated_at is not set", i, failure.ErrSchemaMismatch)
		}
		out = append(out, keywordRankRecord{
			CID:       r.CID,
			StartDate: epochDays(r.StartDate),
			EndDate:   epochDays(r.EndDate),
			DateType:  r.DateType,
			Keyword:   r.Keyword,
			Rank:      r.Rank,
			UpdatedAt: r.UpdatedAt.UnixMicro(),
		})
	}
	return out, nil
}

// EncodeCategories renders rows as a Parquet file.
func EncodeCategories(rows []*CategoryRow) ([]byte, error) {
	data, err := encodeParquet(new(categoryRecord), toCategoryRecords(rows))
	if err != nil {
		return nil, fmt.Errorf("EncodeCategories: %w", err)
	}
	return data, nil
}

// EncodeKeywordRanks renders rows as a Parquet file.
func EncodeKeywordRanks(rows []*KeywordRankRow) ([]byte, error) {
	records, err := toKeywordRankRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("EncodeKeywordRanks: %w", err)
	}
	data, err := encodeParquet(new(keywordRankRecord), records)
	if err != nil {
		return nil, fmt.Errorf("EncodeKeywordRanks: %w", err)
	}
	return data, nil
}

func encodeParquet[T any](prototype *T, records []T) (data []byte, err error) {
	buf := new(bytes.Buffer)

	pw, err := writer.NewParquetWriterFromWriter(buf, prototype, 1)
	if err != nil {
		return nil, fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range records {
		if err := pw.Write(records[i]); err != nil {
			return nil, fmt.Errorf("%w: writing record %d: %v", failure.ErrSchemaMismatch, i, err)
		}
	}

	// WriteStop can panic on malformed schemas.
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("finalizing parquet file: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalizing parquet file: %w", err)
	}

	return buf.Bytes(), nil
}
