package bigquery

import "cloud.google.com/go/bigquery"

// CategorySchema is the destination schema for category rows.
// cid and pid are declared STRING so numeric identifiers are never inferred as INTEGER.
func CategorySchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "cid", Type: bigquery.StringFieldType},
		{Name: "pid", Type: bigquery.StringFieldType},
		{Name: "name", Type: bigquery.StringFieldType},
		{Name: "parentPath", Type: bigquery.StringFieldType},
		{Name: "level", Type: bigquery.IntegerFieldType},
	}
}

// KeywordRankSchema is the destination schema for keyword-rank rows.
// start_date/end_date are DATE (not DATETIME) and updated_at is TIMESTAMP.
func KeywordRankSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "cid", Type: bigquery.StringFieldType},
		{Name: "start_date", Type: bigquery.DateFieldType},
		{Name: "end_date", Type: bigquery.DateFieldType},
		{Name: "date_type", Type: bigquery.StringFieldType},
		{Name: "keyword", Type: bigquery.StringFieldType},
		{Name: "rank", Type: bigquery.IntegerFieldType},
		{Name: "updated_at", Type: bigquery.TimestampFieldType},
	}
}
