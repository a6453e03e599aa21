package bigquery

import (
	"time"

	"cloud.google.com/go/civil"
)

// KeywordRankRow is one ranked keyword stamped with the window it was fetched for.
// StartDate, EndDate, DateType and UpdatedAt are shared by every row of a batch.
type KeywordRankRow struct {
	CID       string     `bigquery:"cid"`        // STRING
	StartDate civil.Date `bigquery:"start_date"` // DATE
	EndDate   civil.Date `bigquery:"end_date"`   // DATE
	DateType  string     `bigquery:"date_type"`  // STRING: date | week | month
	Keyword   string     `bigquery:"keyword"`    // STRING
	Rank      int64      `bigquery:"rank"`       // INTEGER
	UpdatedAt time.Time  `bigquery:"updated_at"` // TIMESTAMP
}
