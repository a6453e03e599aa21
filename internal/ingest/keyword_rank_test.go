package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/insight"
	"github.com/dvloznov/shopping-insight/internal/window"
)

var fixedNow = time.Date(2022, 6, 9, 3, 4, 5, 0, time.FixedZone("KST", 9*60*60))

// rankPage builds a ranking page with n entries starting at rank first.
func rankPage(first, n int) map[string]interface{} {
	ranks := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		r := first + i
		ranks = append(ranks, map[string]interface{}{
			"rank":    json.Number(strconv.Itoa(r)),
			"keyword": fmt.Sprintf("keyword-%d", r),
			"linkId":  fmt.Sprintf("link-%d", r),
		})
	}
	return map[string]interface{}{"message": nil, "statusCode": 200, "ranks": ranks}
}

func weekRequest() KeywordRankRequest {
	return KeywordRankRequest{
		CID:         "50000155",
		EndDate:     civil.Date{Year: 2022, Month: time.June, Day: 8},
		DateType:    window.PeriodWeek,
		Destination: "insight.keyword_ranks",
	}
}

func TestKeywordRankFetcher_FetchesAllPages(t *testing.T) {
	ctx := context.Background()

	// Page p carries p%4 entries, so some pages are empty.
	wantRows := 0
	for p := 1; p <= RankPages; p++ {
		wantRows += p % 4
	}

	client := &MockInsightClient{
		FetchRankPageFunc: func(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error) {
			return rankPage((req.Page-1)*RankPageSize+1, req.Page%4), nil
		},
	}
	wh := &MockWarehouse{}

	f := NewKeywordRankFetcher(client, wh, WithClock(func() time.Time { return fixedNow }))
	n, err := f.Fetch(ctx, weekRequest())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(client.RankRequests) != RankPages {
		t.Fatalf("made %d page requests, want %d", len(client.RankRequests), RankPages)
	}
	for i, req := range client.RankRequests {
		if req.Page != i+1 {
			t.Errorf("request %d Page = %d, want %d", i, req.Page, i+1)
		}
		if req.Count != RankPageSize {
			t.Errorf("request %d Count = %d, want %d", i, req.Count, RankPageSize)
		}
		if req.CID != "50000155" || req.StartDate != "2022-06-01" || req.EndDate != "2022-06-08" {
			t.Errorf("request %d = %+v, want cid 50000155 from 2022-06-01 to 2022-06-08", i, req)
		}
	}

	if n != wantRows {
		t.Errorf("Fetch returned %d, want %d", n, wantRows)
	}
	if wh.KeywordRankCalls != 1 {
		t.Fatalf("AppendKeywordRanks called %d times, want 1", wh.KeywordRankCalls)
	}
	if len(wh.KeywordRankRows) != wantRows {
		t.Errorf("appended %d rows, want %d", len(wh.KeywordRankRows), wantRows)
	}
}

func TestKeywordRankFetcher_StampsBatch(t *testing.T) {
	client := &MockInsightClient{
		FetchRankPageFunc: func(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error) {
			if req.Page > 2 {
				return rankPage(0, 0), nil
			}
			return rankPage((req.Page-1)*RankPageSize+1, 3), nil
		},
	}
	wh := &MockWarehouse{}

	f := NewKeywordRankFetcher(client, wh, WithClock(func() time.Time { return fixedNow }))
	if _, err := f.Fetch(context.Background(), weekRequest()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	wantStart := civil.Date{Year: 2022, Month: time.June, Day: 1}
	wantEnd := civil.Date{Year: 2022, Month: time.June, Day: 8}
	wantUpdated := fixedNow.UTC()

	rows := wh.KeywordRankRows
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	for i, row := range rows {
		if row.CID != "50000155" {
			t.Errorf("row %d CID = %q", i, row.CID)
		}
		if row.StartDate != wantStart || row.EndDate != wantEnd {
			t.Errorf("row %d window = %s..%s, want %s..%s", i, row.StartDate, row.EndDate, wantStart, wantEnd)
		}
		if row.DateType != "week" {
			t.Errorf("row %d DateType = %q, want week", i, row.DateType)
		}
		if !row.UpdatedAt.Equal(wantUpdated) || row.UpdatedAt.Location() != time.UTC {
			t.Errorf("row %d UpdatedAt = %v, want %v in UTC", i, row.UpdatedAt, wantUpdated)
		}
	}

	// Page order is preserved.
	if rows[0].Rank != 1 || rows[3].Rank != RankPageSize+1 {
		t.Errorf("ranks out of page order: first=%d fourth=%d", rows[0].Rank, rows[3].Rank)
	}
	if rows[0].Keyword != "keyword-1" {
		t.Errorf("Keyword = %q, want keyword-1", rows[0].Keyword)
	}
}

func TestKeywordRankFetcher_StopOnEmptyPage(t *testing.T) {
	client := &MockInsightClient{
		FetchRankPageFunc: func(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error) {
			if req.Page >= 3 {
				return rankPage(0, 0), nil
			}
			return rankPage(1, RankPageSize), nil
		},
	}
	wh := &MockWarehouse{}

	f := NewKeywordRankFetcher(client, wh, WithStopOnEmptyPage(true))
	n, err := f.Fetch(context.Background(), weekRequest())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(client.RankRequests) != 3 {
		t.Errorf("made %d page requests, want 3", len(client.RankRequests))
	}
	if n != 2*RankPageSize {
		t.Errorf("Fetch returned %d, want %d", n, 2*RankPageSize)
	}
}

func TestKeywordRankFetcher_Errors(t *testing.T) {
	tests := []struct {
		name      string
		page      func(req insight.RankPageRequest) (map[string]interface{}, error)
		appendErr error
		wantKind  error
		wantStage failure.Stage
		wantCalls int
		wantLoads int
	}{
		{
			name: "transport failure on page 7",
			page: func(req insight.RankPageRequest) (map[string]interface{}, error) {
				if req.Page == 7 {
					return nil, fmt.Errorf("FetchRankPage: %w: status 503", failure.ErrTransport)
				}
				return rankPage(1, 2), nil
			},
			wantKind:  failure.ErrTransport,
			wantStage: failure.StageFetch,
			wantCalls: 7,
		},
		{
			name: "undecodable body",
			page: func(req insight.RankPageRequest) (map[string]interface{}, error) {
				return nil, fmt.Errorf("FetchRankPage: %w: not json", failure.ErrResponseShape)
			},
			wantKind:  failure.ErrResponseShape,
			wantStage: failure.StageNormalize,
			wantCalls: 1,
		},
		{
			name: "missing ranks",
			page: func(req insight.RankPageRequest) (map[string]interface{}, error) {
				return map[string]interface{}{"statusCode": 200}, nil
			},
			wantKind:  failure.ErrResponseShape,
			wantStage: failure.StageNormalize,
			wantCalls: 1,
		},
		{
			name: "non-numeric rank",
			page: func(req insight.RankPageRequest) (map[string]interface{}, error) {
				return map[string]interface{}{"ranks": []interface{}{
					map[string]interface{}{"rank": "first", "keyword": "k"},
				}}, nil
			},
			wantKind:  failure.ErrSchemaMismatch,
			wantStage: failure.StageNormalize,
			wantCalls: RankPages,
		},
		{
			name: "load job failure",
			page: func(req insight.RankPageRequest) (map[string]interface{}, error) {
				return rankPage(1, 1), nil
			},
			appendErr: fmt.Errorf("AppendKeywordRanks: %w", failure.ErrLoadJob),
			wantKind:  failure.ErrLoadJob,
			wantStage: failure.StageLoad,
			wantCalls: RankPages,
			wantLoads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockInsightClient{
				FetchRankPageFunc: func(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error) {
					return tt.page(req)
				},
			}
			wh := &MockWarehouse{
				AppendKeywordRanksFunc: func(ctx context.Context, destination string, rows []*infra.KeywordRankRow) error {
					return tt.appendErr
				},
			}

			n, err := NewKeywordRankFetcher(client, wh).Fetch(context.Background(), weekRequest())
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if n != 0 {
				t.Errorf("Fetch returned %d rows on failure, want 0", n)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want kind %v", err, tt.wantKind)
			}
			if stage, ok := failure.StageOf(err); !ok || stage != tt.wantStage {
				t.Errorf("stage = %q (%v), want %q", stage, ok, tt.wantStage)
			}
			if len(client.RankRequests) != tt.wantCalls {
				t.Errorf("made %d page requests, want %d", len(client.RankRequests), tt.wantCalls)
			}
			if wh.KeywordRankCalls != tt.wantLoads {
				t.Errorf("AppendKeywordRanks called %d times, want %d", wh.KeywordRankCalls, tt.wantLoads)
			}
		})
	}
}

func TestKeywordRankFetcher_InvalidPeriod(t *testing.T) {
	client := &MockInsightClient{}
	req := weekRequest()
	req.DateType = window.Period("year")

	_, err := NewKeywordRankFetcher(client, &MockWarehouse{}).Fetch(context.Background(), req)
	if err == nil {
		t.Fatal("Expected error for unknown period")
	}
	if stage, ok := failure.StageOf(err); ok {
		t.Errorf("input error tagged with stage %q, want no stage", stage)
	}
	if len(client.RankRequests) != 0 {
		t.Errorf("made %d page requests, want 0", len(client.RankRequests))
	}
}
