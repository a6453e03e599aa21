package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
)

func TestCategoryFetcher_Fetch(t *testing.T) {
	var gotCID, gotDest string
	client := &MockInsightClient{
		FetchCategoryFunc: func(ctx context.Context, cid string) (map[string]interface{}, error) {
			gotCID = cid
			return decodeJSON(t, `{"childList": [
				{"cid": 50000167, "pid": 50000000, "name": "A", "parentPath": "Fashion", "level": 2},
				{"cid": 50000168, "pid": 50000000, "name": "B", "parentPath": "Fashion", "level": 2},
				{"cid": 50000169, "pid": 50000000, "name": "C", "parentPath": "Fashion", "level": 2}
			]}`), nil
		},
	}
	wh := &MockWarehouse{
		AppendCategoriesFunc: func(ctx context.Context, destination string, rows []*infra.CategoryRow) error {
			gotDest = destination
			return nil
		},
	}

	n, err := NewCategoryFetcher(client, wh).Fetch(context.Background(), "50000000", "insight.categories")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Fetch returned %d, want 3", n)
	}
	if gotCID != "50000000" {
		t.Errorf("requested cid %q, want 50000000", gotCID)
	}
	if gotDest != "insight.categories" {
		t.Errorf("destination = %q, want insight.categories", gotDest)
	}
	if wh.CategoryCalls != 1 || len(wh.CategoryRows) != 3 {
		t.Fatalf("appended %d rows in %d calls, want 3 rows in 1 call", len(wh.CategoryRows), wh.CategoryCalls)
	}
	if wh.CategoryRows[0].CID != "50000167" || wh.CategoryRows[0].PID != "50000000" {
		t.Errorf("first row = %+v", wh.CategoryRows[0])
	}
}

func TestCategoryFetcher_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]interface{}
		fetchErr  error
		appendErr error
		wantKind  error
		wantStage failure.Stage
		wantLoads int
	}{
		{
			name:      "transport",
			fetchErr:  fmt.Errorf("FetchCategory: %w", failure.ErrTransport),
			wantKind:  failure.ErrTransport,
			wantStage: failure.StageFetch,
		},
		{
			name:      "missing childList",
			body:      map[string]interface{}{"cid": "1"},
			wantKind:  failure.ErrResponseShape,
			wantStage: failure.StageNormalize,
		},
		{
			name:      "load failure",
			body:      map[string]interface{}{"childList": []interface{}{}},
			appendErr: fmt.Errorf("AppendCategories: %w", failure.ErrAuthentication),
			wantKind:  failure.ErrAuthentication,
			wantStage: failure.StageLoad,
			wantLoads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockInsightClient{
				FetchCategoryFunc: func(ctx context.Context, cid string) (map[string]interface{}, error) {
					return tt.body, tt.fetchErr
				},
			}
			wh := &MockWarehouse{
				AppendCategoriesFunc: func(ctx context.Context, destination string, rows []*infra.CategoryRow) error {
					return tt.appendErr
				},
			}

			_, err := NewCategoryFetcher(client, wh).Fetch(context.Background(), "1", "d.t")
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want kind %v", err, tt.wantKind)
			}
			if stage, _ := failure.StageOf(err); stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", stage, tt.wantStage)
			}
			if wh.CategoryCalls != tt.wantLoads {
				t.Errorf("AppendCategories called %d times, want %d", wh.CategoryCalls, tt.wantLoads)
			}
		})
	}
}
