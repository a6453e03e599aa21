package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/insight"
)

// MockInsightClient is a mock implementation of InsightClient for testing.
type MockInsightClient struct {
	FetchCategoryFunc func(ctx context.Context, cid string) (map[string]interface{}, error)
	FetchRankPageFunc func(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error)

	RankRequests []insight.RankPageRequest
}

func (m *MockInsightClient) FetchCategory(ctx context.Context, cid string) (map[string]interface{}, error) {
	if m.FetchCategoryFunc != nil {
		return m.FetchCategoryFunc(ctx, cid)
	}
	return map[string]interface{}{"childList": []interface{}{}}, nil
}

func (m *MockInsightClient) FetchRankPage(ctx context.Context, req insight.RankPageRequest) (map[string]interface{}, error) {
	m.RankRequests = append(m.RankRequests, req)
	if m.FetchRankPageFunc != nil {
		return m.FetchRankPageFunc(ctx, req)
	}
	return map[string]interface{}{"ranks": []interface{}{}}, nil
}

// MockWarehouse is a mock implementation of Warehouse for testing.
type MockWarehouse struct {
	AppendCategoriesFunc   func(ctx context.Context, destination string, rows []*infra.CategoryRow) error
	AppendKeywordRanksFunc func(ctx context.Context, destination string, rows []*infra.KeywordRankRow) error

	CategoryCalls    int
	KeywordRankCalls int
	CategoryRows     []*infra.CategoryRow
	KeywordRankRows  []*infra.KeywordRankRow
}

func (m *MockWarehouse) AppendCategories(ctx context.Context, destination string, rows []*infra.CategoryRow) error {
	m.CategoryCalls++
	m.CategoryRows = rows
	if m.AppendCategoriesFunc != nil {
		return m.AppendCategoriesFunc(ctx, destination, rows)
	}
	return nil
}

func (m *MockWarehouse) AppendKeywordRanks(ctx context.Context, destination string, rows []*infra.KeywordRankRow) error {
	m.KeywordRankCalls++
	m.KeywordRankRows = rows
	if m.AppendKeywordRanksFunc != nil {
		return m.AppendKeywordRanksFunc(ctx, destination, rows)
	}
	return nil
}

// MockRankFetcher is a mock implementation of RankFetcher for testing.
type MockRankFetcher struct {
	FetchFunc func(ctx context.Context, req KeywordRankRequest) (int, error)

	Requests []KeywordRankRequest
}

func (m *MockRankFetcher) Fetch(ctx context.Context, req KeywordRankRequest) (int, error) {
	m.Requests = append(m.Requests, req)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, req)
	}
	return 0, nil
}

// decodeJSON decodes a fixture the way the insight client does.
func decodeJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return m
}
