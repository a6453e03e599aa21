package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/shopping-insight/internal/failure"
	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
)

// transformCategoryResponse flattens the childList of a category response into rows.
func transformCategoryResponse(body map[string]interface{}) ([]*infra.CategoryRow, error) {
	children, err := getObjectList(body, "childList")
	if err != nil {
		return nil, fmt.Errorf("transformCategoryResponse: %w", err)
	}

	rows := make([]*infra.CategoryRow, 0, len(children))
	for i, obj := range children {
		cid, err := getIDField(obj, "cid")
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		pid, err := getIDField(obj, "pid")
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		name, err := getStringField(obj, "name")
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		parentPath, err := getStringField(obj, "parentPath")
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		level, err := getInt64Field(obj, "level")
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}

		rows = append(rows, &infra.CategoryRow{
			CID:        cid,
			PID:        pid,
			Name:       name,
			ParentPath: parentPath,
			Level:      level,
		})
	}

	return rows, nil
}

// rankEntries returns the ranks array of one ranking page.
func rankEntries(body map[string]interface{}) ([]map[string]interface{}, error) {
	entries, err := getObjectList(body, "ranks")
	if err != nil {
		return nil, fmt.Errorf("rankEntries: %w", err)
	}
	return entries, nil
}

// rankedKeyword is one ranking entry with linkId and any other extra keys dropped.
type rankedKeyword struct {
	Keyword string
	Rank    int64
}

func transformRankEntry(obj map[string]interface{}) (rankedKeyword, error) {
	keyword, err := getStringField(obj, "keyword")
	if err != nil {
		return rankedKeyword{}, err
	}
	rank, err := getInt64Field(obj, "rank")
	if err != nil {
		return rankedKeyword{}, err
	}
	return rankedKeyword{Keyword: keyword, Rank: rank}, nil
}

func getObjectList(m map[string]interface{}, key string) ([]map[string]interface{}, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", failure.ErrResponseShape, key)
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want array", failure.ErrResponseShape, key, v)
	}

	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T, want object", failure.ErrResponseShape, key, i, item)
		}
		out = append(out, obj)
	}
	return out, nil
}

// getStringField reads a required string. JSON null reads as "".
func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required field %q", failure.ErrResponseShape, key)
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		return "", fmt.Errorf("%w: field %q has type %T, want string", failure.ErrSchemaMismatch, key, v)
	}
}

// getIDField reads an identifier sent either as a JSON string or a JSON number.
// Numbers keep their literal text.
func getIDField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required field %q", failure.ErrResponseShape, key)
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: field %q has type %T, want string or number", failure.ErrSchemaMismatch, key, v)
	}
}

// getInt64Field reads an integer sent as a JSON number or a numeric string.
func getInt64Field(m map[string]interface{}, key string) (int64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing required field %q", failure.ErrResponseShape, key)
	}

	var text string
	switch val := v.(type) {
	case json.Number:
		text = val.String()
	case string:
		text = strings.TrimSpace(val)
	case float64:
		text = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return 0, fmt.Errorf("%w: field %q has type %T, want integer", failure.ErrSchemaMismatch, key, v)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	// Accept integral values written in float notation, e.g. "3.0" or "1e2".
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: field %q value %q is not an integer", failure.ErrSchemaMismatch, key, text)
	}
	return int64(f), nil
}
