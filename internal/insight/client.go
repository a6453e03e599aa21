// Package insight talks to the Shopping Insight endpoints that serve category
// trees and keyword rankings.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/shopping-insight/internal/failure"
	"github.com/dvloznov/shopping-insight/internal/logger"
)

const (
	DefaultBaseURL   = "https://datalab.naver.com/shoppingInsight"
	DefaultReferer   = "https://datalab.naver.com/shoppingInsight/sCategory.naver"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second

	contentType = "application/x-www-form-urlencoded; charset=UTF-8"

	categoryPath    = "/getCategory.naver"
	keywordRankPath = "/getCategoryKeywordRank.naver"

	// rankTimeUnit is sent on every ranking request; the look-back is expressed
	// through startDate/endDate, not the time unit.
	rankTimeUnit = "date"
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL    string
	Referer    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues blocking requests against the insight endpoints.
type Client struct {
	baseURL   string
	referer   string
	userAgent string
	http      *http.Client
}

// RankPageRequest is the form payload of one ranking page.
type RankPageRequest struct {
	CID       string
	StartDate string
	EndDate   string
	Page      int
	Count     int
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("NewClient: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("NewClient: base URL %q must be absolute", base)
	}

	referer := strings.TrimSpace(opts.Referer)
	if referer == "" {
		referer = DefaultReferer
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	hc := opts.HTTPClient
	if hc == nil {
		to := opts.Timeout
		if to <= 0 {
			to = DefaultTimeout
		}
		hc = &http.Client{Timeout: to}
	}

	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		referer:   referer,
		userAgent: ua,
		http:      hc,
	}, nil
}

// FetchCategory returns the decoded category document for cid.
// Numbers are kept as json.Number so identifiers survive without float rounding.
func (c *Client) FetchCategory(ctx context.Context, cid string) (map[string]interface{}, error) {
	u, err := url.Parse(c.baseURL + categoryPath)
	if err != nil {
		return nil, fmt.Errorf("FetchCategory: building url: %w", err)
	}
	q := u.Query()
	q.Set("cid", cid)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("FetchCategory: building request: %w", err)
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("FetchCategory: cid %s: %w", cid, err)
	}

	doc, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("FetchCategory: cid %s: %w", cid, err)
	}
	return doc, nil
}

// FetchRankPage posts one ranking page request and returns the decoded document.
func (c *Client) FetchRankPage(ctx context.Context, r RankPageRequest) (map[string]interface{}, error) {
	form := url.Values{}
	form.Set("cid", r.CID)
	form.Set("timeUnit", rankTimeUnit)
	form.Set("startDate", r.StartDate)
	form.Set("endDate", r.EndDate)
	form.Set("page", strconv.Itoa(r.Page))
	form.Set("count", strconv.Itoa(r.Count))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+keywordRankPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("FetchRankPage: building request: %w", err)
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("FetchRankPage: page %d: %w", r.Page, err)
	}

	doc, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("FetchRankPage: page %d: %w", r.Page, err)
	}
	return doc, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Referer", c.referer)
	req.Header.Set("User-Agent", c.userAgent)

	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", failure.ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", failure.ErrTransport, err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("insight request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", failure.ErrTransport, resp.StatusCode)
	}
	return body, nil
}

func decode(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", failure.ErrResponseShape, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", failure.ErrResponseShape)
	}
	// Trailing garbage after the object is still a malformed document.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", failure.ErrResponseShape)
	}
	return doc, nil
}
