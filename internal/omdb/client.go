package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviehub/internal/metrics"
)

const defaultBaseURL = "https://www.omdbapi.com/"

// Client talks to the OMDb HTTP API (or any server that speaks the same
// protocol, such as cmd/mock-upstream).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   RetryConfig
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, mostly useful for
// custom timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry overrides the retry policy for upstream calls.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		if cfg.MaxAttempts > 0 {
			c.retry = cfg
		}
	}
}

func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("omdb: api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchItem is one row of an upstream title search.
type SearchItem struct {
	IMDbID string
	Title  string
	Year   string
	Poster string
}

// SearchPage holds one page of search results plus the upstream's total
// match count across all pages.
type SearchPage struct {
	Items []SearchItem
	Total int
}

// Details is the full record the upstream keeps for a single title.
// Fields stay in the upstream's string form ("148 min", "N/A", ...);
// ToMovie handles the parsing.
type Details struct {
	IMDbID   string
	Title    string
	Year     string
	Runtime  string
	Genre    string
	Director string
	Poster   string
}

type searchResponse struct {
	Search       []searchItemJSON `json:"Search"`
	TotalResults string           `json:"totalResults"`
	Response     string           `json:"Response"`
	Error        string           `json:"Error"`
}

type searchItemJSON struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type detailsResponse struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Director string `json:"Director"`
	Poster   string `json:"Poster"`
	IMDbID   string `json:"imdbID"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// SearchTitles runs a paged title search. An upstream "not found" answer
// is an empty page, not an error.
func (c *Client) SearchTitles(ctx context.Context, query string, page int) (*SearchPage, error) {
	if strings.TrimSpace(query) == "" {
		return &SearchPage{}, nil
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("s", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("type", "movie")

	var payload searchResponse
	err := retryWithBackoff(ctx, c.retry, "search", func() error {
		payload = searchResponse{}
		return c.getJSON(ctx, "search", params, &payload)
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, err
	}

	if !strings.EqualFold(payload.Response, "True") {
		if isEmptyResult(payload.Error) {
			metrics.UpstreamRequestsTotal.WithLabelValues("search", "not_found").Inc()
			return &SearchPage{}, nil
		}
		metrics.UpstreamRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("omdb search %q: %s", query, payload.Error)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("search", "ok").Inc()
	out := &SearchPage{Total: parseTotal(payload.TotalResults)}
	for _, it := range payload.Search {
		out.Items = append(out.Items, SearchItem{
			IMDbID: it.IMDbID,
			Title:  it.Title,
			Year:   it.Year,
			Poster: it.Poster,
		})
	}
	return out, nil
}

// GetDetails fetches the full record for one upstream id. Returns
// (nil, nil) when the upstream has no record for it.
func (c *Client) GetDetails(ctx context.Context, imdbID string) (*Details, error) {
	if strings.TrimSpace(imdbID) == "" {
		return nil, errors.New("omdb details: empty imdb id")
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "short")

	var payload detailsResponse
	err := retryWithBackoff(ctx, c.retry, "details", func() error {
		payload = detailsResponse{}
		return c.getJSON(ctx, "details", params, &payload)
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("details", "error").Inc()
		return nil, err
	}

	if !strings.EqualFold(payload.Response, "True") {
		metrics.UpstreamRequestsTotal.WithLabelValues("details", "not_found").Inc()
		return nil, nil
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("details", "ok").Inc()
	d := &Details{
		IMDbID:   payload.IMDbID,
		Title:    payload.Title,
		Year:     payload.Year,
		Runtime:  payload.Runtime,
		Genre:    payload.Genre,
		Director: payload.Director,
		Poster:   payload.Poster,
	}
	if d.IMDbID == "" {
		d.IMDbID = imdbID
	}
	return d, nil
}

func (c *Client) getJSON(ctx context.Context, op string, params url.Values, out any) error {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("omdb %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(latency.Seconds())
	if err != nil {
		return fmt.Errorf("omdb %s request failed after %v: %w", op, latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("omdb %s returned status %d after %v: %w", op, resp.StatusCode, latency, errTemporary)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("omdb %s returned status %d after %v", op, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("omdb %s: decode response: %w", op, err)
	}
	return nil
}

// isEmptyResult reports whether an upstream error message means "no
// matches" rather than a real failure. OMDb answers "Movie not found!"
// for misses and "Too many results." for one-letter queries.
func isEmptyResult(errText string) bool {
	t := strings.ToLower(errText)
	return strings.Contains(t, "not found") || strings.Contains(t, "too many results")
}

func parseTotal(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
