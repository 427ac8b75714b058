// ABOUTME: HTTP client for the broadcast archive
// ABOUTME: Search with filter and sort, recording URLs and downloads behind a circuit breaker
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultTimeout = 10 * time.Second

	searchPath     = "/search"
	recordingsPath = "/rekaman/"
)

// SortKey orders search results
type SortKey string

const (
	SortTitleAsc  SortKey = "title_asc"
	SortTitleDesc SortKey = "title_desc"
	SortDateAsc   SortKey = "date_asc"
	SortDateDesc  SortKey = "date_desc"

	// DefaultSort lists the newest broadcasts first
	DefaultSort = SortDateDesc
)

var sortOrder = []SortKey{SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc}

// ParseSortKey returns the key named s, or DefaultSort when s is unknown
func ParseSortKey(s string) SortKey {
	for _, k := range sortOrder {
		if string(k) == s {
			return k
		}
	}
	return DefaultSort
}

// Next cycles through the sort keys
func (k SortKey) Next() SortKey {
	for i, key := range sortOrder {
		if key == k {
			return sortOrder[(i+1)%len(sortOrder)]
		}
	}
	return DefaultSort
}

// Label is a short human-readable description
func (k SortKey) Label() string {
	switch k {
	case SortTitleAsc:
		return "title A-Z"
	case SortTitleDesc:
		return "title Z-A"
	case SortDateAsc:
		return "oldest first"
	default:
		return "newest first"
	}
}

// Record is one archived broadcast
type Record struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	Duration  *float64 `json:"duration,omitempty"` // seconds
	Filename  string   `json:"filename"`
}

// FormatDuration renders seconds as MM:SS, or "" when unknown
func FormatDuration(seconds *float64) string {
	if seconds == nil || math.IsNaN(*seconds) || *seconds < 0 {
		return ""
	}
	total := int(*seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Config holds archive client configuration
type Config struct {
	// BaseURL is the relay server's HTTP root, e.g. http://localhost:5000
	BaseURL string

	// HTTPClient defaults to a client with a 10s timeout
	HTTPClient *http.Client

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker (default: 3)
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open (default: 30s)
	OpenTimeout time.Duration

	Logger *slog.Logger
}

// Client queries the archive
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates an archive client
func NewClient(config Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid archive URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid archive URL %q: scheme must be http or https", config.BaseURL)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger
	threshold := config.FailureThreshold

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "archive",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"component", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		base:    base,
		http:    config.HTTPClient,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Search returns broadcasts whose title or date contains query, ordered by sort
func (c *Client) Search(ctx context.Context, query string, sort SortKey) ([]Record, error) {
	u := *c.base
	u.Path += searchPath
	u.RawQuery = url.Values{"q": {query}, "sort": {string(ParseSortKey(string(sort)))}}.Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.get(ctx, u.String())
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var records []Record
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
		return records, nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}

	records := result.([]Record)
	c.logger.Debug("Archive search", "query", query, "sort", sort, "results", len(records))
	return records, nil
}

// RecordingURL is where the recording stored as filename can be fetched
func (c *Client) RecordingURL(filename string) string {
	u := *c.base
	u.Path += recordingsPath + filename
	return u.String()
}

// Download copies the recording stored as filename to w
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return 0, fmt.Errorf("invalid recording name %q", filename)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, c.RecordingURL(filename))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch recording: %w", err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download recording: %w", err)
	}
	return n, nil
}

// Available reports whether the breaker currently lets requests through
func (c *Client) Available() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}
	return resp, nil
}

// StatusError reports an unexpected HTTP status
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// IsNotFound reports whether err is a 404 from the archive
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
