// ABOUTME: Tests for the archive HTTP client
// ABOUTME: Search parameters, downloads, duration formatting and the circuit breaker
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

var fixtures = []Record{
	{ID: 2, Title: "Kuliah Subuh", Date: "2024-05-02", StartTime: "05:00:00", Duration: ptr(1834), Filename: "siaran_20240502_050000.mp3"},
	{ID: 1, Title: "Kajian Pagi", Date: "2024-05-01", StartTime: "08:00:00", Filename: "siaran_20240501_080000.mp3"},
}

type archiveServer struct {
	*httptest.Server
	lastQuery atomic.Value
	lastSort  atomic.Value
	hits      atomic.Int32
	status    atomic.Int32
}

func newArchiveServer(t *testing.T) *archiveServer {
	t.Helper()
	s := &archiveServer{}
	s.status.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.lastQuery.Store(r.URL.Query().Get("q"))
		s.lastSort.Store(r.URL.Query().Get("sort"))
		if code := int(s.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fixtures)
	})
	mux.HandleFunc("/rekaman/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rekaman/siaran_20240501_080000.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3-audio"))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, OpenTimeout: time.Minute})
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://relay"})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "://"})
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	srv := newArchiveServer(t)
	c := newTestClient(t, srv.URL+"/")

	records, err := c.Search(context.Background(), "kajian pagi", SortTitleAsc)
	require.NoError(t, err)

	assert.Equal(t, fixtures, records)
	assert.Equal(t, "kajian pagi", srv.lastQuery.Load())
	assert.Equal(t, "title_asc", srv.lastSort.Load())
}

func TestSearchNormalizesSort(t *testing.T) {
	srv := newArchiveServer(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Search(context.Background(), "", SortKey("random"))
	require.NoError(t, err)
	assert.Equal(t, "date_desc", srv.lastSort.Load())
}

func TestSearchServerError(t *testing.T) {
	srv := newArchiveServer(t)
	srv.status.Store(http.StatusInternalServerError)
	c := newTestClient(t, srv.URL)

	_, err := c.Search(context.Background(), "", DefaultSort)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestSearchBreakerOpens(t *testing.T) {
	srv := newArchiveServer(t)
	srv.status.Store(http.StatusBadGateway)
	c := newTestClient(t, srv.URL)

	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "", DefaultSort)
		require.Error(t, err)
	}
	assert.False(t, c.Available())

	_, err := c.Search(context.Background(), "", DefaultSort)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), srv.hits.Load())
}

func TestRecordingURL(t *testing.T) {
	c := newTestClient(t, "http://relay.local:5000/")
	assert.Equal(t, "http://relay.local:5000/rekaman/siaran_20240501_080000.mp3",
		c.RecordingURL("siaran_20240501_080000.mp3"))
}

func TestDownload(t *testing.T) {
	srv := newArchiveServer(t)
	c := newTestClient(t, srv.URL)

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "siaran_20240501_080000.mp3", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "ID3-audio", buf.String())

	_, err = c.Download(context.Background(), "missing.mp3", &buf)
	assert.True(t, IsNotFound(err))

	_, err = c.Download(context.Background(), "../etc/passwd", &buf)
	assert.ErrorContains(t, err, "invalid recording name")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds *float64
		want    string
	}{
		{"unknown", nil, ""},
		{"zero", ptr(0), "00:00"},
		{"fractional", ptr(59.9), "00:59"},
		{"minutes", ptr(1834), "30:34"},
		{"over an hour", ptr(3725), "62:05"},
		{"negative", ptr(-1), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestSortKeys(t *testing.T) {
	assert.Equal(t, SortTitleDesc, ParseSortKey("title_desc"))
	assert.Equal(t, DefaultSort, ParseSortKey(""))
	assert.Equal(t, DefaultSort, ParseSortKey("popularity"))

	k := DefaultSort
	seen := map[SortKey]bool{}
	for i := 0; i < 4; i++ {
		seen[k] = true
		k = k.Next()
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, DefaultSort, k)
	assert.Equal(t, "newest first", DefaultSort.Label())
}
