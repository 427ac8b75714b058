// ABOUTME: Archive view model holding the current query and its results
// ABOUTME: Refreshed on demand and after a broadcast ends; the newest refresh wins
package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Searcher runs archive queries
type Searcher interface {
	Search(ctx context.Context, query string, sort SortKey) ([]Record, error)
}

// View is a snapshot of the browser state
type View struct {
	Query   string
	Sort    SortKey
	Records []Record
	Err     error
	Loading bool
	Updated time.Time
}

// BrowserConfig holds browser configuration
type BrowserConfig struct {
	// OnUpdate is called after every state change, from the refreshing goroutine
	OnUpdate func(View)

	// Timeout bounds one refresh (default: 10s)
	Timeout time.Duration

	Logger *slog.Logger
}

// Browser keeps the archive list in sync with the current query. It
// implements relay.Refresher.
type Browser struct {
	searcher Searcher
	config   BrowserConfig
	logger   *slog.Logger

	mu   sync.Mutex
	view View
	gen  uint64
}

// NewBrowser creates a browser with an empty query and the default sort
func NewBrowser(searcher Searcher, config BrowserConfig) *Browser {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Browser{
		searcher: searcher,
		config:   config,
		logger:   config.Logger,
		view:     View{Sort: DefaultSort},
	}
}

// View returns the current state
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// SetQuery changes the filter and refreshes
func (b *Browser) SetQuery(query string) {
	b.mu.Lock()
	b.view.Query = query
	b.mu.Unlock()

	b.Refresh()
}

// SetSort changes the order and refreshes
func (b *Browser) SetSort(sort SortKey) {
	b.mu.Lock()
	b.view.Sort = ParseSortKey(string(sort))
	b.mu.Unlock()

	b.Refresh()
}

// Refresh re-runs the current query. Results of a refresh that was overtaken
// by a newer one are discarded.
func (b *Browser) Refresh() {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	query, sort := b.view.Query, b.view.Sort
	b.view.Loading = true
	loading := b.view
	b.mu.Unlock()

	b.notify(loading)

	ctx, cancel := context.WithTimeout(context.Background(), b.config.Timeout)
	defer cancel()

	records, err := b.searcher.Search(ctx, query, sort)

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		b.logger.Debug("Discarding superseded archive results", "query", query)
		return
	}
	b.view.Loading = false
	b.view.Err = err
	if err == nil {
		b.view.Records = records
		b.view.Updated = time.Now()
	}
	view := b.view
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("Archive refresh failed", "query", query, "error", err)
	}
	b.notify(view)
}

func (b *Browser) notify(v View) {
	if b.config.OnUpdate != nil {
		b.config.OnUpdate(v)
	}
}
