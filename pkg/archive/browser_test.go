// ABOUTME: Tests for the archive browser
// ABOUTME: Query and sort changes, error retention and superseded refreshes
package archive

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchCall struct {
	query string
	sort  SortKey
}

// scriptedSearcher answers with fixed results; a non-nil gate blocks the
// first call until it is closed
type scriptedSearcher struct {
	mu      sync.Mutex
	calls   []searchCall
	results map[string][]Record
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (s *scriptedSearcher) Search(ctx context.Context, query string, sort SortKey) ([]Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, searchCall{query, sort})
	first := len(s.calls) == 1
	gate := s.gate
	err := s.err
	s.mu.Unlock()

	if first && gate != nil {
		close(s.entered)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return s.results[query], nil
}

func TestBrowserRefresh(t *testing.T) {
	s := &scriptedSearcher{results: map[string][]Record{"": fixtures}}
	var updates []View
	b := NewBrowser(s, BrowserConfig{OnUpdate: func(v View) { updates = append(updates, v) }})

	b.Refresh()

	require.Len(t, updates, 2)
	assert.True(t, updates[0].Loading)
	assert.False(t, updates[1].Loading)
	assert.Equal(t, fixtures, b.View().Records)
	assert.Equal(t, DefaultSort, b.View().Sort)
	assert.False(t, b.View().Updated.IsZero())
}

func TestBrowserQueryAndSort(t *testing.T) {
	s := &scriptedSearcher{results: map[string][]Record{"pagi": fixtures[1:]}}
	b := NewBrowser(s, BrowserConfig{})

	b.SetQuery("pagi")
	b.SetSort(SortTitleDesc)

	assert.Equal(t, []searchCall{{"pagi", DefaultSort}, {"pagi", SortTitleDesc}}, s.calls)
	assert.Equal(t, fixtures[1:], b.View().Records)
	assert.Equal(t, "pagi", b.View().Query)
}

func TestBrowserKeepsRecordsOnError(t *testing.T) {
	s := &scriptedSearcher{results: map[string][]Record{"": fixtures}}
	b := NewBrowser(s, BrowserConfig{})
	b.Refresh()

	s.mu.Lock()
	s.err = errors.New("archive down")
	s.mu.Unlock()
	b.Refresh()

	v := b.View()
	assert.EqualError(t, v.Err, "archive down")
	assert.Equal(t, fixtures, v.Records)
}

func TestBrowserDiscardsSupersededResults(t *testing.T) {
	s := &scriptedSearcher{
		results: map[string][]Record{"old": fixtures, "new": fixtures[:1]},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	b := NewBrowser(s, BrowserConfig{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.SetQuery("old")
	}()

	<-s.entered
	b.SetQuery("new")
	close(s.gate)
	<-done

	v := b.View()
	assert.Equal(t, "new", v.Query)
	assert.Equal(t, fixtures[:1], v.Records)
	assert.False(t, v.Loading)
}
