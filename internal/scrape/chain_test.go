package scrape

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct {
	name     string
	supports bool
	err      error
	calls    atomic.Int32
}

func (s *stubScraper) Name() string           { return s.name }
func (s *stubScraper) Supports(_ string) bool { return s.supports }

func (s *stubScraper) Scrape(_ context.Context, url string) (*Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &Result{
		Page:   Page{URL: url, Text: "content from " + s.name, StatusCode: 200},
		Source: s.name,
	}, nil
}

func TestChain_FirstScraperWins(t *testing.T) {
	first := &stubScraper{name: "first", supports: true}
	second := &stubScraper{name: "second", supports: true}
	c := NewChain(NewPathMatcher(nil), first, second)

	result, err := c.Scrape(context.Background(), "https://example.com/about")
	require.NoError(t, err)
	assert.Equal(t, "first", result.Source)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestChain_FallsThroughOnFailure(t *testing.T) {
	first := &stubScraper{name: "first", supports: true, err: errors.New("blocked")}
	second := &stubScraper{name: "second", supports: true}
	c := NewChain(NewPathMatcher(nil), first, second)

	result, err := c.Scrape(context.Background(), "https://example.com/about")
	require.NoError(t, err)
	assert.Equal(t, "second", result.Source)
}

func TestChain_SkipsUnsupported(t *testing.T) {
	first := &stubScraper{name: "first", supports: false}
	second := &stubScraper{name: "second", supports: true}
	c := NewChain(NewPathMatcher(nil), first, second)

	result, err := c.Scrape(context.Background(), "https://example.com/about")
	require.NoError(t, err)
	assert.Equal(t, "second", result.Source)
	assert.Equal(t, int32(0), first.calls.Load())
}

func TestChain_AllFail(t *testing.T) {
	first := &stubScraper{name: "first", supports: true, err: errors.New("down")}
	second := &stubScraper{name: "second", supports: true, err: errors.New("also down")}
	c := NewChain(NewPathMatcher(nil), first, second)

	_, err := c.Scrape(context.Background(), "https://example.com/about")
	require.Error(t, err)
}

func TestChain_ExcludedURL(t *testing.T) {
	s := &stubScraper{name: "only", supports: true}
	c := NewChain(NewPathMatcher(nil), s)

	_, err := c.Scrape(context.Background(), "https://example.com/blog/post-1")
	require.Error(t, err)
	assert.Equal(t, int32(0), s.calls.Load())
}

func TestChain_ScrapeAll(t *testing.T) {
	s := &stubScraper{name: "only", supports: true}
	c := NewChain(NewPathMatcher(nil), s)

	urls := []string{
		"https://example.com/about",
		"https://example.com/services",
		"https://example.com/blog/skipped",
	}
	pages := c.ScrapeAll(context.Background(), urls, 2)
	assert.Len(t, pages, 2)
}

func TestChain_ScrapeAll_PartialFailure(t *testing.T) {
	failing := &stubScraper{name: "flaky", supports: true, err: errors.New("boom")}
	c := NewChain(NewPathMatcher(nil), failing)

	pages := c.ScrapeAll(context.Background(), []string{"https://example.com/a"}, 1)
	assert.Empty(t, pages)
}
