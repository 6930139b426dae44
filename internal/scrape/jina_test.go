package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gap-assessment/pkg/jina"
)

type fakeJinaClient struct {
	resp *jina.ReadResponse
	err  error
}

func (f *fakeJinaClient) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	return f.resp, f.err
}

func goodResponse() *jina.ReadResponse {
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			Title:   "Acme",
			URL:     "https://acme.example.com",
			Content: strings.Repeat("Substantive page content about service capabilities. ", 10),
		},
	}
}

func TestJinaAdapter_Success(t *testing.T) {
	a := NewJinaAdapter(&fakeJinaClient{resp: goodResponse()})

	result, err := a.Scrape(context.Background(), "https://acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "Acme", result.Page.Title)
}

func TestJinaAdapter_ShortContentFallsBack(t *testing.T) {
	resp := goodResponse()
	resp.Data.Content = "too short"
	a := NewJinaAdapter(&fakeJinaClient{resp: resp})

	_, err := a.Scrape(context.Background(), "https://acme.example.com")
	require.Error(t, err)
}

func TestJinaAdapter_CircuitBreakerOpens(t *testing.T) {
	a := NewJinaAdapter(&fakeJinaClient{err: errors.New("upstream down")})

	for i := 0; i < 3; i++ {
		_, err := a.Scrape(context.Background(), "https://acme.example.com")
		require.Error(t, err)
	}

	// Circuit open: Supports reports false so the chain skips jina.
	assert.False(t, a.Supports("https://acme.example.com"))
	_, err := a.Scrape(context.Background(), "https://acme.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestNeedsFallback(t *testing.T) {
	assert.True(t, needsFallback(nil))
	assert.False(t, needsFallback(goodResponse()))

	badCode := goodResponse()
	badCode.Code = 451
	assert.True(t, needsFallback(badCode))

	challenge := goodResponse()
	challenge.Data.Content = "Just a moment... checking your browser"
	assert.True(t, needsFallback(challenge))

	// Challenge phrase inside a long legitimate page is fine.
	long := goodResponse()
	long.Data.Content = strings.Repeat("real content ", 100) + "we use cloudflare for CDN"
	assert.False(t, needsFallback(long))
}
