package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalScraper_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Acme Corp</title></head><body>
			<nav>menu</nav>
			<p>We provide managed security services to mid-market companies across three continents.</p>
			<script>console.log("noise")</script>
			<footer>copyright</footer>
		</body></html>`)
	}))
	defer srv.Close()

	l := NewLocalScraper()
	result, err := l.Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", result.Page.Title)
	assert.Contains(t, result.Page.Text, "managed security services")
	assert.NotContains(t, result.Page.Text, "console.log")
	assert.NotContains(t, result.Page.Text, "menu")
	assert.Equal(t, "local_http", result.Source)
}

func TestLocalScraper_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("not found ", 20), http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLocalScraper()
	_, err := l.Scrape(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestLocalScraper_BlockedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Checking your browser before accessing example.com. Please wait while we verify.</body></html>")
	}))
	defer srv.Close()

	l := NewLocalScraper()
	_, err := l.Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestLocalScraper_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	l := NewLocalScraper()
	_, err := l.Scrape(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestStripHTML_Entities(t *testing.T) {
	got := StripHTML("<p>R&amp;D &quot;labs&quot;&nbsp;&gt; rest</p>")
	assert.Equal(t, `R&D "labs" > rest`, got)
}
