package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tradelens/tradelens/internal/models"
)

const articleFixture = `<!DOCTYPE html>
<html>
<head>
	<title>Fallback title</title>
	<meta property="og:site_name" content="Example News">
	<meta property="article:published_time" content="2024-03-15T10:30:00Z">
</head>
<body>
	<h1>Apple shares climb after earnings</h1>
	<article>
		<p>Apple reported quarterly revenue above expectations.</p>
		<p>Shares rose in after-hours trading.</p>
		<p></p>
		<p>Analysts raised their price targets.</p>
	</article>
</body>
</html>`

func TestFetchArticleContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleFixture))
	}))
	defer server.Close()

	ns := NewNewsScraperClient(&Config{DataCacheDir: t.TempDir(), CacheEnabled: false})

	article := &models.Article{URL: server.URL + "/story"}
	if err := ns.FetchArticleContent(context.Background(), article); err != nil {
		t.Fatalf("FetchArticleContent: %v", err)
	}

	wantContent := "Apple reported quarterly revenue above expectations.\n" +
		"Shares rose in after-hours trading.\n" +
		"Analysts raised their price targets."
	if article.Content != wantContent {
		t.Errorf("unexpected content:\n%s", article.Content)
	}
	if article.Title != "Apple shares climb after earnings" {
		t.Errorf("unexpected title %q", article.Title)
	}
	if article.Source != "Example News" {
		t.Errorf("unexpected source %q", article.Source)
	}
}

func TestFetchArticleContentKeepsSnippetFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Full text here.</p></body></html>`))
	}))
	defer server.Close()

	ns := NewNewsScraperClient(&Config{DataCacheDir: t.TempDir(), CacheEnabled: false})

	article := &models.Article{
		URL:     server.URL,
		Title:   "Original headline",
		Source:  "Search",
		Content: "snippet",
	}
	if err := ns.FetchArticleContent(context.Background(), article); err != nil {
		t.Fatalf("FetchArticleContent: %v", err)
	}
	if article.Title != "Original headline" {
		t.Errorf("scrape should not overwrite an existing title, got %q", article.Title)
	}
	if article.Content != "Full text here." {
		t.Errorf("expected scraped content, got %q", article.Content)
	}
}

func TestEnrichArticlesToleratesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body><p>Scraped body.</p></body></html>`))
	}))
	defer server.Close()

	ns := NewNewsScraperClient(&Config{DataCacheDir: t.TempDir(), CacheEnabled: false})

	articles := []*models.Article{
		{URL: server.URL + "/ok", Content: "snippet one"},
		{URL: server.URL + "/missing", Content: "snippet two"},
	}
	ns.EnrichArticles(context.Background(), articles)

	if articles[0].Content != "Scraped body." {
		t.Errorf("expected scraped content for first article, got %q", articles[0].Content)
	}
	if articles[1].Content != "snippet two" {
		t.Errorf("expected snippet kept on scrape failure, got %q", articles[1].Content)
	}
}

func TestParseRelativeTime(t *testing.T) {
	ns := NewNewsScraperClient(&Config{DataCacheDir: t.TempDir()})
	now := time.Now()

	got := ns.parseRelativeTime("3 hours ago")
	want := now.Add(-3 * time.Hour)
	if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
		t.Errorf("expected roughly 3 hours ago, got %v", got)
	}

	got = ns.parseRelativeTime("2 days ago")
	want = now.Add(-48 * time.Hour)
	if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
		t.Errorf("expected roughly 2 days ago, got %v", got)
	}
}

func TestCleanGoogleNewsURL(t *testing.T) {
	ns := NewNewsScraperClient(&Config{DataCacheDir: t.TempDir()})

	tests := []struct {
		in   string
		want string
	}{
		{"./articles/abc123", "https://news.google.com/articles/abc123"},
		{"/articles/abc123", "https://news.google.com/articles/abc123"},
		{"https://example.com/story", "https://example.com/story"},
		{"https://news.google.com/rss?url=https%3A%2F%2Fexample.com%2Fstory", "https://example.com/story"},
	}
	for _, tt := range tests {
		if got := ns.cleanGoogleNewsURL(tt.in); got != tt.want {
			t.Errorf("cleanGoogleNewsURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
