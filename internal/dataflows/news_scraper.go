package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/tradelens/tradelens/internal/models"
)

// NewsScraperClient fetches article pages and extracts their text. It also
// serves as a keyless news source by scraping Google News search results.
type NewsScraperClient struct {
	client *resty.Client
	cache  *CacheManager
}

// NewNewsScraperClient creates a new news scraper client
func NewNewsScraperClient(config *Config) *NewsScraperClient {
	cacheDir := filepath.Join(config.DataCacheDir, "news_scraper")
	cache := NewCacheManager(cacheDir, 2*time.Hour, config.CacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; TradeLens/1.0)")

	return &NewsScraperClient{
		client: client,
		cache:  cache,
	}
}

func (ns *NewsScraperClient) Name() string { return "google_news" }

// GetNews scrapes the Google News search page for recent articles about a
// symbol. Used when no Serper API key is configured.
func (ns *NewsScraperClient) GetNews(ctx context.Context, symbol string, maxArticles int) ([]*models.Article, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if maxArticles <= 0 {
		maxArticles = 10
	}
	query := fmt.Sprintf("%s stock news", symbol)

	cacheKey := map[string]interface{}{"query": query, "num": maxArticles}
	var cached []*models.Article
	if ns.cache.Get("google_news", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en&gl=US&ceid=US:en",
		url.QueryEscape(query))

	var result []*models.Article
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ns.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("failed to fetch Google News: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching Google News", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("failed to parse HTML: %w", err)
		}

		result = ns.parseGoogleNewsHTML(doc, symbol)
		if len(result) > maxArticles {
			result = result[:maxArticles]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ns.cache.Set("google_news", "search", cacheKey, result)
	return result, nil
}

// parseGoogleNewsHTML extracts articles from Google News HTML
func (ns *NewsScraperClient) parseGoogleNewsHTML(doc *goquery.Document, symbol string) []*models.Article {
	var articles []*models.Article

	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		link := s.Find("a").First()
		href, exists := link.Attr("href")
		if !exists {
			return
		}
		articleURL := ns.cleanGoogleNewsURL(href)

		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		timeText := strings.TrimSpace(s.Find("time").Text())

		articles = append(articles, &models.Article{
			Title:       title,
			URL:         articleURL,
			Source:      source,
			PublishedAt: ns.parseRelativeTime(timeText),
			Metadata: map[string]string{
				"provider":     "google_news",
				"original_url": href,
				"time_text":    timeText,
				"symbol":       symbol,
			},
		})
	})

	return articles
}

// cleanGoogleNewsURL removes the Google News redirect wrapper
func (ns *NewsScraperClient) cleanGoogleNewsURL(googleURL string) string {
	if strings.Contains(googleURL, "url=") {
		parts := strings.Split(googleURL, "url=")
		if len(parts) > 1 {
			if decoded, err := url.QueryUnescape(parts[1]); err == nil {
				return decoded
			}
		}
	}
	if strings.HasPrefix(googleURL, "./") {
		return "https://news.google.com" + googleURL[1:]
	}
	if strings.HasPrefix(googleURL, "/") {
		return "https://news.google.com" + googleURL
	}
	return googleURL
}

var (
	minuteAgoRe = regexp.MustCompile(`(\d+)\s*minutes?\s*ago`)
	hourAgoRe   = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	dayAgoRe    = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
)

// parseRelativeTime converts strings like "3 hours ago" to actual time.
// Unparseable text is assumed to be about an hour old.
func (ns *NewsScraperClient) parseRelativeTime(timeText string) time.Time {
	now := time.Now()
	timeText = strings.ToLower(strings.TrimSpace(timeText))

	if timeText == "just now" {
		return now
	}
	if m := minuteAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n := parseNumber(m[1]); n > 0 {
			return now.Add(-time.Duration(n) * time.Minute)
		}
	}
	if m := hourAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n := parseNumber(m[1]); n > 0 {
			return now.Add(-time.Duration(n) * time.Hour)
		}
	}
	if m := dayAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n := parseNumber(m[1]); n > 0 {
			return now.Add(-time.Duration(n) * 24 * time.Hour)
		}
	}

	return now.Add(-1 * time.Hour)
}

// parseNumber safely converts string to int
func parseNumber(s string) int {
	var result int
	fmt.Sscanf(s, "%d", &result)
	return result
}

// FetchArticleContent downloads an article page and fills in its content by
// joining the page's paragraph text. The original snippet is kept when the
// page yields nothing usable.
func (ns *NewsScraperClient) FetchArticleContent(ctx context.Context, article *models.Article) error {
	if article == nil || strings.TrimSpace(article.URL) == "" {
		return fmt.Errorf("article URL cannot be empty")
	}

	var cached models.Article
	if ns.cache.Get("article", "content", article.URL, &cached) {
		applyScraped(article, &cached)
		return nil
	}

	resp, err := ns.client.R().SetContext(ctx).Get(article.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch article: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("HTTP error %d when fetching article", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	scraped := ns.extractArticleContent(doc, article.URL)
	ns.cache.Set("article", "content", article.URL, scraped)
	applyScraped(article, scraped)
	return nil
}

// EnrichArticles scrapes full text for each article. Scrape failures leave
// the snippet in place rather than failing the batch.
func (ns *NewsScraperClient) EnrichArticles(ctx context.Context, articles []*models.Article) {
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return
		}
		_ = ns.FetchArticleContent(ctx, a)
	}
}

func applyScraped(dst *models.Article, scraped *models.Article) {
	if scraped.Content != "" {
		dst.Content = scraped.Content
	}
	if dst.Title == "" && scraped.Title != "" {
		dst.Title = scraped.Title
	}
	if dst.Source == "" && scraped.Source != "" {
		dst.Source = scraped.Source
	}
}

// extractArticleContent pulls title, paragraphs and metadata from a page.
func (ns *NewsScraperClient) extractArticleContent(doc *goquery.Document, articleURL string) *models.Article {
	title := ""
	for _, selector := range []string{"h1", "title", ".headline", ".article-title", ".entry-title"} {
		if t := strings.TrimSpace(doc.Find(selector).First().Text()); t != "" {
			title = t
			break
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := strings.Join(paragraphs, "\n")

	source := ""
	if meta := doc.Find("meta[property='og:site_name']"); meta.Length() > 0 {
		source, _ = meta.Attr("content")
	}
	if source == "" {
		if u, err := url.Parse(articleURL); err == nil {
			source = u.Host
		}
	}

	publishedAt := time.Now()
	if meta := doc.Find("meta[property='article:published_time']"); meta.Length() > 0 {
		if dateStr, exists := meta.Attr("content"); exists {
			if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
				publishedAt = t
			}
		}
	}

	return &models.Article{
		Title:       title,
		Content:     content,
		URL:         articleURL,
		Source:      source,
		PublishedAt: publishedAt,
		Metadata: map[string]string{
			"scraper": "url_content",
		},
	}
}
