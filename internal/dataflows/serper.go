package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradelens/tradelens/internal/models"
)

// SerperClient queries the Serper news API for recent coverage of a symbol.
type SerperClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

// NewSerperClient creates a new Serper client
func NewSerperClient(config *Config) *SerperClient {
	cacheDir := filepath.Join(config.DataCacheDir, "serper")
	cache := NewCacheManager(cacheDir, 2*time.Hour, config.CacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://google.serper.dev")
	client.SetTimeout(30 * time.Second)

	return &SerperClient{
		client: client,
		cache:  cache,
		apiKey: config.SerperAPIKey,
	}
}

// SetBaseURL points the client at a different endpoint.
func (sc *SerperClient) SetBaseURL(baseURL string) {
	sc.client.SetBaseURL(baseURL)
}

func (sc *SerperClient) Name() string { return "serper" }

type serperNewsItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

type serperNewsResponse struct {
	News []serperNewsItem `json:"news"`
}

// GetNews searches for news published in the last day about a symbol.
// Articles carry the search snippet as content until a scraper fills in the
// full text.
func (sc *SerperClient) GetNews(ctx context.Context, symbol string, maxArticles int) ([]*models.Article, error) {
	if sc.apiKey == "" {
		return nil, fmt.Errorf("serper API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if maxArticles <= 0 {
		maxArticles = 10
	}

	cacheKey := map[string]interface{}{"symbol": symbol, "num": maxArticles}
	var cached []*models.Article
	if sc.cache.Get("serper", "news", cacheKey, &cached) {
		return cached, nil
	}

	payload := map[string]interface{}{
		"q":   fmt.Sprintf("%s stock news", symbol),
		"num": maxArticles,
		"tbs": "qdr:d", // past day only
	}

	var result []*models.Article
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := sc.client.R().
			SetContext(ctx).
			SetHeader("X-API-KEY", sc.apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post("/news")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var envelope serperNewsResponse
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("failed to parse news response: %w", err)
		}

		result = make([]*models.Article, 0, len(envelope.News))
		for _, item := range envelope.News {
			if item.Link == "" {
				continue
			}
			publishedAt := time.Now()
			if t, err := ParseDateString(item.Date); err == nil {
				publishedAt = t
			}
			result = append(result, &models.Article{
				Title:       item.Title,
				Content:     item.Snippet,
				URL:         item.Link,
				Source:      item.Source,
				PublishedAt: publishedAt,
				Metadata: map[string]string{
					"provider": "serper",
					"date":     item.Date,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result) > maxArticles {
		result = result[:maxArticles]
	}

	sc.cache.Set("serper", "news", cacheKey, result)
	return result, nil
}
