package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/tradelens/tradelens/internal/models"
)

// YahooFinanceClient serves intraday data without an API key. It is the
// fallback market provider when Alpha Vantage is not configured.
type YahooFinanceClient struct {
	cache    *CacheManager
	interval string
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(config *Config) *YahooFinanceClient {
	cacheDir := filepath.Join(config.DataCacheDir, "yahoo_finance")
	ttl := time.Duration(config.CacheTTLMinutes) * time.Minute
	cache := NewCacheManager(cacheDir, ttl, config.CacheEnabled)

	interval := config.IntradayInterval
	if interval == "" {
		interval = "5min"
	}

	return &YahooFinanceClient{
		cache:    cache,
		interval: interval,
	}
}

func (yf *YahooFinanceClient) Name() string { return "yahoo" }

// GetIntraday fetches today's five-minute bars for a symbol.
func (yf *YahooFinanceClient) GetIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached models.PriceSeries
	if yf.cache.Get("yahoo", "intraday", symbol, &cached) {
		return &cached, nil
	}

	end := time.Now()
	start := end.AddDate(0, 0, -1)

	var result *models.PriceSeries
	var dataErr error
	err := WithRetry(DefaultRetryConfig(), func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.FiveMins,
		}

		iter := chart.Get(params)

		points := make([]models.PricePoint, 0)
		for iter.Next() {
			bar := iter.Bar()
			points = append(points, models.PricePoint{
				Time:  time.Unix(int64(bar.Timestamp), 0),
				Price: bar.Close,
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get intraday data for %s: %w", symbol, err)
		}
		if len(points) == 0 {
			// A thin session can still have a last trade; a single quote
			// point lets the caller degrade instead of failing outright.
			if price, qErr := yf.GetQuote(ctx, symbol); qErr == nil {
				result = seriesFromQuote(symbol, yf.interval, price, time.Now())
				return nil
			}
			// Unavailable data is terminal, retrying will not change the answer.
			dataErr = fmt.Errorf("%w: no bars for %s", ErrDataUnavailable, symbol)
			return nil
		}

		result = &models.PriceSeries{
			Symbol:    symbol,
			Interval:  yf.interval,
			Points:    points,
			FetchedAt: time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dataErr != nil {
		return nil, dataErr
	}

	yf.cache.Set("yahoo", "intraday", symbol, result)
	return result, nil
}

// seriesFromQuote wraps one observed price in a series so downstream code
// treats it like any other short fetch.
func seriesFromQuote(symbol, interval string, price decimal.Decimal, at time.Time) *models.PriceSeries {
	return &models.PriceSeries{
		Symbol:    symbol,
		Interval:  interval,
		Points:    []models.PricePoint{{Time: at, Price: price}},
		FetchedAt: at,
	}
}

// GetQuote returns the latest traded price for a symbol. It backs GetIntraday
// when the chart endpoint has no bars for the session.
func (yf *YahooFinanceClient) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return decimal.Zero, err
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	symbol = NormalizeSymbol(symbol)

	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if q == nil {
		return decimal.Zero, fmt.Errorf("%w: no quote for %s", ErrDataUnavailable, symbol)
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}
