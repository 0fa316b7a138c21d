package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/tradelens/tradelens/internal/models"
)

// AlphaVantageClient handles Alpha Vantage API operations
type AlphaVantageClient struct {
	client   *resty.Client
	cache    *CacheManager
	apiKey   string
	interval string
}

// NewAlphaVantageClient creates a new Alpha Vantage client
func NewAlphaVantageClient(config *Config) *AlphaVantageClient {
	cacheDir := filepath.Join(config.DataCacheDir, "alphavantage")
	ttl := time.Duration(config.CacheTTLMinutes) * time.Minute
	cache := NewCacheManager(cacheDir, ttl, config.CacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://www.alphavantage.co")
	client.SetTimeout(30 * time.Second)

	interval := config.IntradayInterval
	if interval == "" {
		interval = "5min"
	}

	return &AlphaVantageClient{
		client:   client,
		cache:    cache,
		apiKey:   config.AlphaVantageAPIKey,
		interval: interval,
	}
}

// SetBaseURL points the client at a different endpoint.
func (av *AlphaVantageClient) SetBaseURL(baseURL string) {
	av.client.SetBaseURL(baseURL)
}

func (av *AlphaVantageClient) Name() string { return "alphavantage" }

// intradayResponse mirrors the wire format. Bar values arrive as strings and
// time-series keys are timestamps in the exchange's local time.
type intradayResponse struct {
	MetaData     map[string]string            `json:"Meta Data"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	ErrorMessage string                       `json:"Error Message"`
}

// GetIntraday fetches the most recent intraday closes for a symbol. Points
// come back sorted oldest to newest.
func (av *AlphaVantageClient) GetIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("alpha vantage API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]string{"symbol": symbol, "interval": av.interval}
	var cached models.PriceSeries
	if av.cache.Get("alphavantage", "intraday", cacheKey, &cached) {
		return &cached, nil
	}

	// Unavailable data is terminal, retrying will not change the answer.
	var result *models.PriceSeries
	var dataErr error
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"function":   "TIME_SERIES_INTRADAY",
				"symbol":     symbol,
				"interval":   av.interval,
				"outputsize": "compact",
				"apikey":     av.apiKey,
			}).
			Get("/query")
		if err != nil {
			return fmt.Errorf("failed to fetch intraday data for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		series, err := av.parseIntraday(resp.Body(), symbol)
		if err != nil {
			if errors.Is(err, ErrDataUnavailable) {
				dataErr = err
				return nil
			}
			return err
		}
		result = series
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dataErr != nil {
		return nil, dataErr
	}

	av.cache.Set("alphavantage", "intraday", cacheKey, result)
	return result, nil
}

func (av *AlphaVantageClient) parseIntraday(body []byte, symbol string) (*models.PriceSeries, error) {
	var envelope intradayResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse intraday response: %w", err)
	}
	if envelope.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, envelope.ErrorMessage)
	}
	if envelope.Note != "" {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, envelope.Note)
	}
	if envelope.Information != "" {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, envelope.Information)
	}

	// The time-series key embeds the interval, e.g. "Time Series (5min)".
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse intraday response: %w", err)
	}
	seriesKey := fmt.Sprintf("Time Series (%s)", av.interval)
	seriesRaw, ok := raw[seriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: no time series for %s", ErrDataUnavailable, symbol)
	}

	var bars map[string]map[string]string
	if err := json.Unmarshal(seriesRaw, &bars); err != nil {
		return nil, fmt.Errorf("failed to parse time series: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty time series for %s", ErrDataUnavailable, symbol)
	}

	loc := av.timezone(envelope.MetaData)

	timestamps := make([]string, 0, len(bars))
	for ts := range bars {
		timestamps = append(timestamps, ts)
	}
	sort.Strings(timestamps)

	points := make([]models.PricePoint, 0, len(timestamps))
	for _, ts := range timestamps {
		closeStr, ok := bars[ts]["4. close"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("bad close value %q at %s: %w", closeStr, ts, err)
		}
		t, err := time.ParseInLocation("2006-01-02 15:04:05", ts, loc)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		points = append(points, models.PricePoint{Time: t, Price: price})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no usable bars for %s", ErrDataUnavailable, symbol)
	}

	return &models.PriceSeries{
		Symbol:    symbol,
		Interval:  av.interval,
		Points:    points,
		FetchedAt: time.Now(),
	}, nil
}

// timezone resolves the exchange timezone from the response metadata.
// Falls back to US/Eastern and then UTC.
func (av *AlphaVantageClient) timezone(meta map[string]string) *time.Location {
	name := meta["6. Time Zone"]
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.UTC
}
