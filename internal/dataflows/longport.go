package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"github.com/tradelens/tradelens/internal/models"
)

// longportDayCount is how many daily candles make up one series.
const longportDayCount = 30

// LongportClient serves daily candlesticks through the Longport OpenAPI.
// Intraday granularity is not available on the free tier, so the series it
// returns uses one point per trading day.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

// NewLongportClient creates a new Longport client
func NewLongportClient(cfg *Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
	}, nil
}

func (lpc *LongportClient) Name() string { return "longport" }

// GetIntraday returns recent daily closes for a symbol, oldest first.
func (lpc *LongportClient) GetIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, longportDayCount, quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", symbol, err)
	}
	if len(sticks) == 0 {
		return nil, fmt.Errorf("%w: no candlesticks for %s", ErrDataUnavailable, symbol)
	}

	points := make([]models.PricePoint, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil {
			continue
		}
		price := decimal.Zero
		if stick.Close != nil {
			price = *stick.Close
		}
		points = append(points, models.PricePoint{
			Time:  time.Unix(stick.Timestamp, 0),
			Price: price,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no usable candlesticks for %s", ErrDataUnavailable, symbol)
	}

	return &models.PriceSeries{
		Symbol:    symbol,
		Interval:  "1day",
		Points:    points,
		FetchedAt: time.Now(),
	}, nil
}
