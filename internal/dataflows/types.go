package dataflows

import (
	"context"
	"errors"

	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/models"
)

// Config is an alias for the main application config
type Config = config.Config

// ErrDataUnavailable means the upstream source answered but had no usable
// data for the symbol, for example an unknown ticker or a rate-limit note.
var ErrDataUnavailable = errors.New("market data unavailable")

// MarketDataProvider fetches an ordered price series for one symbol.
// Implementations return points sorted oldest to newest.
type MarketDataProvider interface {
	Name() string
	GetIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error)
}

// NewsProvider returns recent articles mentioning one symbol.
type NewsProvider interface {
	Name() string
	GetNews(ctx context.Context, symbol string, maxArticles int) ([]*models.Article, error)
}
