package dataflows

import (
	"fmt"
	"log"
)

// NewMarketProvider builds the market data provider named in the config.
func NewMarketProvider(config *Config) (MarketDataProvider, error) {
	switch config.MarketProvider {
	case "alphavantage":
		if config.AlphaVantageAPIKey == "" {
			log.Printf("alpha vantage key missing, falling back to yahoo finance")
			return NewYahooFinanceClient(config), nil
		}
		return NewAlphaVantageClient(config), nil
	case "yahoo":
		return NewYahooFinanceClient(config), nil
	case "longport":
		return NewLongportClient(config)
	default:
		return nil, fmt.Errorf("unknown market provider %q", config.MarketProvider)
	}
}

// NewNewsProvider picks Serper when a key is configured, otherwise the
// keyless Google News scraper.
func NewNewsProvider(config *Config) NewsProvider {
	if config.SerperAPIKey != "" {
		return NewSerperClient(config)
	}
	return NewNewsScraperClient(config)
}
