package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const intradayFixture = `{
	"Meta Data": {
		"1. Information": "Intraday (5min) open, high, low, close prices and volume",
		"2. Symbol": "AAPL",
		"6. Time Zone": "UTC"
	},
	"Time Series (5min)": {
		"2024-03-15 16:00:00": {
			"1. open": "171.90", "2. high": "172.70", "3. low": "171.80",
			"4. close": "172.62", "5. volume": "120034"
		},
		"2024-03-15 15:55:00": {
			"1. open": "171.40", "2. high": "171.95", "3. low": "171.30",
			"4. close": "171.90", "5. volume": "98211"
		},
		"2024-03-15 15:50:00": {
			"1. open": "171.10", "2. high": "171.50", "3. low": "171.00",
			"4. close": "171.40", "5. volume": "87455"
		}
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *AlphaVantageClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewAlphaVantageClient(&Config{
		DataCacheDir:       t.TempDir(),
		AlphaVantageAPIKey: "test-key",
		IntradayInterval:   "5min",
		CacheTTLMinutes:    5,
		CacheEnabled:       false,
	})
	client.SetBaseURL(server.URL)
	return client
}

func TestAlphaVantageGetIntraday(t *testing.T) {
	var gotQuery map[string]string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"function": r.URL.Query().Get("function"),
			"symbol":   r.URL.Query().Get("symbol"),
			"interval": r.URL.Query().Get("interval"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(intradayFixture))
	})

	series, err := client.GetIntraday(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetIntraday: %v", err)
	}

	if gotQuery["function"] != "TIME_SERIES_INTRADAY" {
		t.Errorf("unexpected function param %q", gotQuery["function"])
	}
	if gotQuery["symbol"] != "AAPL" {
		t.Errorf("expected normalized symbol AAPL, got %q", gotQuery["symbol"])
	}
	if gotQuery["interval"] != "5min" {
		t.Errorf("unexpected interval %q", gotQuery["interval"])
	}

	if series.Symbol != "AAPL" {
		t.Errorf("unexpected series symbol %s", series.Symbol)
	}
	if len(series.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series.Points))
	}

	// Points must be ordered oldest to newest.
	for i := 1; i < len(series.Points); i++ {
		if !series.Points[i].Time.After(series.Points[i-1].Time) {
			t.Fatalf("points not in ascending time order at index %d", i)
		}
	}

	first, _ := series.First()
	if first.Price.String() != "171.4" {
		t.Errorf("unexpected first close %s", first.Price)
	}
	latest, _ := series.Latest()
	if latest.Price.String() != "172.62" {
		t.Errorf("unexpected latest close %s", latest.Price)
	}
}

func TestAlphaVantageRateLimitNote(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})

	_, err := client.GetIntraday(context.Background(), "AAPL")
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestAlphaVantageUnknownSymbol(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := client.GetIntraday(context.Background(), "NOPE")
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestAlphaVantageInvalidSymbol(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server for an invalid symbol")
	})

	if _, err := client.GetIntraday(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestAlphaVantageMissingKey(t *testing.T) {
	client := NewAlphaVantageClient(&Config{
		DataCacheDir:     t.TempDir(),
		IntradayInterval: "5min",
		CacheTTLMinutes:  5,
	})
	if _, err := client.GetIntraday(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error when API key is not configured")
	}
}
