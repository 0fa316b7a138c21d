package dataflows

import (
	"errors"
	"testing"
	"time"
)

func TestCacheManager(t *testing.T) {
	cache := NewCacheManager(t.TempDir(), time.Hour, true)

	type payload struct {
		Symbol string `json:"symbol"`
		Value  int    `json:"value"`
	}

	params := map[string]string{"symbol": "AAPL"}
	if err := cache.Set("test", "data", params, payload{Symbol: "AAPL", Value: 42}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	if !cache.Get("test", "data", params, &got) {
		t.Fatal("expected cache hit")
	}
	if got.Symbol != "AAPL" || got.Value != 42 {
		t.Errorf("unexpected cached payload: %+v", got)
	}

	var miss payload
	if cache.Get("test", "data", map[string]string{"symbol": "TSLA"}, &miss) {
		t.Error("expected cache miss for different params")
	}
}

func TestCacheManagerDisabled(t *testing.T) {
	cache := NewCacheManager(t.TempDir(), time.Hour, false)

	if err := cache.Set("test", "data", "key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got string
	if cache.Get("test", "data", "key", &got) {
		t.Error("expected miss when cache is disabled")
	}
}

func TestWithRetry(t *testing.T) {
	config := &RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
	}

	attempts := 0
	err := WithRetry(config, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	config := &RetryConfig{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Multiplier: 2.0,
	}

	sentinel := errors.New("permanent")
	err := WithRetry(config, func() error { return sentinel })
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"aapl", false},
		{" BRK.B ", false},
		{"700.HK", false},
		{"", true},
		{"TOOLONGSYMBOL", true},
		{"AA PL", true},
	}

	for _, tt := range tests {
		err := ValidateSymbol(tt.symbol)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSymbol(%q): got err=%v, wantErr=%v", tt.symbol, err, tt.wantErr)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  aapl "); got != "AAPL" {
		t.Errorf("expected AAPL, got %s", got)
	}
}

func TestParseDateString(t *testing.T) {
	tests := []string{
		"2024-03-15",
		"2024-03-15 16:00:00",
		"03/15/2024",
		"2024-03-15T16:00:00Z",
	}
	for _, s := range tests {
		if _, err := ParseDateString(s); err != nil {
			t.Errorf("ParseDateString(%q): %v", s, err)
		}
	}

	if _, err := ParseDateString("3 hours ago"); err == nil {
		t.Error("expected error for relative date text")
	}
}
