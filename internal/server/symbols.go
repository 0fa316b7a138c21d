package server

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Symbol is one row of the tracked-symbols CSV.
type Symbol struct {
	Ticker string
	Name   string
}

// defaultSymbols backs the dropdown when no CSV is configured.
var defaultSymbols = []Symbol{
	{"AAPL", "Apple Inc."},
	{"MSFT", "Microsoft Corporation"},
	{"GOOGL", "Alphabet Inc."},
	{"AMZN", "Amazon.com Inc."},
	{"TSLA", "Tesla Inc."},
	{"META", "Meta Platforms Inc."},
	{"NVDA", "NVIDIA Corporation"},
	{"NFLX", "Netflix Inc."},
}

// LoadSymbols reads the tracked symbols from a CSV of ticker,name rows. A
// header row is skipped when present. Falls back to the built-in list when
// the file is missing or empty.
func LoadSymbols(path string) ([]Symbol, error) {
	if path == "" {
		return defaultSymbols, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSymbols, nil
		}
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse symbols file: %w", err)
	}

	var symbols []Symbol
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		ticker := strings.TrimSpace(strings.ToUpper(row[0]))
		if ticker == "" {
			continue
		}
		if i == 0 && (ticker == "SYMBOL" || ticker == "TICKER") {
			continue
		}
		name := ticker
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			name = strings.TrimSpace(row[1])
		}
		symbols = append(symbols, Symbol{Ticker: ticker, Name: name})
	}
	if len(symbols) == 0 {
		return defaultSymbols, nil
	}
	return symbols, nil
}
