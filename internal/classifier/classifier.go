// Package classifier combines a price trend with aggregate news sentiment
// into a single Buy/Sell/Hold recommendation. Classification is a pure
// function of its inputs.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/tradelens/tradelens/internal/models"
	"github.com/tradelens/tradelens/internal/sentiment"
)

// ErrDataInsufficient is returned when the series is too short to compute a
// direction. Callers degrade to Hold with a low-confidence flag.
var ErrDataInsufficient = errors.New("insufficient price data")

// shortWindow is the moving-average window used when weighing confidence in
// a directional call.
const shortWindow = 5

// Classify produces advice from one price series and the sentiment scores of
// the articles fetched for the same symbol. The sentiment set may be empty,
// in which case the aggregate is exactly neutral.
func Classify(series *models.PriceSeries, scores []models.SentimentScore) (*models.Advice, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, fmt.Errorf("classify %s: %w", symbolOf(series), ErrDataInsufficient)
	}

	trend := detectTrend(series)
	mean := sentiment.Mean(scores)

	rec := models.Hold
	switch {
	case trend == models.TrendUp && mean >= 0:
		rec = models.Buy
	case trend == models.TrendDown && mean <= 0:
		rec = models.Sell
	}

	advice := &models.Advice{
		Symbol:         series.Symbol,
		Recommendation: rec,
		Confidence:     confidence(series, mean, rec),
		Trend:          trend,
		MeanSentiment:  mean,
		Reasoning:      reasoning(trend, mean, len(scores)),
	}
	return advice, nil
}

// DegradedHold is the fallback advice when the series cannot support a
// direction. The low-confidence flag is what the UI keys off.
func DegradedHold(symbol string, scores []models.SentimentScore) *models.Advice {
	return &models.Advice{
		Symbol:         symbol,
		Recommendation: models.Hold,
		Confidence:     0.1,
		LowConfidence:  true,
		Trend:          models.TrendFlat,
		MeanSentiment:  sentiment.Mean(scores),
		Reasoning:      "not enough price data to establish a trend; holding by default",
	}
}

// detectTrend is the sign of the move from the first to the last close.
func detectTrend(series *models.PriceSeries) models.Trend {
	closes := series.ClosePrices()
	first, last := closes[0], closes[len(closes)-1]
	switch {
	case last > first:
		return models.TrendUp
	case last < first:
		return models.TrendDown
	default:
		return models.TrendFlat
	}
}

// maSlopeAgrees reports whether the short moving-average slope points the
// same way as the overall trend. Only used to weigh confidence; the
// recommendation itself follows the first-to-last sign.
func maSlopeAgrees(closes []float64, trend models.Trend) bool {
	if len(closes) < shortWindow*2 {
		return true
	}
	head := movingAverage(closes[:shortWindow])
	tail := movingAverage(closes[len(closes)-shortWindow:])
	switch trend {
	case models.TrendUp:
		return tail > head
	case models.TrendDown:
		return tail < head
	default:
		return true
	}
}

func movingAverage(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// confidence blends trend magnitude and sentiment strength into 0..1. A Hold
// from disagreement scores lower than a confirmed Buy/Sell.
func confidence(series *models.PriceSeries, mean float64, rec models.Recommendation) float64 {
	magnitude := math.Abs(series.ChangePercent()) / 5.0 // 5% move saturates
	if magnitude > 1 {
		magnitude = 1
	}
	strength := math.Abs(mean)

	c := 0.4*magnitude + 0.4*strength + 0.2
	if rec == models.Hold {
		c *= 0.6
	}
	if !maSlopeAgrees(series.ClosePrices(), detectTrend(series)) {
		c *= 0.7
	}
	if c > 1 {
		c = 1
	}
	return c
}

func reasoning(trend models.Trend, mean float64, articles int) string {
	direction := "flat"
	switch trend {
	case models.TrendUp:
		direction = "upward"
	case models.TrendDown:
		direction = "downward"
	}
	if articles == 0 {
		return fmt.Sprintf("price trend is %s with no recent news; sentiment treated as neutral", direction)
	}
	return fmt.Sprintf("price trend is %s and mean sentiment across %d articles is %+.2f (%s)",
		direction, articles, mean, sentiment.Label(mean))
}

func symbolOf(series *models.PriceSeries) string {
	if series == nil {
		return "?"
	}
	return series.Symbol
}
