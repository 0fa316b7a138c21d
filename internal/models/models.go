package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single price observation within a trading session.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// PriceSeries holds the ordered intraday (or daily) closes for one symbol.
// Points are ordered oldest to newest and the series is immutable once fetched.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Interval  string       `json:"interval"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// First returns the oldest point in the series.
func (s *PriceSeries) First() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Latest returns the newest point in the series.
func (s *PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// ChangePercent returns the percentage move from the oldest to the newest
// point. Returns zero when the series has fewer than two points or the
// oldest price is zero.
func (s *PriceSeries) ChangePercent() float64 {
	if len(s.Points) < 2 {
		return 0
	}
	first := s.Points[0].Price
	last := s.Points[len(s.Points)-1].Price
	if first.IsZero() {
		return 0
	}
	change, _ := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Float64()
	return change
}

// ClosePrices returns the raw close values in series order.
func (s *PriceSeries) ClosePrices() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		f, _ := p.Price.Float64()
		out = append(out, f)
	}
	return out
}

// Article is a scraped news article. Articles live only for the duration of
// one analysis request.
type Article struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SentimentScore is the polarity assigned to one article.
type SentimentScore struct {
	ArticleURL string  `json:"article_url"`
	Polarity   float64 `json:"polarity"` // -1.0 .. +1.0
	Label      string  `json:"label"`    // positive, negative, neutral
}

// Recommendation is the action label produced by the trend classifier.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// Trend describes the price direction over the analyzed window.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Advice is the classifier output for one request. It carries no identity and
// is recomputed per request.
type Advice struct {
	Symbol         string         `json:"symbol"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"` // 0.0 .. 1.0
	LowConfidence  bool           `json:"low_confidence"`
	Trend          Trend          `json:"trend"`
	MeanSentiment  float64        `json:"mean_sentiment"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

// AnalysisResult bundles everything the presentation layer needs for one
// request: the raw series, the scored articles and the final advice.
type AnalysisResult struct {
	Symbol        string           `json:"symbol"`
	Series        *PriceSeries     `json:"series"`
	Articles      []*Article       `json:"articles"`
	Scores        []SentimentScore `json:"scores"`
	Advice        *Advice          `json:"advice"`
	AgentInsights string           `json:"agent_insights,omitempty"`
	LatestPrice   decimal.Decimal  `json:"latest_price"`
	ChangePercent float64          `json:"change_percent"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
