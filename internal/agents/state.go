package agents

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tradelens/tradelens/internal/models"
)

// Crew node names. The router lambdas write one of these into Goto to pick
// the next agent.
const (
	NodeClassifier  = "TrendClassifier"
	NodeRecommender = "Recommender"
	NodeResearcher  = "Researcher"
)

// CrewState is the shared graph state for one crew run. Each agent reads the
// analysis context and appends its report.
type CrewState struct {
	Messages []*schema.Message `json:"messages"`
	Symbol   string            `json:"symbol"`

	PriceSummary  string  `json:"price_summary"`
	NewsDigest    string  `json:"news_digest"`
	MeanSentiment float64 `json:"mean_sentiment"`
	BaselineCall  string  `json:"baseline_call"`

	ClassifierReport  string `json:"classifier_report"`
	RecommenderReport string `json:"recommender_report"`
	ResearchReport    string `json:"research_report"`

	Goto string `json:"goto"`
}

// NewCrewState seeds the state from a finished deterministic analysis.
func NewCrewState(result *models.AnalysisResult) *CrewState {
	state := &CrewState{
		Symbol: result.Symbol,
	}
	if result.Advice != nil {
		state.MeanSentiment = result.Advice.MeanSentiment
		state.BaselineCall = fmt.Sprintf("%s (trend %s, confidence %.2f)",
			result.Advice.Recommendation, result.Advice.Trend, result.Advice.Confidence)
	}
	if result.Series != nil && len(result.Series.Points) > 0 {
		first, _ := result.Series.First()
		latest, _ := result.Series.Latest()
		state.PriceSummary = fmt.Sprintf(
			"%d %s bars, first close %s, latest close %s, change %.2f%%",
			len(result.Series.Points), result.Series.Interval,
			first.Price, latest.Price, result.ChangePercent)
	}
	state.NewsDigest = digestArticles(result.Articles, result.Scores)
	return state
}

// digestArticles folds scored headlines into a compact block for prompts.
func digestArticles(articles []*models.Article, scores []models.SentimentScore) string {
	if len(articles) == 0 {
		return "no recent news found"
	}
	polarity := make(map[string]float64, len(scores))
	for _, sc := range scores {
		polarity[sc.ArticleURL] = sc.Polarity
	}

	var b strings.Builder
	for i, a := range articles {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- [%+.2f] %s (%s)\n", polarity[a.URL], a.Title, a.Source)
	}
	return strings.TrimRight(b.String(), "\n")
}
