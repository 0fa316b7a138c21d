// Package sentiment scores news text with a small polarity lexicon. It is a
// deterministic stand-in for a hosted NLP model: the contract (a scalar in
// -1..+1 per article) matches what the analysis pipeline expects from any
// future scorer.
package sentiment

import (
	"regexp"
	"strings"

	"github.com/tradelens/tradelens/internal/models"
)

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Scorer assigns a polarity to raw article text.
type Scorer struct {
	positive map[string]float64
	negative map[string]float64
	wordRe   *regexp.Regexp
}

// NewScorer creates a scorer with the built-in financial-news lexicon.
func NewScorer() *Scorer {
	return &Scorer{
		positive: positiveLexicon,
		negative: negativeLexicon,
		wordRe:   regexp.MustCompile(`[a-z']+`),
	}
}

// negators flip the polarity of the word that follows them.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
	"isn't": true, "wasn't": true, "don't": true, "doesn't": true,
	"didn't": true, "won't": true, "can't": true, "couldn't": true,
}

// intensifiers scale the polarity of the word that follows them.
var intensifiers = map[string]float64{
	"very": 1.5, "extremely": 2.0, "highly": 1.5, "sharply": 1.5,
	"slightly": 0.5, "somewhat": 0.7, "strongly": 1.5, "significantly": 1.5,
}

var positiveLexicon = map[string]float64{
	"gain": 0.6, "gains": 0.6, "gained": 0.6, "surge": 0.8, "surges": 0.8,
	"surged": 0.8, "rally": 0.7, "rallies": 0.7, "rallied": 0.7,
	"rise": 0.5, "rises": 0.5, "rose": 0.5, "rising": 0.5, "climb": 0.5,
	"climbs": 0.5, "climbed": 0.5, "record": 0.4, "beat": 0.6, "beats": 0.6,
	"strong": 0.5, "growth": 0.5, "profit": 0.5, "profits": 0.5,
	"profitable": 0.6, "bullish": 0.8, "upgrade": 0.7, "upgraded": 0.7,
	"outperform": 0.7, "outperformed": 0.7, "positive": 0.5, "upbeat": 0.6,
	"optimistic": 0.6, "opportunity": 0.4, "undervalued": 0.5, "soar": 0.9,
	"soars": 0.9, "soared": 0.9, "jump": 0.6, "jumps": 0.6, "jumped": 0.6,
	"boom": 0.7, "win": 0.5, "wins": 0.5, "winning": 0.5, "success": 0.6,
	"successful": 0.6, "momentum": 0.4, "recovery": 0.5, "recovered": 0.5,
	"exceed": 0.6, "exceeds": 0.6, "exceeded": 0.6, "good": 0.4, "great": 0.6,
	"best": 0.6, "breakthrough": 0.7, "dividend": 0.3, "buyback": 0.4,
}

var negativeLexicon = map[string]float64{
	"loss": -0.6, "losses": -0.6, "lose": -0.5, "loses": -0.5, "lost": -0.5,
	"drop": -0.6, "drops": -0.6, "dropped": -0.6, "fall": -0.5, "falls": -0.5,
	"fell": -0.5, "falling": -0.5, "plunge": -0.9, "plunges": -0.9,
	"plunged": -0.9, "decline": -0.5, "declines": -0.5, "declined": -0.5,
	"slump": -0.7, "slumps": -0.7, "slumped": -0.7, "crash": -0.9,
	"crashes": -0.9, "crashed": -0.9, "weak": -0.5, "weakness": -0.5,
	"bearish": -0.8, "downgrade": -0.7, "downgraded": -0.7, "miss": -0.6,
	"misses": -0.6, "missed": -0.6, "negative": -0.5, "pessimistic": -0.6,
	"overvalued": -0.5, "risk": -0.3, "risks": -0.3, "risky": -0.4,
	"concern": -0.4, "concerns": -0.4, "worried": -0.5, "worry": -0.5,
	"fear": -0.6, "fears": -0.6, "lawsuit": -0.6, "fraud": -0.9,
	"investigation": -0.5, "recall": -0.6, "layoff": -0.6, "layoffs": -0.6,
	"bankruptcy": -0.9, "debt": -0.3, "default": -0.7, "warning": -0.5,
	"warns": -0.5, "warned": -0.5, "cut": -0.4, "cuts": -0.4, "bad": -0.4,
	"worst": -0.6, "trouble": -0.5, "tumble": -0.7, "tumbles": -0.7,
	"tumbled": -0.7, "selloff": -0.7, "volatile": -0.3, "volatility": -0.3,
}

// Score computes the polarity of text, clamped to -1..+1. Text with no
// lexicon hits scores exactly 0.
func (s *Scorer) Score(text string) float64 {
	words := s.wordRe.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}

	var total float64
	var hits int
	for i, w := range words {
		polarity, ok := s.positive[w]
		if !ok {
			polarity, ok = s.negative[w]
		}
		if !ok {
			continue
		}

		// Look one and two words back for negation and intensity.
		scale := 1.0
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := words[i-back]
			if negators[prev] {
				scale *= -1
			} else if mul, ok := intensifiers[prev]; ok {
				scale *= mul
			}
		}

		total += polarity * scale
		hits++
	}

	if hits == 0 {
		return 0
	}
	return clamp(total/float64(hits), -1, 1)
}

// Label maps a polarity to the three-way label used in reports.
func Label(polarity float64) string {
	switch {
	case polarity > 0:
		return LabelPositive
	case polarity < 0:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// ScoreArticles scores each article's title and content together.
func (s *Scorer) ScoreArticles(articles []*models.Article) []models.SentimentScore {
	scores := make([]models.SentimentScore, 0, len(articles))
	for _, a := range articles {
		polarity := s.Score(a.Title + " " + a.Content)
		scores = append(scores, models.SentimentScore{
			ArticleURL: a.URL,
			Polarity:   polarity,
			Label:      Label(polarity),
		})
	}
	return scores
}

// Mean returns the arithmetic mean polarity. An empty set is exactly neutral.
func Mean(scores []models.SentimentScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var total float64
	for _, sc := range scores {
		total += sc.Polarity
	}
	return total / float64(len(scores))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
