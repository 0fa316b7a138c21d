package sentiment

import (
	"testing"

	"github.com/tradelens/tradelens/internal/models"
)

func TestScore_Polarity(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		text string
		sign int // -1, 0, +1
	}{
		{"bullish text", "Shares surged after the company beat earnings expectations with strong growth", 1},
		{"bearish text", "The stock plunged amid fears of weak demand and a possible lawsuit", -1},
		{"neutral text", "The company held its annual shareholder meeting on Tuesday", 0},
		{"empty text", "", 0},
		{"negated positive", "The quarter was not profitable and revenue did not rise", -1},
		{"intensified positive", "Analysts are extremely optimistic about the highly profitable unit", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.text)
			if got < -1 || got > 1 {
				t.Fatalf("polarity %f out of range", got)
			}
			switch {
			case tt.sign > 0 && got <= 0:
				t.Errorf("expected positive polarity, got %f", got)
			case tt.sign < 0 && got >= 0:
				t.Errorf("expected negative polarity, got %f", got)
			case tt.sign == 0 && got != 0:
				t.Errorf("expected neutral polarity, got %f", got)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		polarity float64
		want     string
	}{
		{0.4, LabelPositive},
		{-0.2, LabelNegative},
		{0, LabelNeutral},
	}
	for _, tt := range tests {
		if got := Label(tt.polarity); got != tt.want {
			t.Errorf("Label(%f): expected %s, got %s", tt.polarity, tt.want, got)
		}
	}
}

func TestMean_EmptyIsZero(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected 0 for empty set, got %f", got)
	}
	if got := Mean([]models.SentimentScore{}); got != 0 {
		t.Fatalf("expected 0 for empty slice, got %f", got)
	}
}

func TestMean(t *testing.T) {
	scores := []models.SentimentScore{{Polarity: 0.4}, {Polarity: 0.2}}
	got := Mean(scores)
	if got < 0.299 || got > 0.301 {
		t.Errorf("expected mean 0.3, got %f", got)
	}
}

func TestScoreArticles(t *testing.T) {
	s := NewScorer()
	articles := []*models.Article{
		{URL: "https://example.com/a", Title: "Stock rallies on strong profits", Content: "Shares climbed sharply."},
		{URL: "https://example.com/b", Title: "Quarterly results", Content: "The meeting is scheduled for Monday."},
	}

	scores := s.ScoreArticles(articles)
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].ArticleURL != "https://example.com/a" {
		t.Errorf("unexpected article URL %s", scores[0].ArticleURL)
	}
	if scores[0].Polarity <= 0 || scores[0].Label != LabelPositive {
		t.Errorf("expected positive score for first article, got %f (%s)", scores[0].Polarity, scores[0].Label)
	}
	if scores[1].Polarity != 0 || scores[1].Label != LabelNeutral {
		t.Errorf("expected neutral score for second article, got %f (%s)", scores[1].Polarity, scores[1].Label)
	}
}
