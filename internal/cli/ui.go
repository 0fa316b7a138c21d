package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tradelens/tradelens/internal/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))
)

// DisplayWelcomeBanner shows the welcome banner for interactive mode.
func DisplayWelcomeBanner() {
	banner := "TradeLens\nStock trends, news sentiment and a straight Buy/Sell/Hold call"
	fmt.Println(titleStyle.Render(banner))
}

func recommendationStyle(rec models.Recommendation) lipgloss.Style {
	switch rec {
	case models.Buy:
		return buyStyle
	case models.Sell:
		return sellStyle
	default:
		return holdStyle
	}
}

// RenderResult formats one analysis result for the terminal.
func RenderResult(result *models.AnalysisResult) string {
	var b strings.Builder

	rec := result.Advice.Recommendation
	b.WriteString(fmt.Sprintf("%s  %s\n\n", result.Symbol, recommendationStyle(rec).Render(string(rec))))

	b.WriteString(fmt.Sprintf("Latest price:    %s\n", result.LatestPrice.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Change:          %+.2f%%\n", result.ChangePercent))
	b.WriteString(fmt.Sprintf("Trend:           %s\n", result.Advice.Trend))
	b.WriteString(fmt.Sprintf("Confidence:      %.0f%%\n", result.Advice.Confidence*100))
	b.WriteString(fmt.Sprintf("Mean sentiment:  %+.2f\n", result.Advice.MeanSentiment))
	if result.Advice.LowConfidence {
		b.WriteString(dimStyle.Render("Not enough price data for a confident call; holding by default.") + "\n")
	}
	if result.Advice.Reasoning != "" {
		b.WriteString("\n" + result.Advice.Reasoning + "\n")
	}

	if len(result.Articles) > 0 {
		b.WriteString("\nRecent news:\n")
		for _, a := range result.Articles {
			line := fmt.Sprintf("  • %s (%s)", a.Title, a.Source)
			for _, s := range result.Scores {
				if s.ArticleURL == a.URL {
					line += dimStyle.Render(fmt.Sprintf("  [%+.2f %s]", s.Polarity, s.Label))
					break
				}
			}
			b.WriteString(line + "\n")
		}
	}

	if result.AgentInsights != "" {
		b.WriteString("\nAgent insights:\n")
		b.WriteString(dimStyle.Render(result.AgentInsights) + "\n")
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// DisplayProgress prints one pipeline stage update.
func DisplayProgress(stage, detail string) {
	fmt.Println(dimStyle.Render(fmt.Sprintf("  [%s] %s", stage, detail)))
}

// DisplayError shows an error message.
func DisplayError(err error) {
	fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s", err.Error())))
}

// DisplaySuccess shows a success message.
func DisplaySuccess(message string) {
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s", message)))
}

// DisplayInfo shows an info message.
func DisplayInfo(message string) {
	fmt.Println(infoStyle.Render(message))
}
