package server

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/tradelens/tradelens/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"mulf": func(a, b float64) float64 { return a * b },
	"polarity": func(scores []models.SentimentScore, url string) *models.SentimentScore {
		for i := range scores {
			if scores[i].ArticleURL == url {
				return &scores[i]
			}
		}
		return nil
	},
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
