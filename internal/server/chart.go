package server

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tradelens/tradelens/internal/models"
)

// renderPriceChart writes a standalone chart page plotting the series'
// closes. The home page embeds it in an iframe.
func renderPriceChart(w io.Writer, series *models.PriceSeries) error {
	if series == nil || len(series.Points) == 0 {
		return fmt.Errorf("no price data to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s close prices (%s)", series.Symbol, series.Interval),
			Subtitle: fmt.Sprintf("fetched %s", series.FetchedAt.Format("2006-01-02 15:04")),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "420px",
		}),
	)

	labels := make([]string, 0, len(series.Points))
	values := make([]opts.LineData, 0, len(series.Points))
	for _, p := range series.Points {
		labels = append(labels, p.Time.Format("15:04"))
		f, _ := p.Price.Float64()
		values = append(values, opts.LineData{Value: f})
	}

	line.SetXAxis(labels).AddSeries("Close", values)
	return line.Render(w)
}
