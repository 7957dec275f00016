package http

import (
	"net/http"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// newImportanceChart draws one bar per feature in the given order.
func newImportanceChart(ranked []domain.FeatureImportance) *charts.Bar {
	names := make([]string, len(ranked))
	bars := make([]opts.BarData, len(ranked))
	for i, fi := range ranked {
		names[i] = fi.Feature
		bars[i] = opts.BarData{Name: fi.Feature, Value: fi.Importance}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Feature Importance",
			Width:     "100%",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Feature Importance (Model Insight)"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Feature"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Importance"}),
	)
	bar.SetXAxis(names).AddSeries("Importance", bars)
	return bar
}

func (s *Server) handleImportanceChart(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := newImportanceChart(s.predictor.Importances()).Render(w); err != nil {
		s.logger.Error("render importance chart failed", "error", err)
	}
}
