package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the predictor.
type Metrics struct {
	Predictions        *prometheus.CounterVec // labels: outcome={success,input_error,lookup_error,model_error}
	PredictionDuration prometheus.Histogram

	// Loaded artifact shape.
	ArtifactFeatures *prometheus.GaugeVec // labels: artifact={volume,chemistry}
	ArtifactTargets  prometheus.Gauge

	// Prediction event publishing.
	Published       *prometheus.CounterVec // labels: outcome={success,error}
	PublishEnabled  prometheus.Gauge
	PublishDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leachate",
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leachate",
			Name:      "prediction_duration_seconds",
			Help:      "Time to assemble the feature vector and run both regressors.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		ArtifactFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leachate",
			Name:      "artifact_features",
			Help:      "Number of input features declared by each loaded artifact.",
		}, []string{"artifact"}),
		ArtifactTargets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leachate",
			Name:      "artifact_targets",
			Help:      "Number of chemistry targets declared by the chemistry artifact.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leachate",
			Name:      "published_total",
			Help:      "Prediction events handed to the publisher by outcome.",
		}, []string{"outcome"}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leachate",
			Name:      "publish_enabled",
			Help:      "1 when prediction events are published, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leachate",
			Name:      "publish_duration_seconds",
			Help:      "Duration of a prediction event publish call.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.Predictions,
		m.PredictionDuration,
		m.ArtifactFeatures,
		m.ArtifactTargets,
		m.Published,
		m.PublishEnabled,
		m.PublishDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Predictions:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "leachate", Name: "predictions_total"}, []string{"outcome"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "leachate", Name: "prediction_duration_seconds"}),
		ArtifactFeatures:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "leachate", Name: "artifact_features"}, []string{"artifact"}),
		ArtifactTargets:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leachate", Name: "artifact_targets"}),
		Published:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "leachate", Name: "published_total"}, []string{"outcome"}),
		PublishEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leachate", Name: "publish_enabled"}),
		PublishDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "leachate", Name: "publish_duration_seconds"}),
	}
}
