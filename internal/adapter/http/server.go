package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Predictor is the prediction surface the handlers depend on.
type Predictor interface {
	sharedobs.ReadinessChecker
	Fields() []domain.InputField
	Importances() []domain.FeatureImportance
	TargetNames() []string
	Predict(ctx context.Context, rock domain.RockInputs, event domain.EventParams) (domain.Prediction, error)
}

// Server serves the prediction form, its JSON API, and the health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the form, chart, API, and operational routes.
func NewServer(addr string, predictor Predictor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      chain(mux, recoverPanics(logger), logRequests(logger)),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: predictor,
		logger:    logger,
	}

	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.HandleFunc("POST /predict", s.handlePredictForm)
	mux.HandleFunc("GET /chart/importance", s.handleImportanceChart)

	mux.HandleFunc("GET /api/v1/form", s.handleFormSchema)
	mux.HandleFunc("POST /api/v1/predict", s.handlePredictJSON)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(predictor))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
