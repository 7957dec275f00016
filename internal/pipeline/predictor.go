package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/couchcryptid/leachate-prediction-service/internal/model"
	"github.com/couchcryptid/leachate-prediction-service/internal/observability"
	"github.com/google/uuid"
)

// ConsistencyPolicy decides what happens when the two artifacts declare
// different feature lists.
type ConsistencyPolicy string

const (
	// ConsistencyStrict refuses to start.
	ConsistencyStrict ConsistencyPolicy = "strict"
	// ConsistencyWarn logs the divergence and feeds the volume vector to
	// both models anyway. The feature counts must still agree.
	ConsistencyWarn ConsistencyPolicy = "warn"
)

var (
	// ErrInvalidVolumeOutput is returned when the volume model yields no value.
	ErrInvalidVolumeOutput = errors.New("volume model returned no output")

	// ErrNonFiniteOutput is returned when a model yields NaN or an infinity.
	ErrNonFiniteOutput = errors.New("model returned a non-finite value")
)

// Publisher receives every successful prediction.
type Publisher interface {
	Publish(ctx context.Context, p domain.Prediction) error
}

// Options configure a Predictor.
type Options struct {
	Consistency ConsistencyPolicy
	// Publisher is optional; nil disables publishing.
	Publisher Publisher
}

// Predictor holds the two loaded artifacts and everything derived from them
// at startup. It is never mutated after New and is shared by all requests.
type Predictor struct {
	volume      *model.Artifact
	chemistry   *model.Artifact
	features    []string
	fields      []domain.InputField
	importances []domain.FeatureImportance
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New checks the artifacts against each other and prepares the form fields
// and ranked importances.
func New(volume, chemistry *model.Artifact, logger *slog.Logger, metrics *observability.Metrics, opts Options) (*Predictor, error) {
	if volume == nil || chemistry == nil {
		return nil, errors.New("both artifacts are required")
	}
	if len(chemistry.TargetNames()) == 0 {
		return nil, fmt.Errorf("%w: chemistry artifact %s declares no target_names", model.ErrInvalidArtifact, chemistry.Name())
	}

	if err := volume.CheckConsistency(chemistry); err != nil {
		// A width mismatch would fail every chemistry call, so warn cannot
		// tolerate it.
		widthDiffers := len(volume.InputFeatures()) != len(chemistry.InputFeatures())
		if opts.Consistency != ConsistencyWarn || widthDiffers {
			return nil, err
		}
		logger.Warn("artifact feature lists differ, using volume feature order for both models", "error", err)
	}

	features := volume.InputFeatures()
	importances, err := domain.RankImportances(features, volume.FeatureImportances())
	if err != nil {
		return nil, fmt.Errorf("rank importances: %w", err)
	}

	p := &Predictor{
		volume:      volume,
		chemistry:   chemistry,
		features:    features,
		fields:      domain.BuildRockFields(features),
		importances: importances,
		publisher:   opts.Publisher,
		logger:      logger,
		metrics:     metrics,
	}

	metrics.ArtifactFeatures.WithLabelValues("volume").Set(float64(len(features)))
	metrics.ArtifactFeatures.WithLabelValues("chemistry").Set(float64(len(chemistry.InputFeatures())))
	metrics.ArtifactTargets.Set(float64(len(chemistry.TargetNames())))
	if p.publisher != nil {
		metrics.PublishEnabled.Set(1)
	}

	logger.Info("artifacts ready",
		"volume", volume.Name(),
		"chemistry", chemistry.Name(),
		"features", len(features),
		"rock_fields", len(p.fields),
		"targets", len(chemistry.TargetNames()),
	)
	return p, nil
}

// Fields returns the rock input controls in declared order.
func (p *Predictor) Fields() []domain.InputField {
	return append([]domain.InputField(nil), p.fields...)
}

// Importances returns the volume model's importances, highest first.
func (p *Predictor) Importances() []domain.FeatureImportance {
	return append([]domain.FeatureImportance(nil), p.importances...)
}

// TargetNames returns the chemistry targets in output order.
func (p *Predictor) TargetNames() []string {
	return p.chemistry.TargetNames()
}

// CheckReadiness reports ready once the artifacts are loaded, which New
// guarantees.
func (p *Predictor) CheckReadiness(_ context.Context) error {
	return nil
}

// Predict assembles the feature vector from rock inputs and event
// parameters, runs both regressors on it, and returns the combined result.
func (p *Predictor) Predict(ctx context.Context, rock domain.RockInputs, event domain.EventParams) (domain.Prediction, error) {
	start := time.Now()

	pred, err := p.predict(rock, event)
	if err != nil {
		p.metrics.Predictions.WithLabelValues(outcome(err)).Inc()
		p.logger.Warn("prediction failed", "error", err)
		return domain.Prediction{}, err
	}

	p.metrics.Predictions.WithLabelValues("success").Inc()
	p.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("prediction complete",
		"prediction_id", pred.ID,
		"volume_ml", pred.VolumeML,
		"event_type", event.Type,
	)

	p.publish(ctx, pred)
	return pred, nil
}

func (p *Predictor) predict(rock domain.RockInputs, event domain.EventParams) (domain.Prediction, error) {
	if err := rock.Validate(); err != nil {
		return domain.Prediction{}, err
	}
	if err := event.Validate(); err != nil {
		return domain.Prediction{}, err
	}

	vec, err := domain.BuildFeatureVector(p.features, rock, event)
	if err != nil {
		return domain.Prediction{}, err
	}

	volOut, err := p.volume.Predict(vec)
	if err != nil {
		return domain.Prediction{}, err
	}
	if len(volOut) == 0 {
		return domain.Prediction{}, ErrInvalidVolumeOutput
	}
	if !finite(volOut[0]) {
		return domain.Prediction{}, fmt.Errorf("%w: %s volume is %v", ErrNonFiniteOutput, p.volume.Name(), volOut[0])
	}

	chemOut, err := p.chemistry.Predict(vec)
	if err != nil {
		return domain.Prediction{}, err
	}
	chemistry, err := domain.ZipTargets(p.chemistry.TargetNames(), chemOut)
	if err != nil {
		return domain.Prediction{}, err
	}
	for _, tv := range chemistry {
		if !finite(tv.Value) {
			return domain.Prediction{}, fmt.Errorf("%w: %s %s is %v", ErrNonFiniteOutput, p.chemistry.Name(), tv.Name, tv.Value)
		}
	}

	return domain.Prediction{
		ID:          uuid.NewString(),
		VolumeML:    volOut[0],
		Chemistry:   chemistry,
		Event:       event,
		Vector:      vec,
		PredictedAt: domain.Now(),
	}, nil
}

// publish hands the prediction to the publisher. Failures are logged and
// counted but do not fail the prediction.
func (p *Predictor) publish(ctx context.Context, pred domain.Prediction) {
	if p.publisher == nil {
		return
	}
	start := time.Now()
	if err := p.publisher.Publish(ctx, pred); err != nil {
		p.metrics.Published.WithLabelValues("error").Inc()
		p.logger.Error("publish prediction failed", "error", err, "prediction_id", pred.ID)
		return
	}
	p.metrics.Published.WithLabelValues("success").Inc()
	p.metrics.PublishDuration.Observe(time.Since(start).Seconds())
}

// IsInputError reports whether err was caused by the submitted values rather
// than by the models.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidEvent) || errors.Is(err, domain.ErrInvalidRockInput)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func outcome(err error) string {
	switch {
	case IsInputError(err):
		return "input_error"
	case errors.Is(err, domain.ErrMissingFeature):
		return "lookup_error"
	default:
		return "model_error"
	}
}
