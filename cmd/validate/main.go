// Command validate checks a pair of leachate artifacts before they are
// deployed: both must load, agree on feature order, declare the reserved
// event features, and produce finite predictions for every event choice.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -volume models/leachate_volume_model.json \
//	  -chemistry models/leachate_chemistry_model.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/couchcryptid/leachate-prediction-service/internal/model"
	"github.com/couchcryptid/leachate-prediction-service/internal/observability"
	"github.com/couchcryptid/leachate-prediction-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	volumePath := flag.String("volume", "models/leachate_volume_model.json", "path to the volume artifact")
	chemistryPath := flag.String("chemistry", "models/leachate_chemistry_model.json", "path to the chemistry artifact")
	flag.Parse()

	if *volumePath == "" || *chemistryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *volumePath, *chemistryPath); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, volumePath, chemistryPath string) int {
	// Fixed clock so smoke predictions are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Fprintln(out, "=== Leachate Artifact Validation ===")
	fmt.Fprintln(out)

	volume, err := model.Load(volumePath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	chemistry, err := model.Load(chemistryPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateConsistency(volume, chemistry),
		validateReservedFeatures(volume, chemistry),
		validateFormFields(volume),
		validateImportances(volume),
		validateSmokePredictions(volume, chemistry),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Artifacts: %s (%d features), %s (%d features, %d targets)\n",
		volume.Name(), len(volume.InputFeatures()),
		chemistry.Name(), len(chemistry.InputFeatures()), len(chemistry.TargetNames()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateConsistency(volume, chemistry *model.Artifact) *phase {
	p := &phase{name: "Feature order consistency"}
	if err := volume.CheckConsistency(chemistry); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func validateReservedFeatures(volume, chemistry *model.Artifact) *phase {
	p := &phase{name: "Reserved event features declared"}
	for _, a := range []*model.Artifact{volume, chemistry} {
		declared := make(map[string]bool)
		for _, f := range a.InputFeatures() {
			declared[f] = true
		}
		for _, name := range domain.ReservedFeatures {
			if !declared[name] {
				p.errorf("%s does not declare %q", a.Name(), name)
			}
		}
	}
	return p
}

func validateFormFields(volume *model.Artifact) *phase {
	p := &phase{name: "Rock input fields"}
	fields := domain.BuildRockFields(volume.InputFeatures())
	if len(fields) == 0 {
		p.errorf("no rock input fields derived from %d features", len(volume.InputFeatures()))
	}
	for _, f := range fields {
		if math.IsNaN(f.Default) || math.IsInf(f.Default, 0) {
			p.errorf("field %s has non-finite default", f.Name)
		}
		if f.Precision < 0 {
			p.errorf("field %s has negative precision %d", f.Name, f.Precision)
		}
	}
	return p
}

func validateImportances(volume *model.Artifact) *phase {
	p := &phase{name: "Feature importances"}
	ranked, err := domain.RankImportances(volume.InputFeatures(), volume.FeatureImportances())
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	// Per-score checks happen at load; only the total is left to verify.
	sum := 0.0
	for _, fi := range ranked {
		sum += fi.Importance
	}
	if sum <= 0 {
		p.errorf("importances sum to %v", sum)
	}
	return p
}

// validateSmokePredictions runs the real prediction path with default rock
// values for every event type and acid flag.
func validateSmokePredictions(volume, chemistry *model.Artifact) *phase {
	p := &phase{name: "Smoke predictions"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	predictor, err := pipeline.New(volume, chemistry, logger, observability.NewMetricsForTesting(), pipeline.Options{
		Consistency: pipeline.ConsistencyWarn,
	})
	if err != nil {
		p.errorf("prepare predictor: %v", err)
		return p
	}

	rock := domain.DefaultRockInputs(predictor.Fields())
	for _, et := range domain.EventTypes {
		for _, acid := range domain.AcidFlags {
			event := domain.DefaultEventParams()
			event.Type, event.Acid = et, acid

			pred, err := predictor.Predict(context.Background(), rock, event)
			if err != nil {
				p.errorf("%s/%s: %v", et, acid, err)
				continue
			}
			if !finite(pred.VolumeML) {
				p.errorf("%s/%s: volume is %v", et, acid, pred.VolumeML)
			}
			for _, tv := range pred.Chemistry {
				if !finite(tv.Value) {
					p.errorf("%s/%s: %s is %v", et, acid, tv.Name, tv.Value)
				}
			}
		}
	}
	return p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
