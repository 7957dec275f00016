// Command genmock writes the demo volume and chemistry artifacts used for
// local runs and tests. The artifacts are small hand-shaped models over the
// real feature layout, so the form, the chart, and the prediction path can be
// exercised without a training run.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir models
//	go run ./cmd/genmock -out-dir /tmp/models -format yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/couchcryptid/leachate-prediction-service/internal/model"
	"gopkg.in/yaml.v3"
)

// demoFeatures is the declared feature order shared by both artifacts.
var demoFeatures = []string{
	"SiO2_rock", "Al2O3_rock", "Fe2O3_rock", "CaO_rock", "MgO_rock",
	"Na2O", "K2O", "Corg_rock", "Cumulative_Water", "Cumulative_Acid",
	"Particle_size", "Type_event", "Event_quantity", "Acid", "Temp",
}

var demoTargets = []string{"Ca", "Mg", "Na", "K", "SO4"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "models", "directory to write the artifacts to")
	format := flag.String("format", "json", "artifact encoding: json or yaml")
	flag.Parse()

	if *format != "json" && *format != "yaml" {
		flag.Usage()
		return fmt.Errorf("unsupported -format %q", *format)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", *outDir, err)
	}

	volume, chemistry := volumeArtifact(), chemistryArtifact()
	for _, f := range []model.File{volume, chemistry} {
		if _, err := f.Build(); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		path := filepath.Join(*outDir, f.Name+"."+*format)
		if err := writeArtifact(path, *format, f); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s (%s, %d features)", path, f.Model.Type, len(f.InputFeatures))
	}

	return printDefaults(volume, chemistry)
}

// volumeArtifact is a three-tree forest driven mostly by the event.
func volumeArtifact() model.File {
	idx := featureIndex()
	leaf := func(v float64) model.Node { return model.Node{Leaf: true, Value: []float64{v}} }
	split := func(feature string, threshold float64, left, right int, gain float64) model.Node {
		return model.Node{Feature: idx[feature], Threshold: threshold, Left: left, Right: right, Gain: gain}
	}

	return model.File{
		Name:          "leachate_volume_model",
		InputFeatures: demoFeatures,
		FeatureImportances: []float64{
			0.08, 0.03, 0.02, 0.05, 0.02,
			0.01, 0.01, 0.04, 0.06, 0.03,
			0.05, 0.10, 0.30, 0.08, 0.12,
		},
		Model: model.Spec{
			Type:     model.TypeTreeEnsemble,
			NOutputs: 1,
			Trees: []model.Tree{
				{Nodes: []model.Node{
					split(domain.FeatureEventQuantity, 50, 1, 2, 0.40),
					leaf(120),
					split(domain.FeatureAcid, 0.5, 3, 4, 0.10),
					leaf(310),
					leaf(365),
				}},
				{Nodes: []model.Node{
					split(domain.FeatureTemperature, 5, 1, 2, 0.20),
					leaf(180),
					leaf(260),
				}},
				{Nodes: []model.Node{
					split(domain.FeatureEventType, 0.5, 1, 4, 0.15),
					split("SiO2_rock", 2, 2, 3, 0.05),
					leaf(240),
					leaf(215),
					leaf(150),
				}},
			},
		},
	}
}

// chemistryArtifact is a linear model with one row per target.
func chemistryArtifact() model.File {
	type term struct {
		feature string
		coef    float64
	}
	rows := []struct {
		intercept float64
		terms     []term
	}{
		{5.0, []term{{"CaO_rock", 2.0}, {domain.FeatureAcid, 3.0}, {domain.FeatureEventQuantity, 0.01}, {domain.FeatureTemperature, 0.1}}},
		{1.5, []term{{"MgO_rock", 1.5}, {domain.FeatureAcid, 1.0}, {domain.FeatureEventQuantity, 0.005}}},
		{2.0, []term{{"Na2O", 2.5}, {domain.FeatureEventQuantity, 0.004}}},
		{0.8, []term{{"K2O", 1.2}, {domain.FeatureTemperature, 0.05}}},
		{10.0, []term{{"Fe2O3_rock", 4.0}, {domain.FeatureAcid, 8.0}, {"Cumulative_Acid", 0.5}, {domain.FeatureEventQuantity, 0.02}}},
	}

	idx := featureIndex()
	coef := make([][]float64, len(rows))
	intercepts := make([]float64, len(rows))
	for k, r := range rows {
		coef[k] = make([]float64, len(demoFeatures))
		for _, t := range r.terms {
			coef[k][idx[t.feature]] = t.coef
		}
		intercepts[k] = r.intercept
	}

	return model.File{
		Name:          "leachate_chemistry_model",
		InputFeatures: demoFeatures,
		TargetNames:   demoTargets,
		Model: model.Spec{
			Type:         model.TypeLinear,
			NOutputs:     len(rows),
			Coefficients: coef,
			Intercepts:   intercepts,
		},
	}
}

func featureIndex() map[string]int {
	idx := make(map[string]int, len(demoFeatures))
	for i, f := range demoFeatures {
		idx[f] = i
	}
	return idx
}

func writeArtifact(path, format string, f model.File) error {
	var (
		data []byte
		err  error
	)
	if format == "yaml" {
		data, err = yaml.Marshal(f)
	} else {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// printDefaults runs both artifacts on the form defaults.
func printDefaults(volume, chemistry model.File) error {
	vol, err := volume.Build()
	if err != nil {
		return err
	}
	chem, err := chemistry.Build()
	if err != nil {
		return err
	}

	rock := domain.DefaultRockInputs(domain.BuildRockFields(demoFeatures))
	vec, err := domain.BuildFeatureVector(demoFeatures, rock, domain.DefaultEventParams())
	if err != nil {
		return err
	}
	v, err := vol.Predict(vec)
	if err != nil {
		return err
	}
	c, err := chem.Predict(vec)
	if err != nil {
		return err
	}
	targets, err := domain.ZipTargets(chem.TargetNames(), c)
	if err != nil {
		return err
	}

	fmt.Printf("\nDefault inputs: volume %s\n", domain.FormatVolume(v[0]))
	for _, t := range targets {
		fmt.Printf("  %-4s %8.4f\n", t.Name, t.Value)
	}
	return nil
}
