package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Display precisions for numeric inputs, in decimal places.
const (
	PrecisionStandard = 2
	PrecisionFine     = 4
)

// FieldRule decides how a rock feature is presented in the form.
type FieldRule struct {
	Name      string
	Match     func(feature string) bool
	Default   float64
	Precision int
	Exclude   bool
}

// fieldRules is evaluated top to bottom; the first match wins. The Corg_rock
// prefix must stay ahead of the generic _rock suffix.
var fieldRules = []FieldRule{
	{Name: "organic carbon", Match: hasPrefix("Corg_rock"), Default: 0.05, Precision: PrecisionFine},
	{Name: "oxide", Match: hasSuffix("_rock", "_O", "2O"), Default: 1.0, Precision: PrecisionStandard},
	{Name: "cumulative", Match: oneOf("Cumulative_Water", "Cumulative_Acid"), Default: 0.0, Precision: PrecisionStandard},
	{Name: "event quantity", Match: oneOf(FeatureEventQuantity), Exclude: true},
	{Name: "fallback", Match: func(string) bool { return true }, Default: 1.0, Precision: PrecisionStandard},
}

// RuleFor returns the first rule matching feature.
func RuleFor(feature string) FieldRule {
	for _, r := range fieldRules {
		if r.Match(feature) {
			return r
		}
	}
	// unreachable: the fallback rule matches everything
	return fieldRules[len(fieldRules)-1]
}

// InputField is one numeric rock-property control.
type InputField struct {
	Name      string  `json:"name"`
	Default   float64 `json:"default"`
	Precision int     `json:"precision"`
}

// Step is the HTML number-input step matching the field precision.
func (f InputField) Step() string {
	if f.Precision <= 0 {
		return "1"
	}
	return "0." + strings.Repeat("0", f.Precision-1) + "1"
}

// Format renders v with the field precision.
func (f InputField) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', f.Precision, 64)
}

// BuildRockFields derives the rock input controls from the declared feature
// order, skipping reserved event names and excluded rules.
func BuildRockFields(features []string) []InputField {
	fields := make([]InputField, 0, len(features))
	for _, name := range features {
		if IsReserved(name) {
			continue
		}
		rule := RuleFor(name)
		if rule.Exclude {
			continue
		}
		fields = append(fields, InputField{
			Name:      name,
			Default:   rule.Default,
			Precision: rule.Precision,
		})
	}
	return fields
}

// ErrInvalidRockInput is returned when a rock value is not a finite number.
var ErrInvalidRockInput = errors.New("invalid rock input")

// RockInputs maps rock feature names to their submitted values.
type RockInputs map[string]float64

// Validate rejects NaN and infinite values. The first offending name in
// sorted order is reported.
func (in RockInputs) Validate() error {
	for _, name := range slices.Sorted(maps.Keys(in)) {
		if !isFinite(in[name]) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidRockInput, name)
		}
	}
	return nil
}

// DefaultRockInputs returns every field bound to its default.
func DefaultRockInputs(fields []InputField) RockInputs {
	in := make(RockInputs, len(fields))
	for _, f := range fields {
		in[f.Name] = f.Default
	}
	return in
}

// WithDefaults returns a copy of in where every field missing from in takes
// its default. Names not in fields are kept as given.
func (in RockInputs) WithDefaults(fields []InputField) RockInputs {
	out := DefaultRockInputs(fields)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func hasPrefix(prefix string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, prefix) }
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(s string) bool {
		for _, suf := range suffixes {
			if strings.HasSuffix(s, suf) {
				return true
			}
		}
		return false
	}
}

func oneOf(names ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range names {
			if s == n {
				return true
			}
		}
		return false
	}
}
