package http

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"net/http"
	"slices"
	"strconv"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/couchcryptid/leachate-prediction-service/internal/pipeline"
	"github.com/gorilla/schema"
)

// rockFieldPrefix namespaces rock inputs in the posted form so a rock feature
// can never collide with an event control.
const rockFieldPrefix = "rock:"

// eventForm is the posted event controls. Blank values keep the defaults the
// struct is seeded with.
type eventForm struct {
	EventType   string  `schema:"event_type"`
	Quantity    float64 `schema:"event_quantity"`
	Acid        string  `schema:"acid"`
	Temperature float64 `schema:"temperature"`
}

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// badRequestError marks a submission that could not be parsed.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

// parseSubmission reads rock values and event parameters from a posted form.
// The returned inputs are filled even on error so the page can redisplay
// what was entered.
func parseSubmission(r *http.Request, fields []domain.InputField) (domain.RockInputs, domain.EventParams, error) {
	rock := domain.DefaultRockInputs(fields)
	event := domain.DefaultEventParams()

	if err := r.ParseForm(); err != nil {
		return rock, event, &badRequestError{msg: "unable to parse form"}
	}

	for _, f := range fields {
		raw := r.PostForm.Get(rockFieldPrefix + f.Name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return rock, event, &badRequestError{msg: fmt.Sprintf("%s must be a number, got %q", f.Name, raw)}
		}
		rock[f.Name] = v
	}

	data := eventForm{
		EventType:   string(event.Type),
		Quantity:    event.Quantity,
		Acid:        string(event.Acid),
		Temperature: event.Temperature,
	}
	if err := formDecoder.Decode(&data, r.PostForm); err != nil {
		return rock, event, &badRequestError{msg: describeDecodeError(err)}
	}
	event = domain.EventParams{
		Type:        domain.EventType(data.EventType),
		Quantity:    data.Quantity,
		Acid:        domain.AcidFlag(data.Acid),
		Temperature: data.Temperature,
	}
	return rock, event, nil
}

func describeDecodeError(err error) string {
	var multi schema.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		keys := slices.Sorted(maps.Keys(multi))
		return fmt.Sprintf("%s must be a number", keys[0])
	}
	return "unable to parse event parameters"
}

// statusFor maps a submission or prediction error onto an HTTP status.
func statusFor(err error) int {
	var bad *badRequestError
	if errors.As(err, &bad) || pipeline.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
