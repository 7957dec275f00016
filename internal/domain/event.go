package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Reserved feature names filled from the event parameters rather than from
// rock inputs.
const (
	FeatureEventType     = "Type_event"
	FeatureEventQuantity = "Event_quantity"
	FeatureAcid          = "Acid"
	FeatureTemperature   = "Temp"
)

// ReservedFeatures lists the event feature names in the order they are merged.
var ReservedFeatures = []string{
	FeatureEventType,
	FeatureEventQuantity,
	FeatureAcid,
	FeatureTemperature,
}

// IsReserved reports whether name is one of the event feature names.
func IsReserved(name string) bool {
	for _, r := range ReservedFeatures {
		if r == name {
			return true
		}
	}
	return false
}

// ErrInvalidEvent is returned when event parameters fail validation.
var ErrInvalidEvent = errors.New("invalid event parameters")

// EventType is the kind of precipitation event.
type EventType string

const (
	EventRain EventType = "Rain"
	EventSnow EventType = "Snow"
)

// EventTypes lists the selectable event types, default first.
var EventTypes = []EventType{EventRain, EventSnow}

// Encode maps Rain to 0 and Snow to 1.
func (t EventType) Encode() float64 {
	if t == EventSnow {
		return 1
	}
	return 0
}

// AcidFlag marks whether the event is acidic.
type AcidFlag string

const (
	AcidYes AcidFlag = "Yes"
	AcidNo  AcidFlag = "No"
)

// AcidFlags lists the selectable acid flags, default first.
var AcidFlags = []AcidFlag{AcidNo, AcidYes}

// Encode maps Yes to 1 and No to 0.
func (a AcidFlag) Encode() float64 {
	if a == AcidYes {
		return 1
	}
	return 0
}

// EventParams holds the weather event being simulated.
type EventParams struct {
	Type        EventType `json:"event_type" validate:"oneof=Rain Snow"`
	Quantity    float64   `json:"event_quantity"`
	Acid        AcidFlag  `json:"acid" validate:"oneof=Yes No"`
	Temperature float64   `json:"temperature"`
}

// DefaultEventParams returns the values the event controls start with.
func DefaultEventParams() EventParams {
	return EventParams{
		Type:        EventRain,
		Quantity:    100,
		Acid:        AcidNo,
		Temperature: 10.0,
	}
}

var validate = validator.New()

// Validate checks the categorical fields and rejects non-finite numbers.
func (p EventParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s must be one of [%s], got %q", ErrInvalidEvent, fe.Field(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if !isFinite(p.Quantity) {
		return fmt.Errorf("%w: event quantity must be a finite number", ErrInvalidEvent)
	}
	if !isFinite(p.Temperature) {
		return fmt.Errorf("%w: temperature must be a finite number", ErrInvalidEvent)
	}
	return nil
}

// Features returns the encoded event values keyed by their reserved names.
func (p EventParams) Features() map[string]float64 {
	return map[string]float64{
		FeatureEventType:     p.Type.Encode(),
		FeatureEventQuantity: p.Quantity,
		FeatureAcid:          p.Acid.Encode(),
		FeatureTemperature:   p.Temperature,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
