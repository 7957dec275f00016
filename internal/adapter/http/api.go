package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
)

const maxRequestBytes = 1 << 20

type eventSchema struct {
	EventTypes []domain.EventType `json:"event_types"`
	AcidFlags  []domain.AcidFlag  `json:"acid_flags"`
	Defaults   domain.EventParams `json:"defaults"`
}

type formSchemaResponse struct {
	Title      string              `json:"title"`
	RockFields []domain.InputField `json:"rock_fields"`
	Event      eventSchema         `json:"event"`
	Targets    []string            `json:"targets"`
}

// predictRequest is the JSON prediction input. Absent rock values and event
// parameters fall back to the form defaults.
type predictRequest struct {
	Rock  domain.RockInputs  `json:"rock"`
	Event domain.EventParams `json:"event"`
}

type predictResponse struct {
	ID                string                     `json:"id"`
	VolumeML          float64                    `json:"volume_ml"`
	Volume            string                     `json:"volume"`
	Chemistry         []domain.TargetValue       `json:"chemistry"`
	Explanation       []string                   `json:"explanation"`
	FeatureImportance []domain.FeatureImportance `json:"feature_importance"`
	PredictedAt       time.Time                  `json:"predicted_at"`
}

func (s *Server) handleFormSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, formSchemaResponse{
		Title:      pageTitle,
		RockFields: s.predictor.Fields(),
		Event: eventSchema{
			EventTypes: domain.EventTypes,
			AcidFlags:  domain.AcidFlags,
			Defaults:   domain.DefaultEventParams(),
		},
		Targets: s.predictor.TargetNames(),
	})
}

func (s *Server) handlePredictJSON(w http.ResponseWriter, r *http.Request) {
	req := predictRequest{Event: domain.DefaultEventParams()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rock := req.Rock.WithDefaults(s.predictor.Fields())
	pred, err := s.predictor.Predict(r.Context(), rock, req.Event)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		ID:                pred.ID,
		VolumeML:          pred.VolumeML,
		Volume:            pred.VolumeText(),
		Chemistry:         pred.Chemistry,
		Explanation:       domain.PlainExplanation(),
		FeatureImportance: s.predictor.Importances(),
		PredictedAt:       pred.PredictedAt,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes into a buffer first so an encoding failure becomes a 500
// instead of an empty body behind the requested status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(map[string]string{"error": "encode response: " + err.Error()}) //nolint:errcheck // plain strings always encode
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck // client went away
}
