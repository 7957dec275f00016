package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/leachate-prediction-service/internal/adapter/http"
	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeatures = []string{"SiO2_rock", "Corg_rock", "Cumulative_Water", "Type_event", "Event_quantity", "Acid", "Temp"}

type mockPredictor struct {
	readyErr   error
	predictErr error
	volume     float64

	gotRock  domain.RockInputs
	gotEvent domain.EventParams
	calls    int
}

func (m *mockPredictor) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockPredictor) Fields() []domain.InputField {
	return domain.BuildRockFields(testFeatures)
}

func (m *mockPredictor) Importances() []domain.FeatureImportance {
	return []domain.FeatureImportance{
		{Feature: "Event_quantity", Importance: 0.5},
		{Feature: "SiO2_rock", Importance: 0.3},
		{Feature: "Temp", Importance: 0.2},
	}
}

func (m *mockPredictor) TargetNames() []string { return []string{"Ca", "SO4"} }

func (m *mockPredictor) Predict(_ context.Context, rock domain.RockInputs, event domain.EventParams) (domain.Prediction, error) {
	m.calls++
	m.gotRock = rock
	m.gotEvent = event
	if m.predictErr != nil {
		return domain.Prediction{}, m.predictErr
	}
	return domain.Prediction{
		ID:          "pred-1",
		VolumeML:    m.volume,
		Chemistry:   []domain.TargetValue{{Name: "Ca", Value: 12.5}, {Name: "SO4", Value: 3.125}},
		Event:       event,
		PredictedAt: time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func newTestServer(m *mockPredictor) *httpadapter.Server {
	return httpadapter.NewServer(":0", m, slog.Default())
}

func postForm(srv http.Handler, values url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.ServeHTTP(rec, req)
	return rec
}

func postJSON(srv http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

// --- operational endpoints ---

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockPredictor{readyErr: fmt.Errorf("not ready yet")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownPathReturns404(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- form page ---

func TestFormPageRendersDefaults(t *testing.T) {
	m := &mockPredictor{}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Rock Leaching Prediction App</title>")
	assert.Contains(t, body, "Rock Properties")
	assert.Contains(t, body, "Event Configuration")
	assert.Contains(t, body, `name="rock:SiO2_rock" value="1.00" step="0.01"`)
	assert.Contains(t, body, `name="rock:Corg_rock" value="0.0500" step="0.0001"`)
	assert.Contains(t, body, `name="rock:Cumulative_Water" value="0.00"`)
	assert.NotContains(t, body, `name="rock:Event_quantity"`)
	assert.NotContains(t, body, `name="rock:Temp"`)
	assert.Contains(t, body, `<option value="Rain" selected>Rain</option>`)
	assert.Contains(t, body, `<option value="No" selected>No</option>`)
	assert.NotContains(t, body, "Predicted Leachate Volume")
	assert.Zero(t, m.calls)
}

func TestPredictFormShowsResults(t *testing.T) {
	m := &mockPredictor{volume: 245.678}
	srv := newTestServer(m)

	rec := postForm(srv, url.Values{
		"rock:SiO2_rock": {"2.5"},
		"rock:Corg_rock": {"0.0125"},
		"event_type":     {"Snow"},
		"event_quantity": {"42"},
		"acid":           {"Yes"},
		"temperature":    {"-3.5"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RockInputs{"SiO2_rock": 2.5, "Corg_rock": 0.0125, "Cumulative_Water": 0}, m.gotRock)
	assert.Equal(t, domain.EventParams{Type: domain.EventSnow, Quantity: 42, Acid: domain.AcidYes, Temperature: -3.5}, m.gotEvent)

	body := rec.Body.String()
	assert.Contains(t, body, "Predicted Leachate Volume")
	assert.Contains(t, body, "245.68 ml")
	assert.Contains(t, body, "<th>Ca</th><th>SO4</th>")
	assert.Contains(t, body, "<td>12.5000</td><td>3.1250</td>")
	assert.Contains(t, body, "Explanation (For Non-Experts)")
	assert.Contains(t, body, "Acidic events generally increase leaching by reacting with minerals.")
	assert.Contains(t, body, "The rock’s <strong>chemical composition</strong> influences")
	assert.Contains(t, body, "<strong>Event quantity</strong> and <strong>temperature</strong> affect")
	assert.NotContains(t, body, "**")
	assert.Contains(t, body, `src="/chart/importance"`)
	assert.Contains(t, body, `<option value="Snow" selected>Snow</option>`)
	assert.Contains(t, body, `name="rock:SiO2_rock" value="2.50"`)
}

func TestPredictFormBlankValuesKeepDefaults(t *testing.T) {
	m := &mockPredictor{volume: 1}
	srv := newTestServer(m)

	rec := postForm(srv, url.Values{
		"rock:SiO2_rock": {""},
		"event_quantity": {""},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultRockInputs(m.Fields()), m.gotRock)
	assert.Equal(t, domain.DefaultEventParams(), m.gotEvent)
}

func TestPredictFormRejectsNonNumericRockValue(t *testing.T) {
	m := &mockPredictor{}
	srv := newTestServer(m)

	rec := postForm(srv, url.Values{"rock:SiO2_rock": {"lots"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SiO2_rock must be a number")
	assert.Zero(t, m.calls)
}

func TestPredictFormRejectsNonNumericEventQuantity(t *testing.T) {
	m := &mockPredictor{}
	srv := newTestServer(m)

	rec := postForm(srv, url.Values{"event_quantity": {"heavy"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "event_quantity must be a number")
	assert.Zero(t, m.calls)
}

func TestPredictFormRejectsNonFiniteRockValue(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Inf", "+Infinity"} {
		t.Run(raw, func(t *testing.T) {
			m := &mockPredictor{}
			srv := newTestServer(m)

			rec := postForm(srv, url.Values{"rock:SiO2_rock": {raw}})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "SiO2_rock must be a number")
			assert.NotContains(t, rec.Body.String(), "Predicted Leachate Volume")
			assert.Zero(t, m.calls)
		})
	}
}

func TestPredictFormErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid event", fmt.Errorf("%w: event type must be one of [Rain Snow], got \"Hail\"", domain.ErrInvalidEvent), http.StatusBadRequest},
		{"lookup error", &domain.LookupError{Feature: "Temp", Undeclared: true}, http.StatusInternalServerError},
		{"model error", errors.New("vector has 3 values, model expects 4"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockPredictor{predictErr: tt.err})

			rec := postForm(srv, url.Values{"event_type": {"Rain"}})

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Prediction failed")
			assert.NotContains(t, body, "Predicted Leachate Volume")
		})
	}
}

// --- chart ---

func TestImportanceChart(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chart/importance", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Feature Importance (Model Insight)")
	assert.Contains(t, body, `"Temp"`)
	first := strings.Index(body, `"Event_quantity"`)
	second := strings.Index(body, `"SiO2_rock"`)
	require.Positive(t, first)
	assert.Less(t, first, second)
}

// --- JSON API ---

func TestFormSchemaAPI(t *testing.T) {
	srv := newTestServer(&mockPredictor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/form", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Title      string              `json:"title"`
		RockFields []domain.InputField `json:"rock_fields"`
		Event      struct {
			EventTypes []string           `json:"event_types"`
			AcidFlags  []string           `json:"acid_flags"`
			Defaults   domain.EventParams `json:"defaults"`
		} `json:"event"`
		Targets []string `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Rock Leaching Prediction App", body.Title)
	assert.Equal(t, domain.BuildRockFields(testFeatures), body.RockFields)
	assert.Equal(t, []string{"Rain", "Snow"}, body.Event.EventTypes)
	assert.Equal(t, []string{"No", "Yes"}, body.Event.AcidFlags)
	assert.Equal(t, domain.DefaultEventParams(), body.Event.Defaults)
	assert.Equal(t, []string{"Ca", "SO4"}, body.Targets)
}

func TestPredictAPIFillsDefaults(t *testing.T) {
	m := &mockPredictor{volume: 99.999}
	srv := newTestServer(m)

	rec := postJSON(srv, `{"rock": {"SiO2_rock": 3}, "event": {"event_type": "Snow"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RockInputs{"SiO2_rock": 3, "Corg_rock": 0.05, "Cumulative_Water": 0}, m.gotRock)
	assert.Equal(t, domain.EventParams{Type: domain.EventSnow, Quantity: 100, Acid: domain.AcidNo, Temperature: 10}, m.gotEvent)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pred-1", body["id"])
	assert.Equal(t, "100.00 ml", body["volume"])
	assert.InDelta(t, 99.999, body["volume_ml"], 1e-9)
	assert.Len(t, body["chemistry"], 2)
	assert.Equal(t, toAny(domain.PlainExplanation()), body["explanation"])
	assert.Len(t, body["feature_importance"], 3)
	assert.Equal(t, "2025-05-01T12:00:00Z", body["predicted_at"])
}

func TestPredictAPIEmptyBodyObjectUsesAllDefaults(t *testing.T) {
	m := &mockPredictor{}
	srv := newTestServer(m)

	rec := postJSON(srv, `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultRockInputs(m.Fields()), m.gotRock)
	assert.Equal(t, domain.DefaultEventParams(), m.gotEvent)
}

func TestPredictAPIRejectsBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"rock":`},
		{"unknown field", `{"rocks": {}}`},
		{"non-numeric rock value", `{"rock": {"SiO2_rock": "high"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockPredictor{}
			srv := newTestServer(m)

			rec := postJSON(srv, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], "invalid request body")
			assert.Zero(t, m.calls)
		})
	}
}

func TestPredictAPIErrorStatus(t *testing.T) {
	invalid := &mockPredictor{predictErr: fmt.Errorf("%w: acid must be one of [Yes No], got \"Maybe\"", domain.ErrInvalidEvent)}
	rec := postJSON(newTestServer(invalid), `{"event": {"acid": "Maybe"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lookup := &mockPredictor{predictErr: &domain.LookupError{Feature: "pH"}}
	rec = postJSON(newTestServer(lookup), `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, `missing feature: no value for "pH"`, body["error"])
}

func TestPredictAPIUnencodableResultReturns500(t *testing.T) {
	m := &mockPredictor{volume: math.Inf(1)}
	srv := newTestServer(m)

	rec := postJSON(srv, `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "encode response")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
