package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
)

const pageTitle = "Rock Leaching Prediction App"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type fieldView struct {
	Name  string
	Value string
	Step  string
}

type resultView struct {
	ID        string
	Volume    string
	Chemistry []domain.TargetValue
}

type pageData struct {
	Title       string
	Fields      []fieldView
	EventTypes  []domain.EventType
	AcidFlags   []domain.AcidFlag
	Event       domain.EventParams
	Error       string
	Result      *resultView
	Explanation [][]domain.ExplanationSegment
}

var explanationView = func() [][]domain.ExplanationSegment {
	lines := make([][]domain.ExplanationSegment, len(domain.Explanation))
	for i, line := range domain.Explanation {
		lines[i] = domain.SplitEmphasis(line)
	}
	return lines
}()

func (s *Server) newPage(rock domain.RockInputs, event domain.EventParams) pageData {
	fields := s.predictor.Fields()
	views := make([]fieldView, len(fields))
	for i, f := range fields {
		v, ok := rock[f.Name]
		if !ok {
			v = f.Default
		}
		views[i] = fieldView{Name: f.Name, Value: f.Format(v), Step: f.Step()}
	}
	return pageData{
		Title:       pageTitle,
		Fields:      views,
		EventTypes:  domain.EventTypes,
		AcidFlags:   domain.AcidFlags,
		Event:       event,
		Explanation: explanationView,
	}
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	fields := s.predictor.Fields()
	s.renderPage(w, http.StatusOK, s.newPage(domain.DefaultRockInputs(fields), domain.DefaultEventParams()))
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	rock, event, err := parseSubmission(r, s.predictor.Fields())
	page := s.newPage(rock, event)
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, statusFor(err), page)
		return
	}

	pred, err := s.predictor.Predict(r.Context(), rock, event)
	if err != nil {
		page.Error = "Prediction failed: " + err.Error()
		s.renderPage(w, statusFor(err), page)
		return
	}

	page.Result = &resultView{
		ID:        pred.ID,
		Volume:    pred.VolumeText(),
		Chemistry: pred.Chemistry,
	}
	s.renderPage(w, http.StatusOK, page)
}

// renderPage executes the template into a buffer first so a template error
// never leaves a half-written page behind a 200.
func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck // client went away
}
