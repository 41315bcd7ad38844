package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/testkube/flakechart/internal/charts"
	"github.com/testkube/flakechart/internal/feed"
	"github.com/testkube/flakechart/internal/flakes"
	"github.com/testkube/flakechart/internal/loader"
	"github.com/testkube/flakechart/internal/query"
	"github.com/testkube/flakechart/internal/results"
)

type Server struct {
	loader    *loader.Loader
	charts    *charts.Generator
	templates map[string]*template.Template
	rootDir   string
	log       logrus.FieldLogger
}

func NewServer(source feed.Source, gen *charts.Generator, rootDir string) *Server {
	templatesDir := filepath.Join(rootDir, "web/templates")
	templates := make(map[string]*template.Template)

	pages := []string{
		"error.html",
		"series.html",
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	for _, page := range pages {
		pagePath := filepath.Join(templatesDir, page)
		templates[page] = template.Must(template.ParseFiles(layoutPath, pagePath))
	}

	log := logrus.WithField("component", "server")
	return &Server{
		loader:    loader.New(source, gen, log),
		charts:    gen,
		templates: templates,
		rootDir:   rootDir,
		log:       log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(s.rootDir, "web/static")))))

	r.Get("/", s.handleChart)
	r.Get("/series", s.handleSeries)
	r.Get("/healthz", s.handleHealth)

	r.Get("/api/v1/flake-rate", s.handleFlakeRateAPI)
	r.Get("/api/v1/series", s.handleSeriesAPI)

	return r
}

// selection returns the test and environment requested in the query string.
func selection(r *http.Request) (string, string) {
	params := query.Parse(r.URL.RawQuery)
	return query.Get(params, "test"), query.Get(params, "env")
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	testName, env := selection(r)

	records, err := s.loader.Load(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	rows := flakes.Aggregate(records, testName, env)
	s.log.WithFields(logrus.Fields{"test": testName, "env": env, "points": len(rows)}).Debug("Rendering chart")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.charts.Render(w, testName, env, rows); err != nil {
		s.renderError(w, err)
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	records, err := s.loader.Load(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	data := map[string]interface{}{
		"Title":  "Tests",
		"Series": flakes.ListSeries(records),
	}
	s.render(w, http.StatusOK, "series.html", data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleFlakeRateAPI(w http.ResponseWriter, r *http.Request) {
	testName, env := selection(r)

	records, err := s.loader.Load(r.Context())
	if err != nil {
		s.writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flakes.Aggregate(records, testName, env))
}

func (s *Server) handleSeriesAPI(w http.ResponseWriter, r *http.Request) {
	records, err := s.loader.Load(r.Context())
	if err != nil {
		s.writeJSONError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flakes.ListSeries(records))
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data interface{}) {
	t, ok := s.templates[page]
	if !ok {
		s.log.Errorf("Template not found: %s", page)
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.WithError(err).Error("Template error")
	}
}

// renderError shows a single error message in place of the chart.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	s.log.WithError(err).WithField("status", status).Error("Failed to load chart")

	data := map[string]interface{}{
		"Title": "Error",
		"Error": err.Error(),
	}
	s.render(w, status, "error.html", data)
}

func (s *Server) writeJSONError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	s.log.WithError(err).WithField("status", status).Error("Failed to load test data")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}

func statusFor(err error) int {
	var fetchErr *feed.FetchError
	var engineErr *charts.EngineError
	var schemaErr *results.SchemaError
	var emptyErr *results.EmptyDatasetError

	switch {
	case errors.As(err, &fetchErr), errors.As(err, &schemaErr), errors.As(err, &emptyErr):
		return http.StatusBadGateway
	case errors.As(err, &engineErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
