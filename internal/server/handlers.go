package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mapreviews/harvester/internal/job"
)

// App bundles the handler dependencies.
type App struct {
	Tracker       *job.Tracker
	BrowserDriver string
	Logger        zerolog.Logger
}

func NewApp(tracker *job.Tracker, browserDriver string, logger zerolog.Logger) *App {
	return &App{Tracker: tracker, BrowserDriver: browserDriver, Logger: logger}
}

type scrapeRequest struct {
	SourceReference string `json:"source_reference"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"browser_driver": a.BrowserDriver,
	})
}

// Scrape accepts a harvest request and returns the queued job immediately;
// the harvest itself runs in the background.
func (a *App) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SourceReference = strings.TrimSpace(req.SourceReference)
	if req.SourceReference == "" {
		a.jsonError(w, http.StatusBadRequest, "source_reference is required")
		return
	}

	j := a.Tracker.Submit(req.SourceReference)
	a.json(w, http.StatusAccepted, j)
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := a.Tracker.Status(id)
	if !ok {
		a.jsonError(w, http.StatusNotFound, "job not found")
		return
	}
	a.json(w, http.StatusOK, j)
}

func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := a.Tracker.Result(r.Context(), id)
	switch {
	case errors.Is(err, job.ErrNotFound):
		a.jsonError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, job.ErrNotReady):
		a.jsonError(w, http.StatusBadRequest, "job not completed yet")
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("job_id", id).Msg("load result")
		a.jsonError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"job_id":  id,
		"records": records,
	})
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, detail string) {
	a.json(w, code, map[string]string{"detail": detail})
}
