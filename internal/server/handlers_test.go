package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapreviews/harvester/internal/domain/model"
	"github.com/mapreviews/harvester/internal/infra/storage"
	"github.com/mapreviews/harvester/internal/job"
)

type memStore struct {
	mu      sync.Mutex
	results map[string][]model.Review
}

func (s *memStore) Write(ctx context.Context, key string, records []model.Review) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = records
	return "mem://" + key, nil
}

func (s *memStore) Read(ctx context.Context, key string) ([]model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.results[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return records, nil
}

func testServer(t *testing.T, harvestFn job.HarvestFunc) *httptest.Server {
	t.Helper()
	tracker := job.NewTracker(harvestFn, &memStore{results: map[string][]model.Review{}}, 2, zerolog.Nop())
	app := NewApp(tracker, "chromedp", zerolog.Nop())
	ts := httptest.NewServer(NewRouter(app))
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) { return nil, nil })

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("health status = %v", body["status"])
	}
	if body["browser_driver"] != "chromedp" {
		t.Errorf("browser_driver = %v", body["browser_driver"])
	}
}

func TestCrossOriginRequestsAreAllowed(t *testing.T) {
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) { return nil, nil })

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "http://ui.example")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	preflight, err := http.NewRequest(http.MethodOptions, ts.URL+"/scrape", nil)
	if err != nil {
		t.Fatalf("build preflight: %v", err)
	}
	preflight.Header.Set("Origin", "http://ui.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err = http.DefaultClient.Do(preflight)
	if err != nil {
		t.Fatalf("OPTIONS /scrape: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("preflight Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestScrapeValidatesInput(t *testing.T) {
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) { return nil, nil })

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", "{"},
		{"missing source", `{}`},
		{"blank source", `{"source_reference": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/scrape", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /scrape: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestScrapeJobStatusDownloadFlow(t *testing.T) {
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) {
		return []model.Review{
			{ID: "r1", SubjectName: "Cafe Luna"},
			{ID: "r2", SubjectName: "Cafe Luna"},
		}, nil
	})

	resp, err := http.Post(ts.URL+"/scrape", "application/json",
		strings.NewReader(`{"source_reference": "place/x"}`))
	if err != nil {
		t.Fatalf("POST /scrape: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var submitted job.Job
	decodeBody(t, resp, &submitted)
	if submitted.ID == "" || submitted.Status != job.StatusQueued {
		t.Fatalf("submitted job = %+v", submitted)
	}

	deadline := time.Now().Add(2 * time.Second)
	var current job.Job
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/job/" + submitted.ID)
		if err != nil {
			t.Fatalf("GET /job: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		decodeBody(t, resp, &current)
		if current.Status.Terminal() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if current.Status != job.StatusCompleted {
		t.Fatalf("final status = %q (error: %s)", current.Status, current.Error)
	}
	if current.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", current.RecordCount)
	}

	resp, err = http.Get(ts.URL + "/download/" + submitted.ID)
	if err != nil {
		t.Fatalf("GET /download: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", resp.StatusCode)
	}
	var result struct {
		JobID   string         `json:"job_id"`
		Records []model.Review `json:"records"`
	}
	decodeBody(t, resp, &result)
	if result.JobID != submitted.ID {
		t.Errorf("job_id = %q, want %q", result.JobID, submitted.ID)
	}
	if len(result.Records) != 2 {
		t.Fatalf("downloaded %d records, want 2", len(result.Records))
	}
	for _, r := range result.Records {
		if r.SubjectName != "Cafe Luna" {
			t.Errorf("record subject = %q", r.SubjectName)
		}
	}
}

func TestDownloadBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) {
		<-release
		return []model.Review{{ID: "r1"}}, nil
	})
	defer close(release)

	resp, err := http.Post(ts.URL+"/scrape", "application/json",
		strings.NewReader(`{"source_reference": "place/x"}`))
	if err != nil {
		t.Fatalf("POST /scrape: %v", err)
	}
	var submitted job.Job
	decodeBody(t, resp, &submitted)

	resp, err = http.Get(ts.URL + "/download/" + submitted.ID)
	if err != nil {
		t.Fatalf("GET /download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUnknownJobReturns404(t *testing.T) {
	ts := testServer(t, func(ctx context.Context, ref string) ([]model.Review, error) { return nil, nil })

	for _, path := range []string{"/job/unknown", "/download/unknown"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}
