package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/models"
)

// stubService records calls and returns canned results.
type stubService struct {
	changed   bool
	processed []string
	summary   models.Summary
	last      *models.Summary
	err       error
}

func (s *stubService) ProcessOne(_ context.Context, notePath string) (bool, error) {
	s.processed = append(s.processed, notePath)
	return s.changed, s.err
}

func (s *stubService) BackfillAll(context.Context, bool) (models.Summary, error) {
	return s.summary, s.err
}

func (s *stubService) LastRun() *models.Summary { return s.last }

func newTestServer(svc Service, authEnabled bool, token string) *httptest.Server {
	return httptest.NewServer(NewRouter(svc, authEnabled, token, nil))
}

func TestStatus_Empty(t *testing.T) {
	ts := newTestServer(&stubService{}, false, "")
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LastRun != nil {
		t.Errorf("last_run = %v, want nil", body.LastRun)
	}
}

func TestStatus_WithLastRun(t *testing.T) {
	svc := &stubService{last: &models.Summary{Processed: 5, WeeklyTouched: 2}}
	ts := newTestServer(svc, false, "")
	defer ts.Close()

	resp, _ := http.Get(ts.URL + "/status")
	defer resp.Body.Close()
	var body StatusResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.LastRun == nil || body.LastRun.Processed != 5 {
		t.Errorf("last_run = %+v", body.LastRun)
	}
}

func TestBackfill(t *testing.T) {
	svc := &stubService{summary: models.Summary{Processed: 3, WeeklyTouched: 1}}
	ts := newTestServer(svc, false, "")
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/backfill", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /backfill: %v", err)
	}
	defer resp.Body.Close()
	var body BackfillResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Summary.Processed != 3 || body.Summary.WeeklyTouched != 1 {
		t.Errorf("summary = %+v", body.Summary)
	}
}

func TestProcess(t *testing.T) {
	svc := &stubService{changed: true}
	ts := newTestServer(svc, false, "")
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/process", "application/json",
		strings.NewReader(`{"path":"2025-05-12.md"}`))
	if err != nil {
		t.Fatalf("POST /process: %v", err)
	}
	defer resp.Body.Close()
	var body ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Changed || body.Path != "2025-05-12.md" {
		t.Errorf("body = %+v", body)
	}
	if len(svc.processed) != 1 || svc.processed[0] != "2025-05-12.md" {
		t.Errorf("processed = %v", svc.processed)
	}
}

func TestProcess_MissingPath(t *testing.T) {
	ts := newTestServer(&stubService{}, false, "")
	defer ts.Close()

	resp, _ := http.Post(ts.URL+"/process", "application/json", strings.NewReader(`{}`))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProcess_ConfigErrorMapsTo422(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("bad pattern: %w", apperr.ErrConfig)}
	ts := newTestServer(svc, false, "")
	defer ts.Close()

	resp, _ := http.Post(ts.URL+"/process", "application/json",
		strings.NewReader(`{"path":"2025-05-12.md"}`))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestAuth_Enforced(t *testing.T) {
	ts := newTestServer(&stubService{}, true, "secret")
	defer ts.Close()

	resp, _ := http.Get(ts.URL + "/status")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authed status = %d, want 200", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}
}
