package adminhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/chart"
	"github.com/m3rciful/creatorbot/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *challenge.Tracker) {
	t.Helper()
	tracker := challenge.NewTracker(memory.NewEnrollmentStore(), memory.NewHistoryStore(), challenge.Config{})
	return NewRouter(tracker, chart.NewRenderer(chart.Config{Width: 320, Height: 200})), tracker
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestProgressEndpoint(t *testing.T) {
	r, tracker := newTestRouter(t)
	ctx := context.Background()
	if _, err := tracker.Start(ctx, 5); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := tracker.RecordSubmission(ctx, 5, "https://example.org", 100); err != nil {
		t.Fatalf("submit: %v", err)
	}

	w := get(r, "/users/5/progress")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var p challenge.Progress
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Active || p.CurrentDay != 2 || len(p.History) != 1 {
		t.Fatalf("progress = %+v", p)
	}

	if w := get(r, "/users/abc/progress"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}

func TestChartEndpoint(t *testing.T) {
	r, tracker := newTestRouter(t)
	ctx := context.Background()

	if w := get(r, "/users/9/chart.png"); w.Code != http.StatusNotFound {
		t.Fatalf("empty history status = %d", w.Code)
	}

	_, _ = tracker.Start(ctx, 9)
	_, _ = tracker.RecordSubmission(ctx, 9, "l", 10)
	w := get(r, "/users/9/chart.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("response is not a PNG")
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %s", ct)
	}
}
