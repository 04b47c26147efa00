package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/config"
	"github.com/banshee-data/datacollector/internal/dataset"
	"github.com/banshee-data/datacollector/internal/fsutil"
	"github.com/banshee-data/datacollector/internal/timeutil"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *dataset.Store, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	cfg := config.StorageConfig{
		BasePath:     "/data",
		DatabasePath: filepath.Join(t.TempDir(), "catalog.db"),
		ImagesDir:    "images",
		LabelsDir:    "labels",
		TrainSplit:   0.8,
	}
	store, err := dataset.NewStore(cfg, fsutil.NewMemoryFileSystem(), clock, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := camera.NewRegistryFromStreams(
		camera.NewStream("cam1", "door", camera.NewSyntheticDevice(rand.New(rand.NewSource(1))), true, clock),
	)

	srv := NewServer(Config{
		Address:  ":0",
		Store:    store,
		Registry: registry,
		Clock:    clock,
	})
	return srv, store, clock
}

func saveSample(t *testing.T, store *dataset.Store, cameraID string) dataset.SavedSample {
	t.Helper()
	frame := &camera.Frame{CameraID: cameraID, Width: 16, Height: 12, Pixels: make([]byte, 16*12*3)}
	saved, err := store.SaveSample(frame, []string{"0 0.1 0.1 0.9 0.9 0.1 0.9"})
	if err != nil {
		t.Fatalf("SaveSample: %v", err)
	}
	return saved
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusReportsRunAndCameras(t *testing.T) {
	srv, store, clock := newTestServer(t)
	saveSample(t, store, "cam1")
	clock.Advance(time.Second)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.RunID != store.RunID() {
		t.Errorf("run_id = %s, want %s", resp.RunID, store.RunID())
	}
	cam, ok := resp.Cameras["cam1"]
	if !ok {
		t.Fatal("cam1 missing from status")
	}
	if cam.Connected || cam.HasFrame {
		t.Errorf("never-started camera reported connected=%v has_frame=%v", cam.Connected, cam.HasFrame)
	}
	total := 0
	for _, n := range resp.Splits {
		total += n
	}
	if total != 1 {
		t.Errorf("split counts sum to %d, want 1", total)
	}
}

func TestStatusRejectsPost(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("error content type = %q, want application/json", ct)
	}
}

func TestFramesNewestFirstWithLimit(t *testing.T) {
	srv, store, clock := newTestServer(t)
	first := saveSample(t, store, "cam1")
	clock.Advance(time.Second)
	second := saveSample(t, store, "cam1")

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frames?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var frames []frameResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &frames); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].ID != second.ID {
		t.Errorf("newest frame = %s, want %s (older: %s)", frames[0].ID, second.ID, first.ID)
	}
}

func TestFramesRejectsBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, limit := range []string{"0", "-3", "abc"} {
		rec := httptest.NewRecorder()
		srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frames?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestSamplesChartRendersHTML(t *testing.T) {
	srv, store, _ := newTestServer(t)
	saveSample(t, store, "cam1")

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/samples", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "cam1") {
		t.Error("chart does not mention cam1")
	}
}
