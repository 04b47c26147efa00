// Package api serves the collector's HTTP surface: service status, catalog
// queries, a debug chart, and the catalog admin routes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/dataset"
	"github.com/banshee-data/datacollector/internal/monitoring"
	"github.com/banshee-data/datacollector/internal/timeutil"
)

const defaultFrameLimit = 50

// Server exposes read-side views over the store and the camera registry. It
// never mutates either.
type Server struct {
	address  string
	store    *dataset.Store
	registry *camera.Registry
	clock    timeutil.Clock

	server *http.Server
}

// Config wires a Server.
type Config struct {
	Address  string
	Store    *dataset.Store
	Registry *camera.Registry
	Clock    timeutil.Clock
}

// NewServer builds the server and its routes.
func NewServer(config Config) *Server {
	s := &Server{
		address:  config.Address,
		store:    config.Store,
		registry: config.Registry,
		clock:    config.Clock,
	}
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.setupRoutes(),
	}
	return s
}

// setupRoutes configures the HTTP routes and handlers
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/frames", s.handleFrames)
	mux.HandleFunc("/debug/charts/samples", s.handleSamplesChart)

	if err := s.store.Catalog().AttachAdminRoutes(mux); err != nil {
		monitoring.Logf("catalog admin routes unavailable: %v", err)
	}

	return mux
}

// Start begins the HTTP server in a goroutine and shuts it down when the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type cameraStatus struct {
	Connected    bool    `json:"connected"`
	HasFrame     bool    `json:"has_frame"`
	FrameAgeSecs float64 `json:"frame_age_seconds,omitempty"`
}

type statusResponse struct {
	RunID   string                  `json:"run_id"`
	Cameras map[string]cameraStatus `json:"cameras"`
	Splits  map[string]int          `json:"splits"`
}

// handleStatus reports per-camera link state and dataset counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	splits, err := s.store.Catalog().CountsBySplit()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("count splits: %v", err))
		return
	}

	frames := s.registry.Snapshot()
	cameras := make(map[string]cameraStatus)
	for id, connected := range s.registry.Connected() {
		status := cameraStatus{Connected: connected}
		if f, ok := frames[id]; ok {
			status.HasFrame = true
			status.FrameAgeSecs = s.clock.Since(f.CapturedAt).Seconds()
		}
		cameras[id] = status
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		RunID:   s.store.RunID(),
		Cameras: cameras,
		Splits:  splits,
	})
}

type frameResponse struct {
	ID        string  `json:"id"`
	CameraID  string  `json:"camera_id"`
	Timestamp float64 `json:"timestamp"`
	Split     string  `json:"split"`
	ImagePath string  `json:"image_path"`
}

// handleFrames returns the newest catalog rows. Query params:
//
//	limit (optional, default 50)
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultFrameLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = v
	}

	records, err := s.store.Catalog().RecentFrames(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list frames: %v", err))
		return
	}

	out := make([]frameResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, frameResponse{
			ID:        rec.ID,
			CameraID:  rec.CameraID,
			Timestamp: rec.Timestamp,
			Split:     rec.Split,
			ImagePath: rec.ImagePath,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleSamplesChart renders a bar chart (HTML) of samples per camera.
func (s *Server) handleSamplesChart(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Catalog().SamplesPerCamera()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("count samples: %v", err))
		return
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	y := make([]opts.BarData, 0, len(ids))
	for _, id := range ids {
		y = append(y, opts.BarData{Value: counts[id]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Dataset Samples", Subtitle: fmt.Sprintf("run %s", s.store.RunID())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(ids).
		AddSeries("samples", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
