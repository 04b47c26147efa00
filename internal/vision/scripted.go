package vision

import (
	"math/rand"
	"sync"

	"github.com/banshee-data/datacollector/internal/camera"
)

// ScriptedDetector returns whatever its DetectFunc produces. Tests and
// offline runs use it in place of a real model.
type ScriptedDetector struct {
	// DetectFunc supplies each Detect result. Nil means empty results.
	DetectFunc func(frame *camera.Frame) (DetectionResult, error)

	// StartErr, when set, is returned by Start.
	StartErr error

	mu      sync.Mutex
	started bool
	calls   int
}

// Start marks the detector started.
func (d *ScriptedDetector) Start() error {
	if d.StartErr != nil {
		return d.StartErr
	}
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	return nil
}

// Stop marks the detector stopped.
func (d *ScriptedDetector) Stop() {
	d.mu.Lock()
	d.started = false
	d.mu.Unlock()
}

// Started reports whether Start has been called without a matching Stop.
func (d *ScriptedDetector) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Calls returns how many times Detect has run.
func (d *ScriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Detect runs the scripted function.
func (d *ScriptedDetector) Detect(frame *camera.Frame) (DetectionResult, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.DetectFunc == nil {
		return DetectionResult{}, nil
	}
	return d.DetectFunc(frame)
}

// SyntheticDetector fabricates plausible detections from an owned random
// generator so the whole pipeline can run without a model file. Roughly
// half of all frames come back empty; the rest carry one or two rectangular
// instances with scores in [0.5, 1).
type SyntheticDetector struct {
	rng     *rand.Rand
	classes int
}

// NewSyntheticDetector creates a synthetic detector emitting class ids in
// [0, classes). The generator is owned by the detector.
func NewSyntheticDetector(rng *rand.Rand, classes int) *SyntheticDetector {
	if classes < 1 {
		classes = 1
	}
	return &SyntheticDetector{rng: rng, classes: classes}
}

// Start is a no-op; there is no accelerator to acquire.
func (d *SyntheticDetector) Start() error { return nil }

// Stop is a no-op.
func (d *SyntheticDetector) Stop() {}

// Detect fabricates detections sized to the frame.
func (d *SyntheticDetector) Detect(frame *camera.Frame) (DetectionResult, error) {
	var res DetectionResult
	if d.rng.Float64() < 0.5 {
		return res, nil
	}

	n := 1 + d.rng.Intn(2)
	for i := 0; i < n; i++ {
		res.Masks = append(res.Masks, RectMask(frame.Width, frame.Height,
			d.rng.Intn(frame.Width/2), d.rng.Intn(frame.Height/2),
			frame.Width/4+d.rng.Intn(frame.Width/4), frame.Height/4+d.rng.Intn(frame.Height/4)))
		res.ClassIDs = append(res.ClassIDs, d.rng.Intn(d.classes))
		res.Scores = append(res.Scores, 0.5+d.rng.Float64()/2)
	}
	return res, nil
}

// RectMask builds a mask with one filled axis-aligned rectangle, clamped to
// the mask bounds. Shared by the synthetic detector and tests.
func RectMask(w, h, x0, y0, rw, rh int) Mask {
	m := NewMask(w, h)
	for y := y0; y < y0+rh && y < h; y++ {
		for x := x0; x < x0+rw && x < w; x++ {
			if x >= 0 && y >= 0 {
				m.Set(x, y)
			}
		}
	}
	return m
}
