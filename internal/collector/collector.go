// Package collector runs the sampling loop: snapshot the cameras, gate by
// per-camera frequency, detect, filter, and persist accepted samples.
package collector

import (
	"context"
	"time"

	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/dataset"
	"github.com/banshee-data/datacollector/internal/monitoring"
	"github.com/banshee-data/datacollector/internal/timeutil"
	"github.com/banshee-data/datacollector/internal/vision"
)

// tickDelay paces the sampling loop between snapshot passes.
const tickDelay = 100 * time.Millisecond

// Policy is the acceptance policy applied to every camera.
type Policy struct {
	// Interval is the minimum spacing between accepted samples per camera.
	Interval time.Duration

	// Filter holds the score threshold and class allowlist.
	Filter vision.LabelFilter
}

// Collector drives the acquisition-to-persistence pipeline. All fields are
// owned by the Run goroutine; the registry, detector, and store handle their
// own synchronization.
type Collector struct {
	registry *camera.Registry
	detector vision.Detector
	store    *dataset.Store
	clock    timeutil.Clock
	policy   Policy

	// lastAccepted tracks, per camera, when a sample last passed the gate.
	// The zero value means the camera has never sampled and is immediately
	// eligible.
	lastAccepted map[string]time.Time

	saved int
}

// New assembles a collector. The caller owns the lifecycle of the registry,
// detector, and store.
func New(registry *camera.Registry, detector vision.Detector, store *dataset.Store, clock timeutil.Clock, policy Policy) *Collector {
	return &Collector{
		registry:     registry,
		detector:     detector,
		store:        store,
		clock:        clock,
		policy:       policy,
		lastAccepted: make(map[string]time.Time),
	}
}

// Saved returns how many samples this collector has persisted.
func (c *Collector) Saved() int { return c.saved }

// Run loops until the context is cancelled. Cameras and the detector keep
// running across individual failures; only cancellation stops the loop.
func (c *Collector) Run(ctx context.Context) {
	monitoring.Logf("collector running (interval %s, min confidence %.2f)",
		c.policy.Interval, c.policy.Filter.MinConfidence)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("collector stopped after %d samples", c.saved)
			return
		default:
		}

		c.tick()
		c.clock.Sleep(tickDelay)
	}
}

// tick runs one sampling pass over the current camera snapshot. The clock
// is read once per pass, so every camera is gated against the same instant.
func (c *Collector) tick() {
	now := c.clock.Now()
	for id, frame := range c.registry.Snapshot() {
		if last, ok := c.lastAccepted[id]; ok && now.Sub(last) < c.policy.Interval {
			continue
		}
		c.sample(id, frame, now)
	}
}

// sample runs detection on one eligible frame and persists it if any
// detection survives filtering. The gate timestamp advances only on a
// successful save, so failed attempts retry on the next tick.
func (c *Collector) sample(id string, frame *camera.Frame, now time.Time) {
	res, err := c.detector.Detect(frame)
	if err != nil {
		// A detector failure yields no detections for this frame; the
		// camera stays eligible.
		monitoring.Logf("detection failed for camera %s: %v", id, err)
		return
	}
	if err := res.Validate(); err != nil {
		monitoring.Logf("detector returned bad result for camera %s: %v", id, err)
		return
	}

	labels := vision.BuildLabels(res, c.policy.Filter)
	if len(labels) == 0 {
		return
	}

	saved, err := c.store.SaveSample(frame, labels)
	if err != nil {
		monitoring.Logf("failed to save sample for camera %s: %v", id, err)
		return
	}

	c.lastAccepted[id] = now
	c.saved++
	monitoring.Debugf("saved %s (%s, %d labels)", saved.ID, saved.Split, len(labels))
}
