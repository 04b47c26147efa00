// Package vision defines the detector boundary and the pure projection from
// instance masks to normalized polygon labels.
package vision

import (
	"fmt"

	"github.com/banshee-data/datacollector/internal/camera"
)

// Mask is a binary instance mask over a frame. Bits is row-major, one byte
// per pixel, nonzero meaning foreground.
type Mask struct {
	W, H int
	Bits []uint8
}

// NewMask allocates an all-background mask.
func NewMask(w, h int) Mask {
	return Mask{W: w, H: h, Bits: make([]uint8, w*h)}
}

// At reports whether (x, y) is foreground. Out-of-bounds is background.
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Bits[y*m.W+x] != 0
}

// Set marks (x, y) foreground.
func (m Mask) Set(x, y int) {
	m.Bits[y*m.W+x] = 1
}

// DetectionResult holds one frame's detections as parallel sequences
// aligned by index: Masks[i], ClassIDs[i], and Scores[i] describe the same
// instance.
type DetectionResult struct {
	Masks    []Mask
	ClassIDs []int
	Scores   []float64
}

// Len returns the number of detections.
func (r DetectionResult) Len() int { return len(r.Scores) }

// Validate checks the equal-length invariant across the parallel sequences.
func (r DetectionResult) Validate() error {
	if len(r.Masks) != len(r.ClassIDs) || len(r.ClassIDs) != len(r.Scores) {
		return fmt.Errorf("misaligned detection result: %d masks, %d classes, %d scores",
			len(r.Masks), len(r.ClassIDs), len(r.Scores))
	}
	return nil
}

// Detector finds instances in a frame. Implementations must be callable
// synchronously and repeatedly from a single goroutine; any accelerator
// resource is acquired in Start and released in Stop, not per call.
type Detector interface {
	// Start acquires the inference resources.
	Start() error

	// Stop releases the inference resources.
	Stop()

	// Detect runs inference on one frame.
	Detect(frame *camera.Frame) (DetectionResult, error)
}
