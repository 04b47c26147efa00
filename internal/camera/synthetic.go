package camera

import "math/rand"

// Synthetic frame dimensions match the default detector input size.
const (
	syntheticWidth  = 640
	syntheticHeight = 640
)

// SyntheticDevice produces pseudo-random frames without any I/O. It backs
// cameras whose URL is TestURL. Open and Read never fail.
type SyntheticDevice struct {
	rng    *rand.Rand
	width  int
	height int
}

// NewSyntheticDevice creates a synthetic device drawing pixel noise from the
// given generator. The generator is owned by this device; seed it for
// deterministic frames in tests.
func NewSyntheticDevice(rng *rand.Rand) *SyntheticDevice {
	return &SyntheticDevice{rng: rng, width: syntheticWidth, height: syntheticHeight}
}

// Open is a no-op; synthetic devices have no connection.
func (d *SyntheticDevice) Open() error { return nil }

// Read synthesizes one noise frame.
func (d *SyntheticDevice) Read() (*Frame, error) {
	pixels := make([]byte, d.width*d.height*3)
	d.rng.Read(pixels)
	return &Frame{
		Width:  d.width,
		Height: d.height,
		Pixels: pixels,
	}, nil
}

// Close is a no-op.
func (d *SyntheticDevice) Close() error { return nil }
