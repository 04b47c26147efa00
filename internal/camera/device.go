package camera

import "errors"

// TestURL is the distinguished camera URL that selects the synthetic
// device. Synthetic cameras never open a real connection and never fail,
// which makes the whole pipeline runnable without hardware.
const TestURL = "test"

var (
	// ErrNotOpen is returned by Read when the device has no live connection.
	ErrNotOpen = errors.New("camera device is not open")

	// ErrEmptyFrame is returned when the source delivered a zero-size frame.
	ErrEmptyFrame = errors.New("camera delivered an empty frame")
)

// Device owns one capture connection to one video source. Implementations
// are not safe for concurrent use; each Stream drives its device from a
// single goroutine.
type Device interface {
	// Open establishes the connection. Calling Open on an open device is
	// undefined; callers close first.
	Open() error

	// Read captures one frame. The returned frame's pixel buffer is owned
	// by the caller. CameraID and CapturedAt are filled in by the Stream.
	Read() (*Frame, error)

	// Close releases the connection. Safe to call on a closed device.
	Close() error
}
