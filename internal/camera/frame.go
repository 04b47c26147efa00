// Package camera maintains best-effort live connections to video sources and
// exposes each source's most recent frame.
//
// Every enabled camera gets one Stream running an isolated capture
// goroutine. Connection failures are retried with backoff and never surface
// past the stream; a camera that never connects simply never produces frames.
package camera

import "time"

// Frame is one captured image: a BGR pixel buffer tagged with the camera it
// came from and its capture time. Frames handed out by a Stream are copies,
// so holders never observe a frame mid-overwrite.
type Frame struct {
	CameraID   string
	CapturedAt time.Time
	Width      int
	Height     int
	// Pixels is row-major BGR, 3 bytes per pixel.
	Pixels []byte
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := *f
	out.Pixels = make([]byte, len(f.Pixels))
	copy(out.Pixels, f.Pixels)
	return &out
}
