package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// VideoDevice captures frames from a real source (RTSP/HTTP URL, file path,
// or device index string) through OpenCV.
type VideoDevice struct {
	url string
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// NewVideoDevice creates a device for the given capture URL. The connection
// is not opened until Open is called.
func NewVideoDevice(url string) *VideoDevice {
	return &VideoDevice{url: url}
}

// Open establishes the capture connection.
func (d *VideoDevice) Open() error {
	cap, err := gocv.OpenVideoCapture(d.url)
	if err != nil {
		return fmt.Errorf("failed to open capture %q: %w", d.url, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("capture %q did not open", d.url)
	}
	d.cap = cap
	d.mat = gocv.NewMat()
	return nil
}

// Read grabs the next frame and copies it out as a BGR buffer.
func (d *VideoDevice) Read() (*Frame, error) {
	if d.cap == nil {
		return nil, ErrNotOpen
	}
	if ok := d.cap.Read(&d.mat); !ok {
		return nil, fmt.Errorf("failed to read frame from %q", d.url)
	}
	if d.mat.Empty() {
		return nil, ErrEmptyFrame
	}
	if d.mat.Channels() != 3 {
		return nil, fmt.Errorf("capture %q delivered %d-channel frame, want 3", d.url, d.mat.Channels())
	}

	buf := d.mat.ToBytes()
	pixels := make([]byte, len(buf))
	copy(pixels, buf)

	return &Frame{
		Width:  d.mat.Cols(),
		Height: d.mat.Rows(),
		Pixels: pixels,
	}, nil
}

// Close releases the capture connection.
func (d *VideoDevice) Close() error {
	if d.cap == nil {
		return nil
	}
	d.mat.Close()
	err := d.cap.Close()
	d.cap = nil
	return err
}
