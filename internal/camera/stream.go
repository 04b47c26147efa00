package camera

import (
	"sync"
	"time"

	"github.com/banshee-data/datacollector/internal/monitoring"
	"github.com/banshee-data/datacollector/internal/timeutil"
)

const (
	// reconnectDelay is the backoff between connection attempts.
	reconnectDelay = 5 * time.Second

	// readDelay bounds CPU usage between successful reads and roughly
	// matches the source's real frame rate.
	readDelay = 10 * time.Millisecond

	// syntheticFrameDelay paces synthetic cameras at ~15 Hz.
	syntheticFrameDelay = 66 * time.Millisecond
)

// Stream owns one camera: a capture goroutine, the device it drives, and a
// single latest-frame slot. The slot is overwritten on every successful
// capture and never queued; only the newest frame matters.
type Stream struct {
	id        string
	name      string
	device    Device
	clock     timeutil.Clock
	synthetic bool

	// mu guards latest and connected. Held only for the copy/assign, never
	// across device I/O.
	mu        sync.Mutex
	latest    *Frame
	connected bool

	// lifecycle guards the running flag and the join channel.
	lifecycle sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewStream wires a stream to its device. Synthetic streams are paced at
// the synthetic frame cadence instead of the real-read delay.
func NewStream(id, name string, device Device, synthetic bool, clock timeutil.Clock) *Stream {
	if name == "" {
		name = id
	}
	return &Stream{
		id:        id,
		name:      name,
		device:    device,
		clock:     clock,
		synthetic: synthetic,
	}
}

// ID returns the camera id.
func (s *Stream) ID() string { return s.id }

// Start launches the capture goroutine. Calling Start on a running stream
// is a no-op.
func (s *Stream) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.capture(s.stop, s.done)
	monitoring.Logf("camera %s (%s) started", s.name, s.id)
}

// Stop signals the capture goroutine and waits for it to exit. After Stop
// returns no further writes to the frame slot occur. Calling Stop on a
// stopped stream is a no-op.
func (s *Stream) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	<-s.done
	s.running = false
	monitoring.Logf("camera %s (%s) stopped", s.name, s.id)
}

// Frame returns a copy of the latest captured frame, or nil if nothing has
// been captured yet. Never blocks on the capture loop.
func (s *Stream) Frame() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.Clone()
}

// Connected reports whether the device currently has a live connection.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Stream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// capture runs until the stop channel closes. Connection failures only
// delay this camera's next frame; they are never fatal.
func (s *Stream) capture(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	opened := false
	defer func() {
		if opened {
			if err := s.device.Close(); err != nil {
				monitoring.Logf("camera %s: close failed: %v", s.name, err)
			}
		}
		s.setConnected(false)
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if !opened {
			if err := s.device.Open(); err != nil {
				s.setConnected(false)
				monitoring.Logf("camera %s: connect failed: %v (retrying in %s)", s.name, err, reconnectDelay)
				s.clock.Sleep(reconnectDelay)
				continue
			}
			opened = true
			s.setConnected(true)
		}

		frame, err := s.device.Read()
		if err != nil {
			monitoring.Logf("camera %s: read failed: %v (reconnecting)", s.name, err)
			if cerr := s.device.Close(); cerr != nil {
				monitoring.Logf("camera %s: close failed: %v", s.name, cerr)
			}
			opened = false
			s.setConnected(false)
			continue
		}

		frame.CameraID = s.id
		frame.CapturedAt = s.clock.Now()

		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		monitoring.Debugf("camera %s: captured %dx%d frame", s.name, frame.Width, frame.Height)

		if s.synthetic {
			s.clock.Sleep(syntheticFrameDelay)
		} else {
			s.clock.Sleep(readDelay)
		}
	}
}
