package camera

import (
	"math/rand"

	"github.com/banshee-data/datacollector/internal/config"
	"github.com/banshee-data/datacollector/internal/timeutil"
)

// Registry owns one Stream per enabled camera and provides bulk lifecycle
// control plus a point-in-time snapshot across all of them.
type Registry struct {
	streams map[string]*Stream
	order   []string
}

// NewRegistry builds streams for the enabled cameras. Cameras with the
// TestURL get a synthetic device seeded from rng; everything else gets a
// real video device.
func NewRegistry(cams []config.CameraConfig, clock timeutil.Clock, rng *rand.Rand) *Registry {
	r := &Registry{streams: make(map[string]*Stream)}
	for _, cam := range cams {
		if !cam.Enabled {
			continue
		}
		var dev Device
		synthetic := cam.URL == TestURL
		if synthetic {
			dev = NewSyntheticDevice(rand.New(rand.NewSource(rng.Int63())))
		} else {
			dev = NewVideoDevice(cam.URL)
		}
		r.add(NewStream(cam.ID, cam.Name, dev, synthetic, clock))
	}
	return r
}

// NewRegistryFromStreams assembles a registry around prebuilt streams.
// Tests use it to inject scripted devices.
func NewRegistryFromStreams(streams ...*Stream) *Registry {
	r := &Registry{streams: make(map[string]*Stream)}
	for _, s := range streams {
		r.add(s)
	}
	return r
}

func (r *Registry) add(s *Stream) {
	if _, ok := r.streams[s.ID()]; ok {
		return
	}
	r.streams[s.ID()] = s
	r.order = append(r.order, s.ID())
}

// StartAll starts every owned stream.
func (r *Registry) StartAll() {
	for _, id := range r.order {
		r.streams[id].Start()
	}
}

// StopAll stops every owned stream, returning only after all capture
// goroutines have exited.
func (r *Registry) StopAll() {
	for _, id := range r.order {
		r.streams[id].Stop()
	}
}

// Snapshot returns the latest frame of every camera that has one. Frames
// from different cameras may have been captured at different real times;
// cameras are independent and this is a deliberately partial view.
func (r *Registry) Snapshot() map[string]*Frame {
	frames := make(map[string]*Frame)
	for id, s := range r.streams {
		if f := s.Frame(); f != nil {
			frames[id] = f
		}
	}
	return frames
}

// Connected reports each camera's link state.
func (r *Registry) Connected() map[string]bool {
	out := make(map[string]bool, len(r.streams))
	for id, s := range r.streams {
		out[id] = s.Connected()
	}
	return out
}

// Len returns the number of owned streams.
func (r *Registry) Len() int { return len(r.streams) }
