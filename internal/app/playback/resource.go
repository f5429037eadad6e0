package playback

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Status is a point-in-time view of an audio resource.
type Status struct {
	Position time.Duration
	Duration time.Duration
	Playing  bool
	Loaded   bool
	Finished bool // Set once, on the update that reports natural completion
}

// Resource is a single loaded audio stream.
//
// Updates returns the subscription established when the resource was created.
// Implementations must never block when sending on it (drop stale updates
// instead), must deliver exactly one update with Finished set when the audio
// ends naturally, and must close the channel from Unload.
type Resource interface {
	Play() error
	Pause() error
	Stop() error
	Unload() error
	Seek(position time.Duration) error
	SetVolume(v float64) error
	Status() (Status, error)
	Updates() <-chan Status
}

// ResourceFactory creates audio resources. A created resource is loaded and
// paused at startAt.
type ResourceFactory interface {
	Create(ctx context.Context, uri string, startAt time.Duration, volume float64) (Resource, error)
}

// ResourceFactoryFunc adapts a function to ResourceFactory.
type ResourceFactoryFunc func(ctx context.Context, uri string, startAt time.Duration, volume float64) (Resource, error)

// Create calls f.
func (f ResourceFactoryFunc) Create(ctx context.Context, uri string, startAt time.Duration, volume float64) (Resource, error) {
	return f(ctx, uri, startAt, volume)
}

// handle owns one resource on behalf of the engine. Releasing it is
// idempotent so a stale load and a superseding load can both try.
type handle struct {
	res     Resource
	trackID string
	once    sync.Once
	done    chan struct{}
}

func newHandle(res Resource, trackID string) *handle {
	return &handle{res: res, trackID: trackID, done: make(chan struct{})}
}

// release stops and unloads the resource, swallowing errors: the resource
// may already be in a terminal state.
func (h *handle) release() {
	h.once.Do(func() {
		close(h.done)
		if err := h.res.Stop(); err != nil {
			zlog.Debug().Msgf("playback: stop on release failed: track=%s err=%v", h.trackID, err)
		}
		if err := h.res.Unload(); err != nil {
			zlog.Debug().Msgf("playback: unload on release failed: track=%s err=%v", h.trackID, err)
		}
	})
}

// released reports whether release has run.
func (h *handle) released() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
