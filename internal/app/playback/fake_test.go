package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19deck/internal/domain/track"
)

// fakeResource is an in-memory Resource driven by the test.
type fakeResource struct {
	mu       sync.Mutex
	uri      string
	startAt  time.Duration
	position time.Duration
	duration time.Duration
	volume   float64
	playing  bool
	unloaded bool
	playErr  error
	updates  chan Status
	factory  *fakeFactory
}

func (r *fakeResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unloaded {
		return errors.New("unloaded")
	}
	if r.playErr != nil {
		return r.playErr
	}
	r.playing = true
	return nil
}

func (r *fakeResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	return nil
}

func (r *fakeResource) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	return nil
}

func (r *fakeResource) Unload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unloaded {
		return nil
	}
	r.unloaded = true
	r.playing = false
	close(r.updates)
	r.factory.live.Add(-1)
	return nil
}

func (r *fakeResource) Seek(position time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = position
	return nil
}

func (r *fakeResource) SetVolume(v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volume = v
	return nil
}

func (r *fakeResource) Status() (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Position: r.position,
		Duration: r.duration,
		Playing:  r.playing,
		Loaded:   !r.unloaded,
	}, nil
}

func (r *fakeResource) Updates() <-chan Status {
	return r.updates
}

// advance moves the playhead as if audio had been playing.
func (r *fakeResource) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position += d
}

// finish reports natural completion.
func (r *fakeResource) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unloaded {
		return
	}
	r.playing = false
	r.position = r.duration
	select {
	case r.updates <- Status{Position: r.duration, Duration: r.duration, Loaded: true, Finished: true}:
	default:
	}
}

func (r *fakeResource) setPlayErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playErr = err
}

// stall stops the playhead without telling the engine.
func (r *fakeResource) stall() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
}

func (r *fakeResource) isUnloaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unloaded
}

func (r *fakeResource) isPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

// fakeFactory creates fakeResources and records how many are alive at once.
type fakeFactory struct {
	mu       sync.Mutex
	duration time.Duration
	created  []*fakeResource
	failURIs map[string]error
	playErr  error // Returned by Play of every created resource
	gates    map[string]chan struct{} // Create blocks on the gate of its uri
	entered  chan string              // Receives the uri each time Create starts

	live    atomic.Int32
	maxLive atomic.Int32
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		duration: 200 * time.Second,
		failURIs: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(chan string, 16),
	}
}

func (f *fakeFactory) Create(ctx context.Context, uri string, startAt time.Duration, volume float64) (Resource, error) {
	f.mu.Lock()
	gate := f.gates[uri]
	failErr := f.failURIs[uri]
	f.mu.Unlock()

	select {
	case f.entered <- uri:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}

	n := f.live.Add(1)
	for {
		m := f.maxLive.Load()
		if n <= m || f.maxLive.CompareAndSwap(m, n) {
			break
		}
	}

	r := &fakeResource{
		uri:      uri,
		startAt:  startAt,
		position: startAt,
		duration: f.duration,
		volume:   volume,
		playErr:  f.playErr,
		updates:  make(chan Status, 4),
		factory:  f,
	}
	f.mu.Lock()
	f.created = append(f.created, r)
	f.mu.Unlock()
	return r, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) last() *fakeResource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// gatedResolver maps indirect sources to URIs, blocking on a per-source gate.
type gatedResolver struct {
	mu    sync.Mutex
	uris  map[string]string
	gates map[string]chan struct{}
	calls chan string
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{
		uris:  make(map[string]string),
		gates: make(map[string]chan struct{}),
		calls: make(chan string, 16),
	}
}

func (r *gatedResolver) Resolve(ctx context.Context, src track.Source) (string, error) {
	r.mu.Lock()
	uri, ok := r.uris[src.Value]
	gate := r.gates[src.Value]
	r.mu.Unlock()

	select {
	case r.calls <- src.Value:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !ok {
		return "", errors.Newf("unknown source %s", src.Value)
	}
	return uri, nil
}

type noticeRecorder struct {
	ch chan Notice
}

func (n *noticeRecorder) Notify(notice Notice) {
	n.ch <- notice
}

func directTrack(id string) track.Track {
	return track.Track{
		ID:       id,
		Title:    "Title " + id,
		Artist:   "Artist",
		Duration: 200 * time.Second,
		Source:   track.Direct("/music/" + id + ".mp3"),
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IdleUnload = 0
	cfg.SettleDelay = time.Millisecond
	cfg.ResolveTimeout = 2 * time.Second
	return cfg
}
