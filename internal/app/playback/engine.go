package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/domain/track"
)

// Config holds engine configuration.
type Config struct {
	IdleUnload               time.Duration // Paused time before the resource is released (0 disables)
	ResolveTimeout           time.Duration // Upper bound for source resolution
	SettleDelay              time.Duration // Wait after force-releasing an in-flight resource
	RestartThreshold         time.Duration // Previous restarts the track past this position
	DriftTolerance           time.Duration // Resume re-seeks when the resource drifted more than this
	InitialVolume            float64       // 0..1
	ShuffleExcludesAncillary bool
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		IdleUnload:               5 * time.Second,
		ResolveTimeout:           30 * time.Second,
		SettleDelay:              150 * time.Millisecond,
		RestartThreshold:         3 * time.Second,
		DriftTolerance:           500 * time.Millisecond,
		InitialVolume:            1.0,
		ShuffleExcludesAncillary: true,
	}
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithResolver sets the resolver used for indirect sources.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithNotifier sets the sink for shuffle/repeat notices.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithSelector replaces the transition selector.
func WithSelector(s *Selector) Option {
	return func(e *Engine) { e.selector = s }
}

// WithModes sets the initial shuffle and repeat modes.
func WithModes(shuffle bool, repeat RepeatMode) Option {
	return func(e *Engine) {
		e.state.Shuffle = shuffle
		e.state.Repeat = repeat
	}
}

// attempt is one load in progress.
type attempt struct {
	token    uint64
	track    track.Track
	startAt  time.Duration
	autoplay bool
	settle   time.Duration // Wait before loading, after a superseded resource was released

	ctx    context.Context // Bounds resolution and Create; cancelled by forceRelease
	cancel context.CancelFunc

	mu        sync.Mutex
	res       *handle
	cancelled bool
}

// attach records the created resource. Returns false if the attempt was
// force-released in the meantime.
func (a *attempt) attach(h *handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled {
		return false
	}
	a.res = h
	return true
}

// detach forgets the resource once the engine owns it.
func (a *attempt) detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.res = nil
}

// forceRelease cancels the attempt, interrupting a pending resolution or
// Create, and releases its resource if it has one. Returns true if a
// resource was released.
func (a *attempt) forceRelease() bool {
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = true
	if a.res == nil {
		return false
	}
	a.res.release()
	a.res = nil
	return true
}

// Engine is the playback state machine. It is the only owner of the audio
// resource; all mutations of state and resource are serialized by mu.
type Engine struct {
	mu       sync.Mutex
	createMu sync.Mutex // at most one Create in flight, so at most one loaded resource

	supplier playlist.Supplier
	factory  ResourceFactory
	resolver Resolver
	notifier Notifier
	selector *Selector
	config   Config

	state     State
	resource  *handle
	token     uint64
	inflight  *attempt
	saved     time.Duration // SavedPosition
	transient *track.Track  // Track played while absent from the playlist

	idleTimer *time.Timer
	idleGen   uint64

	eventCh chan Event
	watchWG sync.WaitGroup
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates a playback engine reading its playlist from supplier.
func NewEngine(config Config, supplier playlist.Supplier, factory ResourceFactory, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	volume := clampVolume(config.InitialVolume)
	e := &Engine{
		supplier: supplier,
		factory:  factory,
		selector: NewSelector(config.ShuffleExcludesAncillary),
		config:   config,
		state: State{
			Volume:       volume,
			Repeat:       RepeatOff,
			CurrentIndex: -1,
		},
		eventCh: make(chan Event, 32),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the event channel. It is closed by Close.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.CurrentTrack != nil && !e.state.IsLoading {
		e.resyncLocked(e.playlistLocked())
	}
	return e.state.clone()
}

// Playlist returns the playlist as the engine sees it, including a track
// played while absent from the supplier.
func (e *Engine) Playlist() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playlistLocked()
}

// PlayTrack starts playing t. If t is already loaded it toggles play/pause.
func (e *Engine) PlayTrack(t track.Track) {
	e.mu.Lock()
	a := e.playTrackLocked(t)
	e.mu.Unlock()

	e.run(a)
}

// TogglePlayPause pauses, resumes, or loads the current (or first) track.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	a := e.togglePlayPauseLocked()
	e.mu.Unlock()

	e.run(a)
}

// SeekTo moves the playback position, clamped to [0, duration].
func (e *Engine) SeekTo(position time.Duration) {
	e.mu.Lock()
	a := e.seekToLocked(position)
	e.mu.Unlock()

	e.run(a)
}

// Next plays the next track. No-op while a load is in flight.
func (e *Engine) Next() {
	e.mu.Lock()
	a := e.nextLocked()
	e.mu.Unlock()

	e.run(a)
}

// Previous restarts the current track past the restart threshold, otherwise
// plays the previous track. No-op while a load is in flight.
func (e *Engine) Previous() {
	e.mu.Lock()
	a := e.previousLocked()
	e.mu.Unlock()

	e.run(a)
}

// SetVolume sets the volume, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	v = clampVolume(v)
	e.state.Volume = v
	if e.resource != nil {
		if err := e.resource.res.SetVolume(v); err != nil {
			zlog.Warn().Msgf("playback: set volume failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "volume", Err: err})
		}
	}
	e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
}

// ToggleShuffle flips shuffle and returns the new value.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Shuffle = !e.state.Shuffle
	code, msg := "shuffle_off", "Shuffle off"
	if e.state.Shuffle {
		code, msg = "shuffle_on", "Shuffle on"
	}
	e.notify(Notice{Code: code, Message: msg, Shuffle: e.state.Shuffle, Repeat: e.state.Repeat})
	e.emitLocked(EventModeChanged, e.state.CurrentTrack, nil)
	return e.state.Shuffle
}

// ToggleRepeat cycles off -> all -> one -> off and returns the new mode.
func (e *Engine) ToggleRepeat() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Repeat = e.state.Repeat.Next()
	e.notify(Notice{
		Code:    "repeat_" + e.state.Repeat.String(),
		Message: "Repeat " + e.state.Repeat.String(),
		Shuffle: e.state.Shuffle,
		Repeat:  e.state.Repeat,
	})
	e.emitLocked(EventModeChanged, e.state.CurrentTrack, nil)
	return e.state.Repeat
}

// Close releases the resource and stops the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.disarmIdleLocked()
	if e.inflight != nil {
		e.inflight.forceRelease()
		e.inflight = nil
	}
	e.releaseResourceLocked()
	e.state.IsPlaying = false
	e.state.IsLoading = false
	e.cancel()
	e.mu.Unlock()

	e.watchWG.Wait()
	close(e.eventCh)
	return nil
}

func (e *Engine) playTrackLocked(t track.Track) *attempt {
	if e.closed {
		return nil
	}
	if e.resource != nil && e.state.currentID() == t.ID {
		return e.togglePlayPauseLocked()
	}
	if e.state.IsLoading && e.inflight != nil && e.inflight.track.ID == t.ID {
		zlog.Debug().Msgf("playback: load already in flight: track=%s", t.ID)
		return nil
	}

	base := e.suppliedLocked()
	if playlist.IndexOf(base, t.ID) >= 0 {
		e.transient = nil
	} else {
		tt := t
		e.transient = &tt
	}
	tracks := e.withTransient(base)

	e.saved = 0
	return e.beginLoadLocked(t, playlist.IndexOf(tracks, t.ID), 0, true)
}

func (e *Engine) togglePlayPauseLocked() *attempt {
	if e.closed || e.state.IsLoading {
		return nil
	}

	if e.resource == nil {
		tracks := e.playlistLocked()
		if e.state.CurrentTrack != nil {
			// Reload where the previous resource stopped (idle unload or seek before load).
			t := *e.state.CurrentTrack
			return e.beginLoadLocked(t, playlist.IndexOf(tracks, t.ID), e.saved, true)
		}
		if len(tracks) == 0 {
			return nil
		}
		e.saved = 0
		return e.beginLoadLocked(tracks[0], 0, 0, true)
	}

	if e.state.IsPlaying {
		e.pauseLocked()
	} else {
		e.resumeLocked()
	}
	return nil
}

func (e *Engine) pauseLocked() {
	res := e.resource.res
	pos := e.state.Position
	if st, err := res.Status(); err == nil {
		pos = st.Position
	}
	e.saved = pos
	e.state.Position = pos

	if err := res.Pause(); err != nil {
		zlog.Warn().Msgf("playback: pause failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "pause", Err: err})
	}
	e.state.IsPlaying = false
	e.armIdleLocked()
	e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
}

func (e *Engine) resumeLocked() {
	e.disarmIdleLocked()
	res := e.resource.res

	st, err := res.Status()
	if err != nil || absDuration(st.Position-e.saved) > e.config.DriftTolerance {
		if err := res.Seek(e.saved); err != nil {
			zlog.Warn().Msgf("playback: re-seek before resume failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "seek", Err: err})
		}
	}
	e.state.Position = e.saved

	e.playLocked()
	e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
}

// playLocked starts the loaded resource, tolerating an interrupted transport.
func (e *Engine) playLocked() {
	err := e.resource.res.Play()
	switch {
	case err == nil:
		e.state.IsPlaying = true
	case errors.Is(err, ErrInterrupted):
		zlog.Debug().Msgf("playback: play interrupted, re-querying status: track=%s", e.resource.trackID)
		e.settleLocked()
	default:
		zlog.Error().Msgf("playback: play failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "play", Err: err})
		e.state.IsPlaying = false
	}
	if !e.state.IsPlaying {
		e.armIdleLocked()
	}
}

// settleLocked takes the transport state from the resource itself.
func (e *Engine) settleLocked() {
	st, err := e.resource.res.Status()
	if err != nil {
		e.state.IsPlaying = false
		return
	}
	e.state.IsPlaying = st.Playing
	e.state.Position = st.Position
}

func (e *Engine) seekToLocked(position time.Duration) *attempt {
	if e.closed || e.state.CurrentTrack == nil {
		return nil
	}

	position = max(position, 0)
	if e.state.Duration > 0 {
		position = min(position, e.state.Duration)
	}

	if e.resource == nil {
		e.saved = position
		e.state.Position = position
		if e.state.IsLoading {
			// The in-flight load picks the new offset up at commit.
			return nil
		}
		t := *e.state.CurrentTrack
		return e.beginLoadLocked(t, playlist.IndexOf(e.playlistLocked(), t.ID), position, false)
	}

	wasPlaying := e.state.IsPlaying
	if err := e.resource.res.Seek(position); err != nil {
		zlog.Warn().Msgf("playback: seek failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "seek", Err: err})
		return nil
	}
	e.saved = position
	e.state.Position = position
	if wasPlaying {
		e.playLocked()
	}
	e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
	return nil
}

func (e *Engine) nextLocked() *attempt {
	if e.closed || e.state.IsLoading {
		return nil
	}

	tracks := e.playlistLocked()
	idx, err := e.selector.Next(tracks, e.resyncLocked(tracks), e.state.Shuffle)
	if err != nil {
		zlog.Debug().Msgf("playback: next aborted: %v", err)
		return nil
	}
	e.saved = 0
	return e.beginLoadLocked(tracks[idx], idx, 0, true)
}

func (e *Engine) previousLocked() *attempt {
	if e.closed || e.state.IsLoading {
		return nil
	}

	if e.state.CurrentTrack != nil && e.livePositionLocked() > e.config.RestartThreshold {
		e.restartLocked()
		return nil
	}

	tracks := e.playlistLocked()
	idx, err := e.selector.Previous(tracks, e.resyncLocked(tracks), e.state.Shuffle)
	if err != nil {
		zlog.Debug().Msgf("playback: previous aborted: %v", err)
		return nil
	}
	e.saved = 0
	return e.beginLoadLocked(tracks[idx], idx, 0, true)
}

// restartLocked rewinds the current track without changing it.
func (e *Engine) restartLocked() {
	e.saved = 0
	e.state.Position = 0
	if e.resource != nil {
		if err := e.resource.res.Seek(0); err != nil {
			zlog.Warn().Msgf("playback: restart failed: %v", &ResourceError{TrackID: e.resource.trackID, Operation: "seek", Err: err})
		}
	}
	e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
}

// beginLoadLocked mints a token and points the state at t. The returned
// attempt must be passed to run once the lock is released.
func (e *Engine) beginLoadLocked(t track.Track, index int, startAt time.Duration, autoplay bool) *attempt {
	e.disarmIdleLocked()
	e.releaseResourceLocked()

	var settle time.Duration
	if prev := e.inflight; prev != nil && prev.track.ID != t.ID {
		if prev.forceRelease() {
			settle = e.config.SettleDelay
		}
	}

	e.token++
	ctx, cancel := context.WithCancel(e.ctx)
	a := &attempt{
		token:    e.token,
		track:    t,
		startAt:  startAt,
		autoplay: autoplay,
		settle:   settle,
		ctx:      ctx,
		cancel:   cancel,
	}
	e.inflight = a

	tt := t
	e.state.CurrentTrack = &tt
	e.state.CurrentIndex = index
	e.state.IsLoading = true
	e.state.IsPlaying = false
	e.state.Position = startAt
	e.state.Duration = t.Duration

	zlog.Debug().Msgf("playback: load started: token=%d track=%s index=%d start=%v", a.token, t.ID, index, startAt)
	return a
}

func (e *Engine) run(a *attempt) {
	if a == nil {
		return
	}
	defer a.cancel()

	if a.settle > 0 {
		select {
		case <-time.After(a.settle):
		case <-a.ctx.Done():
		}
	}

	uri, err := resolveSource(a.ctx, e.resolver, a.track, e.config.ResolveTimeout)
	if err != nil {
		if a.ctx.Err() != nil {
			zlog.Debug().Msgf("playback: discarded cancelled resolution: token=%d track=%s", a.token, a.track.ID)
			return
		}
		e.failLoad(a, err)
		return
	}

	h, err := e.create(a, uri)
	if err != nil {
		if errors.Is(err, errStale) {
			zlog.Debug().Msgf("playback: discarded stale load: token=%d track=%s", a.token, a.track.ID)
			return
		}
		e.failLoad(a, err)
		return
	}

	e.commit(a, h)
}

func (e *Engine) create(a *attempt, uri string) (*handle, error) {
	e.createMu.Lock()
	defer e.createMu.Unlock()

	if !e.isCurrent(a.token) {
		return nil, errStale
	}

	res, err := e.factory.Create(a.ctx, uri, a.startAt, e.volume())
	if err != nil {
		if a.ctx.Err() != nil {
			return nil, errStale
		}
		return nil, &ResourceError{TrackID: a.track.ID, Operation: "create", Err: err}
	}

	h := newHandle(res, a.track.ID)
	if !a.attach(h) || !e.isCurrent(a.token) {
		h.release()
		return nil, errStale
	}
	return h, nil
}

func (e *Engine) commit(a *attempt, h *handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || a.token != e.token || e.resource != nil || e.state.currentID() != a.track.ID || h.released() {
		h.release()
		zlog.Debug().Msgf("playback: discarded stale resource: token=%d track=%s", a.token, a.track.ID)
		return
	}

	a.detach()
	e.inflight = nil
	e.resource = h
	e.state.IsLoading = false

	if st, err := h.res.Status(); err == nil && st.Duration > 0 {
		e.state.Duration = st.Duration
	}
	if e.saved != a.startAt {
		// A seek landed while the load was in flight.
		if err := h.res.Seek(e.saved); err != nil {
			zlog.Warn().Msgf("playback: seek after load failed: %v", &ResourceError{TrackID: a.track.ID, Operation: "seek", Err: err})
		}
	}
	e.state.Position = e.saved

	e.watchWG.Add(1)
	go e.watch(h)

	if !a.autoplay {
		e.armIdleLocked()
		e.emitLocked(EventStateChanged, e.state.CurrentTrack, nil)
		return
	}

	err := h.res.Play()
	switch {
	case err == nil:
		e.state.IsPlaying = true
	case errors.Is(err, ErrInterrupted):
		e.settleLocked()
	default:
		rerr := &ResourceError{TrackID: a.track.ID, Operation: "play", Err: err}
		zlog.Error().Msgf("playback: load failed: %v", rerr)
		e.releaseResourceLocked()
		e.state.IsPlaying = false
		e.emitLocked(EventLoadFailed, e.state.CurrentTrack, rerr)
		return
	}

	zlog.Info().Msgf("playback: track started: track=%s index=%d", a.track.ID, e.state.CurrentIndex)
	e.emitLocked(EventTrackStarted, e.state.CurrentTrack, nil)
}

func (e *Engine) failLoad(a *attempt, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a.token != e.token {
		zlog.Debug().Msgf("playback: ignored failure of stale load: token=%d err=%v", a.token, err)
		return
	}

	e.inflight = nil
	e.state.IsLoading = false
	e.state.IsPlaying = false
	zlog.Error().Msgf("playback: load failed: %v", err)
	e.emitLocked(EventLoadFailed, e.state.CurrentTrack, err)
}

// watch forwards resource status updates until the resource is released.
func (e *Engine) watch(h *handle) {
	defer e.watchWG.Done()

	updates := h.res.Updates()
	for {
		select {
		case <-h.done:
			return
		case <-e.ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if st.Finished {
				e.handleFinished(h)
				return
			}
			e.applyStatus(h, st)
		}
	}
}

func (e *Engine) applyStatus(h *handle, st Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resource != h {
		return
	}
	if st.Duration > 0 {
		e.state.Duration = st.Duration
	}
	if e.state.IsPlaying {
		e.state.Position = st.Position
	}
}

func (e *Engine) handleFinished(h *handle) {
	e.mu.Lock()
	a := e.completeLocked(h)
	e.mu.Unlock()

	e.run(a)
}

// completeLocked applies the repeat policy after a natural end of track.
func (e *Engine) completeLocked(h *handle) *attempt {
	if e.closed || e.resource != h || e.state.CurrentTrack == nil {
		return nil
	}

	finished := *e.state.CurrentTrack
	e.emitLocked(EventTrackEnded, &finished, nil)

	tracks := e.playlistLocked()
	current := e.resyncLocked(tracks)

	if e.state.Repeat == RepeatOne {
		e.saved = 0
		return e.beginLoadLocked(finished, current, 0, true)
	}

	idx, err := e.selector.Next(tracks, current, e.state.Shuffle)
	if err != nil || (e.state.Repeat == RepeatOff && !e.state.Shuffle && IsLast(tracks, current)) {
		e.stopLocked()
		return nil
	}

	e.saved = 0
	return e.beginLoadLocked(tracks[idx], idx, 0, true)
}

// stopLocked stops transport but keeps the current track selected.
func (e *Engine) stopLocked() {
	e.disarmIdleLocked()
	e.releaseResourceLocked()
	e.saved = 0
	e.state.Position = 0
	e.state.IsPlaying = false
	zlog.Info().Msgf("playback: reached end of playlist: track=%s", e.state.currentID())
	e.emitLocked(EventPlaybackStopped, e.state.CurrentTrack, nil)
}

func (e *Engine) releaseResourceLocked() {
	if e.resource == nil {
		return
	}
	h := e.resource
	e.resource = nil
	h.release()
}

// resyncLocked re-reads the index of the current track and stores it.
func (e *Engine) resyncLocked(tracks []track.Track) int {
	if e.state.CurrentTrack == nil {
		e.state.CurrentIndex = -1
		return -1
	}
	e.state.CurrentIndex = playlist.IndexOf(tracks, e.state.CurrentTrack.ID)
	return e.state.CurrentIndex
}

func (e *Engine) suppliedLocked() []track.Track {
	if e.supplier == nil {
		return nil
	}
	return e.supplier.Tracks()
}

func (e *Engine) playlistLocked() []track.Track {
	return e.withTransient(e.suppliedLocked())
}

func (e *Engine) withTransient(tracks []track.Track) []track.Track {
	if e.transient == nil || playlist.IndexOf(tracks, e.transient.ID) >= 0 {
		return tracks
	}
	return append(tracks[:len(tracks):len(tracks)], *e.transient)
}

func (e *Engine) livePositionLocked() time.Duration {
	if e.resource != nil {
		if st, err := e.resource.res.Status(); err == nil {
			return st.Position
		}
	}
	return e.state.Position
}

func (e *Engine) isCurrent(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.token == token
}

func (e *Engine) volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Volume
}

func (e *Engine) notify(n Notice) {
	if e.notifier == nil {
		return
	}
	notifier := e.notifier
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zlog.Debug().Msgf("playback: notifier panicked: %v", r)
			}
		}()
		notifier.Notify(n)
	}()
}

// emitLocked sends an event without blocking.
func (e *Engine) emitLocked(typ EventType, t *track.Track, err error) {
	if e.closed {
		return
	}
	var tc *track.Track
	if t != nil {
		copied := *t
		tc = &copied
	}
	select {
	case e.eventCh <- Event{Type: typ, Track: tc, State: e.state.clone(), Err: err}:
	default:
		// Channel full, drop event
	}
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
