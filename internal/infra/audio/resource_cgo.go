//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/playback"
)

// Available indicates whether audio playback is supported in this build.
const Available = true

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// initSpeaker initializes the speaker once per process.
func initSpeaker(config Config) error {
	speakerOnce.Do(func() {
		speakerRate = beep.SampleRate(config.SampleRate)
		speakerErr = speaker.Init(speakerRate, speakerRate.N(config.Buffer))
		if speakerErr == nil {
			zlog.Info().Msgf("audio: speaker initialized: rate=%d buffer=%v", config.SampleRate, config.Buffer)
		}
	})
	return speakerErr
}

// Create decodes uri and starts a paused resource positioned at startAt.
func (f *Factory) Create(ctx context.Context, uri string, startAt time.Duration, volume float64) (playback.Resource, error) {
	if err := initSpeaker(f.config); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}

	streamer, format, err := f.decode(ctx, uri)
	if err != nil {
		return nil, err
	}

	r := &resource{
		streamer: streamer,
		format:   format,
		updates:  make(chan playback.Status, 8),
		done:     make(chan struct{}),
	}
	if err := r.seekLocked(startAt); err != nil {
		_ = streamer.Close()
		return nil, err
	}

	r.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, speakerRate, streamer), Paused: true}
	r.volume = &effects.Volume{Streamer: r.ctrl, Base: 2, Volume: levelToVolume(volume), Silent: volume <= 0}

	speaker.Play(beep.Seq(r.volume, beep.Callback(func() {
		// Runs under the speaker lock; markFinished takes r.mu.
		go r.markFinished()
	})))

	go r.report(f.config.StatusInterval)
	return r, nil
}

// resource plays one decoded stream through the shared speaker.
// Lock order: r.mu, then the speaker lock.
type resource struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	updates  chan playback.Status
	done     chan struct{}
	finished bool
	unloaded bool
}

func (r *resource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return errors.New("resource unloaded")
	}
	if r.finished {
		return playback.ErrInterrupted
	}
	speaker.Lock()
	r.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (r *resource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return errors.New("resource unloaded")
	}
	speaker.Lock()
	r.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop pauses and rewinds.
func (r *resource) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	r.ctrl.Paused = true
	return r.streamer.Seek(0)
}

// Unload detaches the stream from the speaker and closes it.
func (r *resource) Unload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return nil
	}
	r.unloaded = true

	// Dropping the streamer ends the sequence; markFinished ignores it because unloaded is set.
	speaker.Lock()
	r.ctrl.Paused = true
	r.ctrl.Streamer = nil
	speaker.Unlock()

	close(r.done)
	close(r.updates)
	return r.streamer.Close()
}

func (r *resource) Seek(position time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return errors.New("resource unloaded")
	}
	if r.finished {
		return playback.ErrInterrupted
	}
	speaker.Lock()
	defer speaker.Unlock()
	return r.seekLocked(position)
}

func (r *resource) seekLocked(position time.Duration) error {
	n := r.format.SampleRate.N(position)
	n = min(max(n, 0), max(r.streamer.Len()-1, 0))
	if err := r.streamer.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

func (r *resource) SetVolume(v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded {
		return nil
	}
	speaker.Lock()
	r.volume.Volume = levelToVolume(v)
	r.volume.Silent = v <= 0
	speaker.Unlock()
	return nil
}

func (r *resource) Status() (playback.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(), nil
}

func (r *resource) statusLocked() playback.Status {
	if r.unloaded {
		return playback.Status{}
	}
	speaker.Lock()
	pos := r.streamer.Position()
	length := r.streamer.Len()
	playing := !r.ctrl.Paused
	speaker.Unlock()

	return playback.Status{
		Position: r.format.SampleRate.D(pos),
		Duration: r.format.SampleRate.D(length),
		Playing:  playing && !r.finished,
		Loaded:   true,
		Finished: r.finished,
	}
}

func (r *resource) Updates() <-chan playback.Status {
	return r.updates
}

// report publishes the status periodically while playing.
func (r *resource) report(interval time.Duration) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.unloaded || r.finished {
				r.mu.Unlock()
				return
			}
			st := r.statusLocked()
			if st.Playing {
				r.publishLocked(st)
			}
			r.mu.Unlock()
		}
	}
}

// markFinished publishes the single Finished status.
func (r *resource) markFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unloaded || r.finished {
		return
	}
	r.finished = true
	st := r.statusLocked()
	st.Position = st.Duration
	// Make room: the finished status must not be dropped.
	select {
	case <-r.updates:
	default:
	}
	r.publishLocked(st)
}

func (r *resource) publishLocked(st playback.Status) {
	select {
	case r.updates <- st:
	default:
		// Channel full, drop stale update
	}
}
