package playback

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// armIdleLocked (re)starts the idle unload timer. Each arm gets a new
// generation; a timer that fires after being superseded does nothing.
func (e *Engine) armIdleLocked() {
	e.disarmIdleLocked()
	if e.config.IdleUnload <= 0 || e.closed {
		return
	}

	gen := e.idleGen
	e.idleTimer = time.AfterFunc(e.config.IdleUnload, func() {
		e.onIdle(gen)
	})
}

func (e *Engine) disarmIdleLocked() {
	e.idleGen++
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
}

// onIdle releases a resource that stayed paused for the whole grace period.
// The position is kept so the next toggle resumes from it.
func (e *Engine) onIdle(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.idleGen || e.closed || e.resource == nil || e.state.IsPlaying || e.state.IsLoading {
		return
	}
	e.idleTimer = nil

	if st, err := e.resource.res.Status(); err == nil && !st.Playing {
		e.saved = st.Position
	}
	e.state.Position = e.saved

	trackID := e.resource.trackID
	e.releaseResourceLocked()
	zlog.Info().Msgf("playback: idle unload: track=%s position=%v", trackID, e.saved)
	e.emitLocked(EventIdleUnloaded, e.state.CurrentTrack, nil)
}
