// Package playback provides the playback engine: it owns the audio resource,
// sequences track loads and exposes the transport API.
package playback

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19deck/internal/domain/track"
)

// RepeatMode represents the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop after the last track
	RepeatAll                   // Wrap around to the first track
	RepeatOne                   // Replay the current track
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows m in the off -> all -> one cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}

// State is a snapshot of the player state.
// Snapshots are copies; mutating one has no effect on the engine.
type State struct {
	CurrentTrack *track.Track
	IsPlaying    bool
	Position     time.Duration
	Duration     time.Duration
	Volume       float64
	Shuffle      bool
	Repeat       RepeatMode
	CurrentIndex int // Index of CurrentTrack in the playlist snapshot, -1 if none
	IsLoading    bool
}

// clone returns a deep copy of the state.
func (s State) clone() State {
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	return s
}

// currentID returns the id of the current track, or "" if none.
func (s State) currentID() string {
	if s.CurrentTrack == nil {
		return ""
	}
	return s.CurrentTrack.ID
}
