package connect

import (
	"time"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/track"
)

// Player is the part of the playback engine the RPC services drive.
type Player interface {
	Snapshot() playback.State
	Playlist() []track.Track
	PlayTrack(t track.Track)
	TogglePlayPause()
	SeekTo(position time.Duration)
	Next()
	Previous()
	SetVolume(v float64)
	ToggleShuffle() bool
	ToggleRepeat() playback.RepeatMode
}

var _ Player = (*playback.Engine)(nil)

func currentID(t *track.Track) string {
	if t == nil {
		return ""
	}
	return t.ID
}
