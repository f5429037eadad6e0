package playback

import "github.com/osa030/19deck/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted    EventType = iota // A load was committed and the track is playing
	EventStateChanged                     // Pause, resume, seek or volume change
	EventTrackEnded                       // Track finished naturally
	EventPlaybackStopped                  // Transport stopped at the end of the playlist
	EventLoadFailed                       // Resolution or resource failure for the current attempt
	EventModeChanged                      // Shuffle or repeat toggled
	EventIdleUnloaded                     // Resource released after the idle grace period
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventStateChanged:
		return "state_changed"
	case EventTrackEnded:
		return "track_ended"
	case EventPlaybackStopped:
		return "playback_stopped"
	case EventLoadFailed:
		return "load_failed"
	case EventModeChanged:
		return "mode_changed"
	case EventIdleUnloaded:
		return "idle_unloaded"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Track *track.Track // Track the event refers to (nil for some events)
	State State        // Snapshot taken when the event was emitted
	Err   error        // Set for EventLoadFailed
}

// Notice is a short user-facing message emitted on shuffle/repeat toggles.
type Notice struct {
	Code    string // e.g. "shuffle_on", "repeat_all"
	Message string
	Shuffle bool
	Repeat  RepeatMode
}

// Notifier receives notices. Calls are fire-and-forget: the engine never
// waits for them and ignores failures.
type Notifier interface {
	Notify(n Notice)
}
