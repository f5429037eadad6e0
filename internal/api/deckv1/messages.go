// Package deckv1 defines the wire messages of the deck.v1 RPC services.
// Messages are exchanged as JSON over Connect.
package deckv1

// NotificationType identifies the kind of a Notification.
type NotificationType string

const (
	NotificationTypeInitialState    NotificationType = "initial_state"
	NotificationTypeTrackStarted    NotificationType = "track_started"
	NotificationTypeStateChanged    NotificationType = "state_changed"
	NotificationTypeTrackEnded      NotificationType = "track_ended"
	NotificationTypePlaybackStopped NotificationType = "playback_stopped"
	NotificationTypeLoadFailed      NotificationType = "load_failed"
	NotificationTypeModeChanged     NotificationType = "mode_changed"
	NotificationTypeIdleUnloaded    NotificationType = "idle_unloaded"
	NotificationTypeNotice          NotificationType = "notice"
	NotificationTypePlaylistUpdated NotificationType = "playlist_updated"
)

// Track is the wire form of a track.
type Track struct {
	Id         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	CoverUrl   string `json:"cover_url,omitempty"`
	SourceKind string `json:"source_kind,omitempty"` // "direct" or "indirect"
	Source     string `json:"source,omitempty"`
	Ancillary  bool   `json:"ancillary,omitempty"`
}

// PlayerState is the wire form of a player snapshot.
type PlayerState struct {
	CurrentTrack *Track  `json:"current_track,omitempty"`
	IsPlaying    bool    `json:"is_playing"`
	PositionMs   int64   `json:"position_ms"`
	DurationMs   int64   `json:"duration_ms"`
	Volume       float64 `json:"volume"`
	Shuffle      bool    `json:"shuffle"`
	Repeat       string  `json:"repeat"`
	CurrentIndex int32   `json:"current_index"`
	IsLoading    bool    `json:"is_loading"`
}

// Notification is pushed to SubscribeNotifications streams.
type Notification struct {
	SequenceNo uint64           `json:"sequence_no"`
	Type       NotificationType `json:"type"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	Track      *Track           `json:"track,omitempty"`
	State      *PlayerState     `json:"state,omitempty"`
	Error      string           `json:"error,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

// Empty is used by procedures that take or return nothing.
type Empty struct{}

// GetStateRequest is the request of PlayerService.GetState.
type GetStateRequest struct{}

// GetStateResponse is the response of PlayerService.GetState.
type GetStateResponse struct {
	State *PlayerState `json:"state"`
}

// PlayTrackRequest selects a track either by playlist id or by an ad-hoc
// descriptor. TrackId wins when both are set.
type PlayTrackRequest struct {
	TrackId string `json:"track_id,omitempty"`
	Track   *Track `json:"track,omitempty"`
}

// SeekToRequest is the request of ControlService.SeekTo.
type SeekToRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// SetVolumeRequest is the request of ControlService.SetVolume.
type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// CommandResponse is returned by all transport commands.
type CommandResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	State   *PlayerState `json:"state,omitempty"`
}

// ToggleShuffleResponse is the response of ControlService.ToggleShuffle.
type ToggleShuffleResponse struct {
	Shuffle bool   `json:"shuffle"`
	Message string `json:"message,omitempty"`
}

// ToggleRepeatResponse is the response of ControlService.ToggleRepeat.
type ToggleRepeatResponse struct {
	Repeat  string `json:"repeat"`
	Message string `json:"message,omitempty"`
}

// ListQueueRequest is the request of PlayerService.ListQueue.
type ListQueueRequest struct{}

// ListQueueResponse is the response of PlayerService.ListQueue.
type ListQueueResponse struct {
	Tracks        []*Track `json:"tracks"`
	CurrentIndex  int32    `json:"current_index"`
	TotalDuration int64    `json:"total_duration_ms"`
}

// SubscribeNotificationsRequest is the request of
// PlayerService.SubscribeNotifications.
type SubscribeNotificationsRequest struct{}
