package deckv1

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/track"
)

// FromTrack converts a domain track to its wire form.
func FromTrack(t *track.Track) *Track {
	if t == nil {
		return nil
	}
	kind := "direct"
	if t.Source.Kind == track.SourceIndirect {
		kind = "indirect"
	}
	return &Track{
		Id:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		DurationMs: t.Duration.Milliseconds(),
		CoverUrl:   t.CoverURL,
		SourceKind: kind,
		Source:     t.Source.Value,
		Ancillary:  t.Ancillary,
	}
}

// FromTracks converts a slice of domain tracks.
func FromTracks(tracks []track.Track) []*Track {
	out := make([]*Track, len(tracks))
	for i := range tracks {
		out[i] = FromTrack(&tracks[i])
	}
	return out
}

// ToDomain converts a wire track to a validated domain track.
func (t *Track) ToDomain() (track.Track, error) {
	if t == nil {
		return track.Track{}, errors.New("track is required")
	}
	src := track.Direct(t.Source)
	switch t.SourceKind {
	case "", "direct":
	case "indirect":
		src = track.Indirect(t.Source)
	default:
		return track.Track{}, errors.Newf("unknown source kind: %q", t.SourceKind)
	}

	id := t.Id
	if id == "" {
		id = t.Source
	}
	out := track.Track{
		ID:        id,
		Title:     t.Title,
		Artist:    t.Artist,
		Duration:  time.Duration(t.DurationMs) * time.Millisecond,
		CoverURL:  t.CoverUrl,
		Source:    src,
		Ancillary: t.Ancillary,
	}
	if err := out.Validate(); err != nil {
		return track.Track{}, err
	}
	return out, nil
}

// FromState converts a player snapshot to its wire form.
func FromState(s playback.State) *PlayerState {
	return &PlayerState{
		CurrentTrack: FromTrack(s.CurrentTrack),
		IsPlaying:    s.IsPlaying,
		PositionMs:   s.Position.Milliseconds(),
		DurationMs:   s.Duration.Milliseconds(),
		Volume:       s.Volume,
		Shuffle:      s.Shuffle,
		Repeat:       s.Repeat.String(),
		CurrentIndex: int32(s.CurrentIndex),
		IsLoading:    s.IsLoading,
	}
}

// FromEvent converts an engine event to a notification.
// SequenceNo is assigned when the notification is broadcast.
func FromEvent(ev playback.Event) *Notification {
	n := &Notification{
		Type:      NotificationType(ev.Type.String()),
		Track:     FromTrack(ev.Track),
		State:     FromState(ev.State),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if ev.Err != nil {
		n.Error = ev.Err.Error()
	}
	return n
}

// FromNotice converts a shuffle/repeat notice to a notification.
func FromNotice(notice playback.Notice) *Notification {
	return &Notification{
		Type:      NotificationTypeNotice,
		Code:      notice.Code,
		Message:   notice.Message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
