package deckv1

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/track"
)

func TestTrack_ToDomain(t *testing.T) {
	tests := []struct {
		name    string
		in      *Track
		want    track.Track
		wantErr bool
	}{
		{
			name: "direct source",
			in:   &Track{Id: "a", Title: "A", DurationMs: 1500, Source: "/music/a.mp3"},
			want: track.Track{ID: "a", Title: "A", Duration: 1500 * time.Millisecond, Source: track.Direct("/music/a.mp3")},
		},
		{
			name: "indirect source",
			in:   &Track{Id: "b", SourceKind: "indirect", Source: "spotify:track:b"},
			want: track.Track{ID: "b", Source: track.Indirect("spotify:track:b")},
		},
		{
			name: "id falls back to source",
			in:   &Track{Source: "https://example.com/c.mp3"},
			want: track.Track{ID: "https://example.com/c.mp3", Source: track.Direct("https://example.com/c.mp3")},
		},
		{
			name:    "missing source",
			in:      &Track{Id: "d"},
			wantErr: true,
		},
		{
			name:    "unknown source kind",
			in:      &Track{Id: "e", SourceKind: "magnet", Source: "x"},
			wantErr: true,
		},
		{
			name:    "nil track",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.ToDomain()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromTrack_RoundTrip(t *testing.T) {
	in := track.Track{
		ID:        "p1",
		Title:     "Episode 1",
		Artist:    "Host",
		Duration:  42 * time.Minute,
		CoverURL:  "https://example.com/cover.jpg",
		Source:    track.Indirect("spotify:track:p1"),
		Ancillary: true,
	}

	got, err := FromTrack(&in).ToDomain()
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Nil(t, FromTrack(nil))
}

func TestFromState(t *testing.T) {
	trk := track.Track{ID: "a", Source: track.Direct("/music/a.mp3")}
	s := playback.State{
		CurrentTrack: &trk,
		IsPlaying:    true,
		Position:     1234 * time.Millisecond,
		Duration:     200 * time.Second,
		Volume:       0.5,
		Repeat:       playback.RepeatOne,
		CurrentIndex: 2,
	}

	got := FromState(s)
	assert.Equal(t, "a", got.CurrentTrack.Id)
	assert.True(t, got.IsPlaying)
	assert.Equal(t, int64(1234), got.PositionMs)
	assert.Equal(t, int64(200000), got.DurationMs)
	assert.Equal(t, "one", got.Repeat)
	assert.Equal(t, int32(2), got.CurrentIndex)
}

func TestFromEvent(t *testing.T) {
	trk := track.Track{ID: "a", Source: track.Direct("/music/a.mp3")}
	n := FromEvent(playback.Event{
		Type:  playback.EventLoadFailed,
		Track: &trk,
		State: playback.State{CurrentIndex: -1},
		Err:   errors.New("decode failed"),
	})

	assert.Equal(t, NotificationTypeLoadFailed, n.Type)
	assert.Equal(t, "a", n.Track.Id)
	assert.Equal(t, "decode failed", n.Error)
	assert.Equal(t, int32(-1), n.State.CurrentIndex)
	assert.NotEmpty(t, n.Timestamp)
}
