package playlist

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/domain/track"
)

func ids(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestPlaylist_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name:     "multiple tracks",
			tracks:   []track.Track{{ID: "track-1"}, {ID: "track-2"}, {ID: "track-3"}},
			expected: []string{"track-1", "track-2", "track-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Tracks: tt.tracks}
			assert.Equal(t, tt.expected, p.TrackIDs())
		})
	}
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := &Playlist{Tracks: []track.Track{
		{ID: "a", Duration: 3 * time.Minute},
		{ID: "b", Duration: 90 * time.Second},
		{ID: "c"},
	}}
	assert.Equal(t, 4*time.Minute+30*time.Second, p.TotalDuration())
}

func TestIndexOf(t *testing.T) {
	tracks := []track.Track{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 0, IndexOf(tracks, "a"))
	assert.Equal(t, 1, IndexOf(tracks, "b"))
	assert.Equal(t, -1, IndexOf(tracks, "c"))
	assert.Equal(t, -1, IndexOf(nil, "a"))
}

func TestQueue_TracksReturnsCopy(t *testing.T) {
	q := NewQueue(track.Track{ID: "a"})
	tracks := q.Tracks()
	tracks[0].ID = "mutated"

	assert.Equal(t, []string{"a"}, ids(q.Tracks()))
}

func TestQueue_Mutations(t *testing.T) {
	q := NewQueue(track.Track{ID: "a"}, track.Track{ID: "b"})
	v0 := q.Version()

	q.Append(track.Track{ID: "c"})
	assert.Equal(t, []string{"a", "b", "c"}, ids(q.Tracks()))

	require.True(t, q.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, ids(q.Tracks()))
	assert.False(t, q.Remove("missing"))

	q.Replace([]track.Track{{ID: "x"}, {ID: "y"}, {ID: "z"}})
	assert.Equal(t, 3, q.Len())

	require.True(t, q.Move(0, 2))
	assert.Equal(t, []string{"y", "z", "x"}, ids(q.Tracks()))
	require.True(t, q.Move(2, 0))
	assert.Equal(t, []string{"x", "y", "z"}, ids(q.Tracks()))
	assert.False(t, q.Move(0, 5))

	assert.Greater(t, q.Version(), v0)
}

func TestQueue_ConcurrentAccess(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			q.Append(track.Track{ID: "t"})
		}()
		go func() {
			defer wg.Done()
			_ = q.Tracks()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}
