package library

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/config"
)

type stubProvider struct {
	tracks []track.Track
	err    error
}

func (p *stubProvider) Load(ctx context.Context) ([]track.Track, error) {
	return p.tracks, p.err
}

func (p *stubProvider) Name() string { return "stub" }

// watchingProvider reports one change as soon as it is watched.
type watchingProvider struct {
	stubProvider
}

func (p *watchingProvider) Watch(ctx context.Context, onChange func()) error {
	onChange()
	<-ctx.Done()
	return nil
}

func tr(id string) track.Track {
	return track.Track{ID: id, Title: id, Source: track.Direct("/music/" + id + ".mp3")}
}

func ids(tracks []track.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func TestChain_Load(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
		wantIDs   []string
		wantErr   bool
	}{
		{
			name: "concatenates in order and dedups",
			providers: []Provider{
				&stubProvider{tracks: []track.Track{tr("a"), tr("b")}},
				&stubProvider{tracks: []track.Track{tr("b"), tr("c")}},
			},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name: "failing provider is skipped",
			providers: []Provider{
				&stubProvider{err: errors.New("boom")},
				&stubProvider{tracks: []track.Track{tr("a")}},
			},
			wantIDs: []string{"a"},
		},
		{
			name: "empty provider is fine",
			providers: []Provider{
				&stubProvider{},
			},
			wantIDs: []string{},
		},
		{
			name: "all providers fail",
			providers: []Provider{
				&stubProvider{err: errors.New("boom")},
				&stubProvider{err: errors.New("bang")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pms []ProviderWithMetadata
			for _, p := range tt.providers {
				pms = append(pms, ProviderWithMetadata{Provider: p, DisplayName: "stub"})
			}

			tracks, err := NewChain(pms).Load(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantIDs, ids(tracks))
		})
	}
}

func TestChain_Sync(t *testing.T) {
	q := playlist.NewQueue(tr("old"))

	ok := NewChain([]ProviderWithMetadata{{Provider: &stubProvider{tracks: []track.Track{tr("a"), tr("b")}}, DisplayName: "ok"}})
	require.NoError(t, ok.Sync(context.Background(), q))
	assert.Equal(t, []string{"a", "b"}, ids(q.Tracks()))

	failing := NewChain([]ProviderWithMetadata{{Provider: &stubProvider{err: errors.New("boom")}, DisplayName: "bad"}})
	assert.Error(t, failing.Sync(context.Background(), q))
	assert.Equal(t, 2, q.Len(), "failed sync leaves the queue alone")
}

func TestChain_Watch(t *testing.T) {
	q := playlist.NewQueue()
	p := &watchingProvider{stubProvider{tracks: []track.Track{tr("a")}}}
	c := NewChain([]ProviderWithMetadata{
		{Provider: p, DisplayName: "watching"},
		{Provider: &stubProvider{tracks: []track.Track{tr("b")}}, DisplayName: "static"},
	})

	synced := make(chan []track.Track, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, q, func(tracks []track.Track) { synced <- tracks })
		close(done)
	}()

	select {
	case tracks := <-synced:
		assert.Equal(t, []string{"a", "b"}, ids(tracks))
	case <-time.After(2 * time.Second):
		t.Fatal("no sync reported")
	}
	assert.Equal(t, 2, q.Len())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

type stubSpotify struct {
	tracks []track.Track
	url    string
}

func (s *stubSpotify) GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error) {
	s.url = playlistURL
	return s.tracks, nil
}

func TestSpotifyProvider_Load(t *testing.T) {
	sp := &stubSpotify{tracks: []track.Track{
		{ID: "x", Title: "X", Source: track.Indirect("spotify:track:x")},
		{ID: "", Title: "broken"},
	}}

	p, err := NewSpotifyProvider(sp, map[string]any{"playlist_url": "https://open.spotify.com/playlist/abc", "ancillary": true})
	require.NoError(t, err)

	tracks, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].Ancillary)
	assert.Equal(t, "https://open.spotify.com/playlist/abc", sp.url)

	_, err = NewSpotifyProvider(sp, map[string]any{})
	assert.Error(t, err, "playlist_url is required")
}

func TestNewChainFromConfig(t *testing.T) {
	t.Run("builds providers", func(t *testing.T) {
		cfg := &config.Config{Library: config.LibraryConfig{Providers: []config.ProviderConfig{
			{Type: config.ProviderTypeFile, DisplayName: "Local", Settings: map[string]any{"path": "/music/p.yaml"}},
			{Type: config.ProviderTypeSpotifyPlaylist, DisplayName: "Spotify", Settings: map[string]any{"playlist_url": "spotify:playlist:abc"}},
		}}}

		c, err := NewChainFromConfig(cfg, &stubSpotify{})
		require.NoError(t, err)
		require.Len(t, c.providers, 2)
		assert.Equal(t, "file", c.providers[0].Provider.Name())
		assert.Equal(t, "spotify_playlist", c.providers[1].Provider.Name())
	})

	t.Run("spotify provider without client", func(t *testing.T) {
		cfg := &config.Config{Library: config.LibraryConfig{Providers: []config.ProviderConfig{
			{Type: config.ProviderTypeSpotifyPlaylist, DisplayName: "Spotify", Settings: map[string]any{"playlist_url": "spotify:playlist:abc"}},
		}}}

		_, err := NewChainFromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := &config.Config{Library: config.LibraryConfig{Providers: []config.ProviderConfig{
			{Type: "lastfm", DisplayName: "Last.fm", Settings: map[string]any{}},
		}}}

		_, err := NewChainFromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := NewChainFromConfig(&config.Config{}, nil)
		assert.Error(t, err)
	})
}
