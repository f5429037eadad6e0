package library

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

type SpotifyProviderConfig struct {
	PlaylistURL string `yaml:"playlist_url" mapstructure:"playlist_url" validate:"required"`
	Ancillary   bool   `yaml:"ancillary" mapstructure:"ancillary"`
}

// SpotifyProvider provides the tracks of a Spotify playlist.
// Tracks carry indirect sources; playable URIs are resolved at load time.
type SpotifyProvider struct {
	spotify SpotifyClient
	config  *SpotifyProviderConfig
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(spotify SpotifyClient, settings map[string]any) (*SpotifyProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is not configured")
	}

	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("spotify provider validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpotifyProvider{spotify: spotify, config: &config}, nil
}

// Load retrieves all tracks of the configured playlist.
func (p *SpotifyProvider) Load(ctx context.Context) ([]track.Track, error) {
	tracks, err := p.spotify.GetPlaylistTracks(ctx, p.config.PlaylistURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist tracks")
	}

	result := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		t.Ancillary = t.Ancillary || p.config.Ancillary
		if err := t.Validate(); err != nil {
			zlog.Debug().Msgf("skipping spotify track: id=%s error=%v", t.ID, err)
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify_playlist"
}
