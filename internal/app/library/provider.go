// Package library provides the playlist sources the deck plays from.
package library

import (
	"context"

	"github.com/osa030/19deck/internal/domain/track"
)

// Provider is the interface for playlist sources.
// Different implementations load tracks from different places
// (e.g., a local YAML file, a Spotify playlist).
type Provider interface {
	// Load returns the provider's tracks in play order.
	Load(ctx context.Context) ([]track.Track, error)

	// Name returns the provider type (used in config).
	Name() string
}

// Watcher is implemented by providers that can report changes to their
// source. Watch blocks until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// SpotifyClient defines the Spotify operations needed by the providers.
type SpotifyClient interface {
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
}
