// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// SourceKind tells whether a source can be played as-is or must be resolved first.
type SourceKind int

const (
	SourceDirect   SourceKind = iota // Directly playable URI or file path
	SourceIndirect                   // Identifier that needs a resolver round trip
)

// String returns the string representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceDirect:
		return "direct"
	case SourceIndirect:
		return "indirect"
	default:
		return "unknown"
	}
}

// Source describes where the audio of a track comes from.
type Source struct {
	Kind  SourceKind
	Value string // URI, path or indirect identifier (e.g. spotify:track:ID)
}

// Direct returns a source that needs no resolution.
func Direct(uri string) Source {
	return Source{Kind: SourceDirect, Value: strings.TrimSpace(uri)}
}

// Indirect returns a source that must go through a resolver.
func Indirect(id string) Source {
	return Source{Kind: SourceIndirect, Value: strings.TrimSpace(id)}
}

// IsIndirect reports whether the source needs resolution.
func (s Source) IsIndirect() bool {
	return s.Kind == SourceIndirect
}

// String returns the source value prefixed by its kind.
func (s Source) String() string {
	return s.Kind.String() + ":" + s.Value
}

// Track represents a playable item.
// Tracks are values; nothing in the player mutates them once built.
type Track struct {
	ID        string        // Stable ID, unique within a playlist
	Title     string        // Track title
	Artist    string        // Artist display name
	Duration  time.Duration // Duration hint (zero or wrong until the audio is loaded)
	CoverURL  string        // Cover art reference
	Source    Source        // Where to fetch the audio from
	Ancillary bool          // Long-form content kept out of shuffle picks
}

// Validate checks the fields required for playback.
func (t Track) Validate() error {
	if t.ID == "" {
		return errors.New("track id is required")
	}
	if t.Source.Value == "" {
		return errors.Newf("track %s has no source", t.ID)
	}
	return nil
}

// DisplayName returns "Artist - Title", or the title alone when the artist is unknown.
func (t Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
