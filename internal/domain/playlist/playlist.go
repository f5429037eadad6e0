// Package playlist provides the Playlist domain entity and the mutable queue the player reads from.
package playlist

import (
	"sync"
	"time"

	"github.com/osa030/19deck/internal/domain/track"
)

// Supplier exposes the current ordered playlist.
// Implementations must return a snapshot the caller may keep; the player
// calls Tracks on every transition decision instead of caching it.
type Supplier interface {
	Tracks() []track.Track
}

// Playlist represents a named, ordered list of tracks loaded from a provider.
type Playlist struct {
	ID     string        // Provider-specific playlist ID
	Name   string        // Playlist name
	URL    string        // Source URL (if any)
	Tracks []track.Track // Tracks in the playlist
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the sum of the duration hints.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// IndexOf returns the position of the track with the given id, or -1.
func IndexOf(tracks []track.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Queue is a goroutine-safe mutable Supplier.
type Queue struct {
	mu      sync.RWMutex
	tracks  []track.Track
	version uint64
}

// NewQueue creates a queue holding the given tracks.
func NewQueue(tracks ...track.Track) *Queue {
	q := &Queue{}
	q.tracks = append(q.tracks, tracks...)
	return q
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Version returns a counter bumped on every change.
func (q *Queue) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// Replace swaps the whole content of the queue.
func (q *Queue) Replace(tracks []track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]track.Track, len(tracks))
	copy(q.tracks, tracks)
	q.version++
}

// Append adds tracks at the end of the queue.
func (q *Queue) Append(tracks ...track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append(q.tracks, tracks...)
	q.version++
}

// Remove deletes the track with the given id.
// Returns false if no such track is queued.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := IndexOf(q.tracks, id)
	if i < 0 {
		return false
	}
	q.tracks = append(q.tracks[:i:i], q.tracks[i+1:]...)
	q.version++
	return true
}

// Move relocates the track at index from to index to.
func (q *Queue) Move(from, to int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}

	t := q.tracks[from]
	rest := append(q.tracks[:from:from], q.tracks[from+1:]...)
	q.tracks = append(rest[:to:to], append([]track.Track{t}, rest[to:]...)...)
	q.version++
	return true
}
