package playback

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/domain/track"
)

// Selector computes the next/previous playlist index.
// It holds no playback state; the same inputs always give the same
// sequential answer, and shuffle answers depend only on the random source.
type Selector struct {
	// ExcludeAncillary keeps ancillary tracks out of shuffle picks.
	ExcludeAncillary bool

	intn func(n int) int
}

// NewSelector creates a selector backed by the global random source.
func NewSelector(excludeAncillary bool) *Selector {
	return &Selector{ExcludeAncillary: excludeAncillary, intn: rand.IntN}
}

// NewSeededSelector creates a selector with a deterministic random source.
func NewSeededSelector(excludeAncillary bool, seed uint64) *Selector {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Selector{ExcludeAncillary: excludeAncillary, intn: r.IntN}
}

// Next returns the index to play after current.
func (s *Selector) Next(tracks []track.Track, current int, shuffle bool) (int, error) {
	n := len(tracks)
	if n == 0 {
		return -1, ErrInvalidIndex
	}
	if shuffle {
		return s.shuffled(tracks, current), nil
	}
	if current < 0 || current >= n {
		// Stale index: resume from the start.
		current = n - 1
	}
	return (current + 1) % n, nil
}

// Previous returns the index to play before current.
func (s *Selector) Previous(tracks []track.Track, current int, shuffle bool) (int, error) {
	n := len(tracks)
	if n == 0 {
		return -1, ErrInvalidIndex
	}
	if shuffle {
		return s.shuffled(tracks, current), nil
	}
	if current <= 0 || current >= n {
		return n - 1, nil
	}
	return current - 1, nil
}

// IsLast reports whether index is the last item of the playlist.
// Ancillary tracks count: a playlist ending in one stops after it.
func IsLast(tracks []track.Track, index int) bool {
	return len(tracks) > 0 && index == len(tracks)-1
}

func (s *Selector) shuffled(tracks []track.Track, current int) int {
	all := lo.Range(len(tracks))
	candidates := all
	if s.ExcludeAncillary {
		candidates = lo.Filter(all, func(i int, _ int) bool {
			return !tracks[i].Ancillary
		})
		if len(candidates) == 0 {
			candidates = all
		}
	}

	pick := candidates[s.roll(len(candidates))]
	if pick == current && len(candidates) > 1 {
		others := lo.Without(candidates, current)
		pick = others[s.roll(len(others))]
	}
	return pick
}

func (s *Selector) roll(n int) int {
	if s.intn == nil {
		return rand.IntN(n)
	}
	return s.intn(n)
}
