package library

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain concatenates the tracks of several providers, in configuration order.
type Chain struct {
	providers []ProviderWithMetadata
	syncMu    sync.Mutex
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{
		providers: providers,
	}
}

// Load retrieves tracks from all providers. A failing provider is skipped;
// the chain only fails if every provider fails. The first occurrence of a
// track id wins.
func (c *Chain) Load(ctx context.Context) ([]track.Track, error) {
	var all []track.Track
	succeeded := 0

	for i, pm := range c.providers {
		zlog.Debug().Msgf("loading provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		tracks, err := pm.Provider.Load(ctx)
		if err != nil {
			zlog.Warn().Msgf("provider failed, skipping: provider=%s error=%v", pm.DisplayName, err)
			continue
		}
		succeeded++
		all = append(all, tracks...)

		zlog.Info().Msgf("provider returned tracks: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, len(tracks), len(all))
	}

	if succeeded == 0 && len(c.providers) > 0 {
		return nil, errors.New("all providers failed to load tracks")
	}

	unique := lo.UniqBy(all, func(t track.Track) string {
		return t.ID
	})
	if dropped := len(all) - len(unique); dropped > 0 {
		zlog.Debug().Msgf("dropped duplicate tracks: count=%d", dropped)
	}
	return unique, nil
}

// Sync reloads all providers and replaces the queue contents. On failure
// the queue is left untouched.
func (c *Chain) Sync(ctx context.Context, q *playlist.Queue) error {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	tracks, err := c.Load(ctx)
	if err != nil {
		return err
	}
	q.Replace(tracks)
	zlog.Info().Msgf("playlist synced: tracks=%d version=%d", len(tracks), q.Version())
	return nil
}

// Watch re-syncs q whenever a watching provider reports a change, calling
// onSynced (if non-nil) after each successful sync. It blocks until ctx is
// done.
func (c *Chain) Watch(ctx context.Context, q *playlist.Queue, onSynced func(tracks []track.Track)) {
	var wg sync.WaitGroup
	for _, pm := range c.providers {
		w, ok := pm.Provider.(Watcher)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, w Watcher) {
			defer wg.Done()
			err := w.Watch(ctx, func() {
				if err := c.Sync(ctx, q); err != nil {
					zlog.Error().Msgf("playlist resync failed: provider=%s error=%v", name, err)
					return
				}
				if onSynced != nil {
					onSynced(q.Tracks())
				}
			})
			if err != nil {
				zlog.Error().Msgf("provider watch stopped: provider=%s error=%v", name, err)
			}
		}(pm.DisplayName, w)
	}
	wg.Wait()
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}
