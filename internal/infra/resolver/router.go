// Package resolver dispatches indirect source descriptors to the resolver
// registered for their prefix.
package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/track"
)

// ErrNoRoute is returned when no resolver is registered for a descriptor.
var ErrNoRoute = errors.New("no resolver for source")

type route struct {
	prefix   string
	resolver playback.Resolver
}

// Router implements playback.Resolver by prefix matching. The longest
// registered prefix wins.
type Router struct {
	mu     sync.RWMutex
	routes []route
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Handle registers r for descriptors starting with prefix, replacing any
// previous registration of the same prefix.
func (rt *Router) Handle(prefix string, r playback.Resolver) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for i := range rt.routes {
		if rt.routes[i].prefix == prefix {
			rt.routes[i].resolver = r
			return
		}
	}
	rt.routes = append(rt.routes, route{prefix: prefix, resolver: r})
	sort.SliceStable(rt.routes, func(i, j int) bool {
		return len(rt.routes[i].prefix) > len(rt.routes[j].prefix)
	})
	zlog.Debug().Msgf("resolver: registered route: prefix=%s", prefix)
}

// HandleFunc registers a function for prefix.
func (rt *Router) HandleFunc(prefix string, fn func(ctx context.Context, src track.Source) (string, error)) {
	rt.Handle(prefix, playback.ResolverFunc(fn))
}

// Resolve implements playback.Resolver.
func (rt *Router) Resolve(ctx context.Context, src track.Source) (string, error) {
	rt.mu.RLock()
	var target playback.Resolver
	for _, r := range rt.routes {
		if strings.HasPrefix(src.Value, r.prefix) {
			target = r.resolver
			break
		}
	}
	rt.mu.RUnlock()

	if target == nil {
		return "", errors.Wrapf(ErrNoRoute, "%s", src.Value)
	}
	return target.Resolve(ctx, src)
}

// Prefixes returns the registered prefixes, longest first.
func (rt *Router) Prefixes() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]string, 0, len(rt.routes))
	for _, r := range rt.routes {
		out = append(out, r.prefix)
	}
	return out
}
