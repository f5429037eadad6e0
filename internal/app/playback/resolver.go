package playback

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19deck/internal/domain/track"
)

// Resolver turns an indirect source descriptor into a playable URI.
// Resolution may be slow; the engine bounds it with its own timeout and
// ignores results that arrive after the load was superseded.
type Resolver interface {
	Resolve(ctx context.Context, src track.Source) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, src track.Source) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, src track.Source) (string, error) {
	return f(ctx, src)
}

// resolveSource returns the playable URI of t, calling the resolver with a
// timeout when the source is indirect.
func resolveSource(ctx context.Context, r Resolver, t track.Track, timeout time.Duration) (string, error) {
	uri := t.Source.Value
	if t.Source.IsIndirect() {
		if r == nil {
			return "", &ResolutionError{TrackID: t.ID, Err: errors.New("no resolver configured")}
		}

		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resolved, err := r.Resolve(rctx, t.Source)
		if err == nil && rctx.Err() != nil {
			err = rctx.Err()
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = errors.Wrapf(err, "resolution timed out after %v", timeout)
			}
			return "", &ResolutionError{TrackID: t.ID, Err: err}
		}
		uri = resolved
	}

	if err := validateURI(uri); err != nil {
		return "", &ResolutionError{TrackID: t.ID, Err: err}
	}
	return uri, nil
}

// validateURI accepts absolute file paths and file/http/https URLs.
func validateURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return errors.Wrap(ErrInvalidURI, "empty uri")
	}
	if filepath.IsAbs(uri) {
		return nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return errors.Wrapf(ErrInvalidURI, "parse %q: %v", uri, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Path == "" {
			return errors.Wrapf(ErrInvalidURI, "file uri without path: %q", uri)
		}
	case "http", "https":
		if u.Host == "" {
			return errors.Wrapf(ErrInvalidURI, "url without host: %q", uri)
		}
	default:
		return errors.Wrapf(ErrInvalidURI, "unsupported scheme in %q", uri)
	}
	return nil
}
