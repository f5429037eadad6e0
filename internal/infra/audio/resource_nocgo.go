//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"
	"time"

	"github.com/osa030/19deck/internal/app/playback"
)

// Available indicates whether audio playback is supported in this build.
// Audio output requires CGO for native sound libraries.
const Available = false

// Create always fails when cgo is disabled.
func (f *Factory) Create(ctx context.Context, uri string, startAt time.Duration, volume float64) (playback.Resource, error) {
	return nil, ErrUnavailable
}
