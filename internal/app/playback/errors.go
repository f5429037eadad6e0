package playback

import (
	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrInvalidIndex = errors.New("no valid playlist index")
	ErrInterrupted  = errors.New("audio transport interrupted")
	ErrInvalidURI   = errors.New("invalid playable uri")

	// errStale marks a load or seek result that was superseded. It never leaves the engine.
	errStale = errors.New("stale operation")
)

// ResolutionError reports that a source descriptor could not be turned into a playable URI.
type ResolutionError struct {
	TrackID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return "resolve " + e.TrackID + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ResourceError reports a failure of the audio resource.
type ResourceError struct {
	TrackID   string
	Operation string // e.g. "create", "play", "seek"
	Err       error
}

func (e *ResourceError) Error() string {
	return e.Operation + " " + e.TrackID + ": " + e.Err.Error()
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// IsResourceError reports whether err is (or wraps) a ResourceError.
func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}
