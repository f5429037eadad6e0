// Package audio implements playback resources on top of beep.
//
// Decoding is pure Go and always available. Output needs the native speaker
// backend, which is only compiled into cgo builds; other builds get a
// factory whose Create fails with ErrUnavailable.
package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// ErrUnavailable is returned by Create when the build has no audio output.
var ErrUnavailable = errors.New("audio output is not available in this build")

// maxRemoteSize bounds the size of a remote body held in memory.
const maxRemoteSize = 256 << 20

// Config holds audio output configuration.
type Config struct {
	SampleRate     int           // Speaker sample rate
	Buffer         time.Duration // Speaker buffer length
	StatusInterval time.Duration // Interval between status updates while playing
	HTTPTimeout    time.Duration // Timeout for fetching remote audio
}

// DefaultConfig returns the audio defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:     44100,
		Buffer:         100 * time.Millisecond,
		StatusInterval: 250 * time.Millisecond,
		HTTPTimeout:    30 * time.Second,
	}
}

// Factory creates audio resources from playable URIs.
type Factory struct {
	config     Config
	httpClient *http.Client
}

// NewFactory creates a new factory.
func NewFactory(config Config) *Factory {
	return &Factory{
		config:     config,
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
	}
}

// format identifies a container/codec.
type format int

const (
	formatMP3 format = iota
	formatFLAC
	formatWAV
)

func (f format) String() string {
	switch f {
	case formatMP3:
		return "mp3"
	case formatFLAC:
		return "flac"
	case formatWAV:
		return "wav"
	default:
		return "unknown"
	}
}

// openSource opens a local file or fetches a remote body into memory.
// The content type is empty for local files.
func (f *Factory) openSource(ctx context.Context, uri string) (io.ReadCloser, string, string, error) {
	if filepath.IsAbs(uri) {
		file, err := os.Open(uri)
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to open audio file")
		}
		return file, uri, "", nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", "", errors.Wrapf(err, "invalid audio uri %q", uri)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		file, err := os.Open(u.Path)
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to open audio file")
		}
		return file, u.Path, "", nil

	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to build request")
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to fetch audio")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, "", "", errors.Newf("failed to fetch audio: status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
		if err != nil {
			return nil, "", "", errors.Wrap(err, "failed to read audio body")
		}
		zlog.Debug().Msgf("audio: fetched remote audio: host=%s bytes=%d", u.Host, len(data))
		return nopCloser{bytes.NewReader(data)}, u.Path, resp.Header.Get("Content-Type"), nil

	default:
		return nil, "", "", errors.Newf("unsupported audio uri scheme: %s", u.Scheme)
	}
}

// detectFormat guesses the format from the path extension, then the
// content type. Unknown sources are assumed to be mp3 (streaming previews
// usually are).
func detectFormat(name, contentType string) format {
	switch strings.ToLower(path.Ext(name)) {
	case ".flac":
		return formatFLAC
	case ".wav", ".wave":
		return formatWAV
	case ".mp3":
		return formatMP3
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "flac"):
		return formatFLAC
	case strings.Contains(ct, "wav"):
		return formatWAV
	default:
		return formatMP3
	}
}

// decode opens uri and returns a seekable stream. The caller owns the stream.
func (f *Factory) decode(ctx context.Context, uri string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, name, contentType, err := f.openSource(ctx, uri)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		streamer beep.StreamSeekCloser
		fmtInfo  beep.Format
	)
	kind := detectFormat(name, contentType)
	switch kind {
	case formatFLAC:
		streamer, fmtInfo, err = flac.Decode(rc)
	case formatWAV:
		streamer, fmtInfo, err = wav.Decode(rc)
	default:
		streamer, fmtInfo, err = mp3.Decode(rc)
	}
	if err != nil {
		_ = rc.Close()
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", kind)
	}
	return &closingStreamer{StreamSeekCloser: streamer, source: rc}, fmtInfo, nil
}

// closingStreamer also closes the underlying source; not every decoder does.
type closingStreamer struct {
	beep.StreamSeekCloser
	source io.Closer
}

func (s *closingStreamer) Close() error {
	err := s.StreamSeekCloser.Close()
	if cerr := s.source.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}

// levelToVolume converts a 0.0-1.0 level to beep's base-2 volume.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
