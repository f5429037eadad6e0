package spotify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/domain/track"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Plain playlist ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "HTTP URL (not HTTPS)",
			input:    "http://open.spotify.com/playlist/testID",
			expected: "testID",
		},
		{
			name:     "URL with multiple query params",
			input:    "https://open.spotify.com/playlist/abc123?si=xyz&utm_source=copy",
			expected: "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPlaylistID(tt.input)
			assert.Equal(t, tt.expected, result,
				"extractPlaylistID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      errors.New("Error 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 502",
			err:      errors.New("502 Bad Gateway"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "server error 504",
			err:      errors.New("504 Gateway Timeout"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "not found error",
			err:      errors.New("404 not found"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL with intl segment and query",
			input:    "https://open.spotify.com/intl-ja/track/4uLU6hMCjMI75M1A2tKUQC?si=abc",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Plain track ID",
			input:    " 4uLU6hMCjMI75M1A2tKUQC ",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTrackID(tt.input))
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c := newWithHTTPClient(srv.Client(), srv.URL+"/", "JP")
	c.retryDelay = time.Millisecond
	return c, calls
}

func trackHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/withpreview", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "withpreview",
			"name": "Song",
			"duration_ms": 200000,
			"preview_url": "https://p.scdn.co/mp3-preview/withpreview",
			"artists": [{"name": "A"}, {"name": "B"}],
			"album": {"name": "Album", "images": [{"url": "https://i.scdn.co/image/cover"}]}
		}`)
	})
	mux.HandleFunc("/tracks/nopreview", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "nopreview", "name": "Silent", "duration_ms": 1000, "preview_url": null}`)
	})
	return mux
}

func TestClient_ResolveSource(t *testing.T) {
	c, calls := newTestClient(t, trackHandler())
	ctx := context.Background()

	url, err := c.ResolveSource(ctx, track.Indirect("spotify:track:withpreview"))
	require.NoError(t, err)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/withpreview", url)
	assert.Equal(t, int32(1), calls.Load())

	// Second resolution is served from the preview cache.
	url, err = c.ResolveSource(ctx, track.Indirect("spotify:track:withpreview"))
	require.NoError(t, err)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/withpreview", url)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.ResolveSource(ctx, track.Indirect("spotify:track:nopreview"))
	assert.True(t, errors.Is(err, ErrNoPreview))

	_, err = c.ResolveSource(ctx, track.Indirect("spotify:album:xyz"))
	assert.Error(t, err)
}

func TestClient_GetTrack(t *testing.T) {
	c, _ := newTestClient(t, trackHandler())

	got, err := c.GetTrack(context.Background(), "https://open.spotify.com/track/withpreview")
	require.NoError(t, err)
	assert.Equal(t, "withpreview", got.ID)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, "A, B", got.Artist)
	assert.Equal(t, 200*time.Second, got.Duration)
	assert.Equal(t, "https://i.scdn.co/image/cover", got.CoverURL)
	assert.Equal(t, track.Indirect("spotify:track:withpreview"), got.Source)
}
