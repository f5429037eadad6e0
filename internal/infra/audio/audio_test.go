package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes d of silence as a wav file and returns its path.
func writeWAV(t *testing.T, d time.Duration) string {
	t.Helper()
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	path := filepath.Join(t.TempDir(), "silence.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, beep.Take(format.SampleRate.N(d), generators.Silence(-1)), format))
	require.NoError(t, f.Close())
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		want        format
	}{
		{name: "mp3 extension", path: "/music/a.mp3", want: formatMP3},
		{name: "flac extension", path: "/music/a.FLAC", want: formatFLAC},
		{name: "wav extension", path: "/music/a.wav", want: formatWAV},
		{name: "content type wins without extension", path: "/mp3-preview/abc", contentType: "audio/x-wav", want: formatWAV},
		{name: "flac content type", path: "/stream", contentType: "audio/flac", want: formatFLAC},
		{name: "unknown defaults to mp3", path: "/stream", contentType: "application/octet-stream", want: formatMP3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.path, tt.contentType))
		})
	}
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, 0.0, levelToVolume(1.5))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
}

func TestFactory_DecodeLocalFile(t *testing.T) {
	path := writeWAV(t, 2*time.Second)
	f := NewFactory(DefaultConfig())

	for _, uri := range []string{path, "file://" + path} {
		streamer, format, err := f.decode(context.Background(), uri)
		require.NoError(t, err, uri)

		assert.Equal(t, beep.SampleRate(8000), format.SampleRate)
		assert.Equal(t, 2*time.Second, format.SampleRate.D(streamer.Len()))
		assert.NoError(t, streamer.Close())
	}
}

func TestFactory_DecodeRemote(t *testing.T) {
	data, err := os.ReadFile(writeWAV(t, time.Second))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/preview/abc" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f := NewFactory(DefaultConfig())

	streamer, format, err := f.decode(context.Background(), srv.URL+"/preview/abc")
	require.NoError(t, err)
	assert.Equal(t, time.Second, format.SampleRate.D(streamer.Len()))
	assert.NoError(t, streamer.Close())

	_, _, err = f.decode(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestFactory_DecodeErrors(t *testing.T) {
	f := NewFactory(DefaultConfig())

	_, _, err := f.decode(context.Background(), "/does/not/exist.mp3")
	assert.Error(t, err)

	_, _, err = f.decode(context.Background(), "ftp://example.com/a.mp3")
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not audio"), 0o600))
	_, _, err = f.decode(context.Background(), garbage)
	assert.Error(t, err)
}
