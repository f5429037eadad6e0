package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19deck/internal/domain/track"
)

type FileProviderConfig struct {
	Path       string `yaml:"path" mapstructure:"path" validate:"required"`
	Watch      *bool  `yaml:"watch" mapstructure:"watch" default:"true"`
	DebounceMs int    `yaml:"debounce_ms" mapstructure:"debounce_ms" default:"200" validate:"gte=0"`
}

// playlistFile is the on-disk YAML playlist format.
type playlistFile struct {
	Name   string      `yaml:"name"`
	Tracks []fileEntry `yaml:"tracks"`
}

type fileEntry struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	Artist    string        `yaml:"artist"`
	Duration  time.Duration `yaml:"duration"`
	URI       string        `yaml:"uri"`    // Local path or http(s) URL
	Source    string        `yaml:"source"` // Indirect descriptor, e.g. spotify:track:<id>
	CoverURL  string        `yaml:"cover_url"`
	Ancillary bool          `yaml:"ancillary"`
}

// FileProvider provides tracks from a YAML playlist file.
type FileProvider struct {
	config *FileProviderConfig
}

// NewFileProvider creates a new FileProvider.
func NewFileProvider(settings map[string]any) (*FileProvider, error) {
	var config FileProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("file provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("file provider validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}

	abs, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve playlist path %s", config.Path)
	}
	config.Path = abs
	return &FileProvider{config: &config}, nil
}

// Load reads and parses the playlist file.
// Entries that do not describe a playable track are skipped.
func (p *FileProvider) Load(ctx context.Context) ([]track.Track, error) {
	data, err := os.ReadFile(p.config.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist file")
	}

	var file playlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse playlist file %s", p.config.Path)
	}

	dir := filepath.Dir(p.config.Path)
	tracks := make([]track.Track, 0, len(file.Tracks))
	for i, entry := range file.Tracks {
		t := entry.toTrack(dir)
		if err := t.Validate(); err != nil {
			zlog.Warn().Msgf("skipping playlist entry: file=%s index=%d error=%v", p.config.Path, i, err)
			continue
		}
		tracks = append(tracks, t)
	}

	zlog.Debug().Msgf("loaded playlist file: file=%s name=%q tracks=%d", p.config.Path, file.Name, len(tracks))
	return tracks, nil
}

func (e fileEntry) toTrack(dir string) track.Track {
	t := track.Track{
		ID:        strings.TrimSpace(e.ID),
		Title:     e.Title,
		Artist:    e.Artist,
		Duration:  e.Duration,
		CoverURL:  e.CoverURL,
		Ancillary: e.Ancillary,
	}

	switch uri := strings.TrimSpace(e.URI); {
	case uri != "":
		if !strings.Contains(uri, "://") && !filepath.IsAbs(uri) {
			uri = filepath.Join(dir, uri)
		}
		t.Source = track.Direct(uri)
	case strings.TrimSpace(e.Source) != "":
		t.Source = track.Indirect(e.Source)
	}

	if t.ID == "" {
		t.ID = t.Source.Value
	}
	if t.Title == "" && t.Source.Kind == track.SourceDirect && t.Source.Value != "" {
		base := filepath.Base(t.Source.Value)
		t.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return t
}

// Watch calls onChange whenever the playlist file is written, replaced or
// recreated. Bursts of events are coalesced. It returns nil immediately if
// watching is disabled.
func (p *FileProvider) Watch(ctx context.Context, onChange func()) error {
	if p.config.Watch == nil || !*p.config.Watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors replace files on save, which drops a watch on the file itself.
	dir := filepath.Dir(p.config.Path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	zlog.Info().Msgf("watching playlist file: file=%s", p.config.Path)

	var (
		debounceMu    sync.Mutex
		debounceTimer *time.Timer
	)
	trigger := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(time.Duration(p.config.DebounceMs)*time.Millisecond, onChange)
	}
	defer func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != p.config.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				zlog.Debug().Msgf("playlist file changed: file=%s op=%s", event.Name, event.Op)
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zlog.Warn().Msgf("playlist watcher error: file=%s error=%v", p.config.Path, err)
		}
	}
}

// Name returns the provider name.
func (p *FileProvider) Name() string {
	return "file"
}
