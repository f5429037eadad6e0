// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Library provider types.
const (
	ProviderTypeFile            = "file"
	ProviderTypeSpotifyPlaylist = "spotify_playlist"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Library  LibraryConfig  `yaml:"library"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Messages MessagesConfig `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents playback engine configuration.
type PlaybackConfig struct {
	IdleUnloadMs             int     `yaml:"idle_unload_ms" default:"5000" validate:"gte=0"`
	ResolveTimeoutMs         int     `yaml:"resolve_timeout_ms" default:"30000" validate:"gte=100,lte=300000"`
	SettleDelayMs            int     `yaml:"settle_delay_ms" default:"150" validate:"gte=0,lte=5000"`
	RestartThresholdMs       int     `yaml:"restart_threshold_ms" default:"3000" validate:"gte=0"`
	DriftToleranceMs         int     `yaml:"drift_tolerance_ms" default:"500" validate:"gte=0"`
	InitialVolume            float64 `yaml:"initial_volume" default:"1" validate:"gte=0,lte=1"`
	ShuffleIncludesAncillary bool    `yaml:"shuffle_includes_ancillary"`
	Shuffle                  bool    `yaml:"shuffle"`
	Repeat                   string  `yaml:"repeat" default:"off" validate:"oneof=off all one"`
}

// IdleUnload returns the idle unload grace period.
func (p PlaybackConfig) IdleUnload() time.Duration {
	return time.Duration(p.IdleUnloadMs) * time.Millisecond
}

// ResolveTimeout returns the source resolution timeout.
func (p PlaybackConfig) ResolveTimeout() time.Duration {
	return time.Duration(p.ResolveTimeoutMs) * time.Millisecond
}

// SettleDelay returns the wait after force-releasing an in-flight resource.
func (p PlaybackConfig) SettleDelay() time.Duration {
	return time.Duration(p.SettleDelayMs) * time.Millisecond
}

// RestartThreshold returns the position past which Previous restarts the track.
func (p PlaybackConfig) RestartThreshold() time.Duration {
	return time.Duration(p.RestartThresholdMs) * time.Millisecond
}

// DriftTolerance returns the allowed drift before a resume re-seeks.
func (p PlaybackConfig) DriftTolerance() time.Duration {
	return time.Duration(p.DriftToleranceMs) * time.Millisecond
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	SampleRate       int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs         int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	StatusIntervalMs int `yaml:"status_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	HTTPTimeoutMs    int `yaml:"http_timeout_ms" default:"30000" validate:"gte=100"`
}

// LibraryConfig represents playlist source configuration.
type LibraryConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single library provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=file spotify_playlist"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings" validate:"required"`
}

// MessagesConfig represents user-facing notification messages.
type MessagesConfig struct {
	ShuffleOn  string `yaml:"shuffle_on" default:"Shuffle on"`
	ShuffleOff string `yaml:"shuffle_off" default:"Shuffle off"`
	RepeatOff  string `yaml:"repeat_off" default:"Repeat off"`
	RepeatAll  string `yaml:"repeat_all" default:"Repeat all"`
	RepeatOne  string `yaml:"repeat_one" default:"Repeat one"`
	LoadFailed string `yaml:"load_failed" default:"Could not play this track"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a Spotify provider is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("DECK_PLAYLIST"); v != "" {
		c.setPlaylistPath(v)
	}
}

// setPlaylistPath points the first file provider at path, adding one if none exists.
func (c *Config) setPlaylistPath(path string) {
	for i := range c.Library.Providers {
		p := &c.Library.Providers[i]
		if p.Type != ProviderTypeFile {
			continue
		}
		if p.Settings == nil {
			p.Settings = make(map[string]any)
		}
		p.Settings["path"] = path
		return
	}
	c.Library.Providers = append(c.Library.Providers, ProviderConfig{
		Type:        ProviderTypeFile,
		DisplayName: "Local playlist",
		Settings:    map[string]any{"path": path},
	})
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "shuffle_on":
		return c.Messages.ShuffleOn
	case "shuffle_off":
		return c.Messages.ShuffleOff
	case "repeat_off":
		return c.Messages.RepeatOff
	case "repeat_all":
		return c.Messages.RepeatAll
	case "repeat_one":
		return c.Messages.RepeatOne
	case "load_failed":
		return c.Messages.LoadFailed
	default:
		return ""
	}
}

// UsesSpotify reports whether any library provider needs the Spotify API.
func (c *Config) UsesSpotify() bool {
	for _, p := range c.Library.Providers {
		if p.Type == ProviderTypeSpotifyPlaylist {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Validate cross-section consistency
	if err := c.validateSpotifyCredentials(); err != nil {
		return err
	}

	return nil
}

// validateSpotifyCredentials checks that Spotify providers have credentials to work with.
func (c *Config) validateSpotifyCredentials() error {
	if !c.UsesSpotify() {
		return nil
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
		return errors.New("spotify client_id, client_secret and refresh_token are required when a spotify_playlist provider is configured")
	}
	return nil
}
