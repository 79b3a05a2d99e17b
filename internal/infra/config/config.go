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

// Config represents the application configuration.
type Config struct {
	Discord  DiscordConfig           `yaml:"discord"`
	YouTube  YouTubeConfig           `yaml:"youtube"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
	Playback PlaybackConfig          `yaml:"playback"`
	Fetcher  FetcherConfig           `yaml:"fetcher"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// DiscordConfig represents bot connection configuration.
type DiscordConfig struct {
	Token string `yaml:"token" validate:"required"`
	// Guilds to register commands in; empty registers them globally.
	GuildIDs []string `yaml:"guild_ids" validate:"dive,numeric"`
}

// YouTubeConfig represents YouTube Data API configuration.
type YouTubeConfig struct {
	APIKey        string `yaml:"api_key" validate:"required"`
	BaseURL       string `yaml:"base_url" default:"https://www.googleapis.com/youtube/v3" validate:"url"`
	SearchResults int    `yaml:"search_results" default:"5" validate:"gte=1,lte=25"`
}

// SpotifyConfig represents Spotify API configuration.
// Album and playlist imports are disabled when no client ID is set.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2"`
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	PollIntervalMs int    `yaml:"poll_interval_ms" default:"3000" validate:"gte=100,lte=60000"`
	MaxSongs       int    `yaml:"max_songs" default:"30" validate:"gte=1,lte=200"`
	PageSize       int    `yaml:"page_size" default:"30" validate:"gte=1,lte=50"`
	AudioDir       string `yaml:"audio_dir" default:"serverAudio" validate:"required"`
}

// PollInterval returns the controller tick period.
func (p PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// FetcherConfig represents yt-dlp configuration.
type FetcherConfig struct {
	Format      string `yaml:"format" default:"bestaudio/best"`
	AudioFormat string `yaml:"audio_format" default:"opus" validate:"oneof=opus"`
	Proxy       string `yaml:"proxy" validate:"omitempty,url"`
	TimeoutSec  int    `yaml:"timeout_sec" default:"300" validate:"gte=10"`
}

// Timeout returns the download timeout.
func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML content.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("YT_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the raw settings for a filter, or nil.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
