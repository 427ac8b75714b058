// ABOUTME: Listener configuration from environment and .env
// ABOUTME: Defaults, validation and the audio format derived from settings
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Sink names
const (
	SinkPlayback = "playback"
	SinkFile     = "file"
)

// Config holds all listener settings
type Config struct {
	Server     string `env:"ONAIR_SERVER"`
	Name       string `env:"ONAIR_NAME" default:"onair-go"`
	Sink       string `env:"ONAIR_SINK" default:"playback"`
	Codec      string `env:"ONAIR_CODEC" default:"mp3"`
	SampleRate int    `env:"ONAIR_SAMPLE_RATE" default:"44100"`
	Channels   int    `env:"ONAIR_CHANNELS" default:"2"`
	BitDepth   int    `env:"ONAIR_BIT_DEPTH" default:"16"`
	Volume     int    `env:"ONAIR_VOLUME" default:"100"`
	RecordDir  string `env:"ONAIR_RECORD_DIR" default:"rekaman"`
	ArchiveURL string `env:"ONAIR_ARCHIVE_URL"`

	RefreshDelay      time.Duration `env:"ONAIR_REFRESH_DELAY" default:"1s"`
	ReconnectInterval time.Duration `env:"ONAIR_RECONNECT_INTERVAL" default:"2s"`
	MaxWriteRejects   int           `env:"ONAIR_MAX_WRITE_REJECTS" default:"5"`

	MetricsAddr string `env:"ONAIR_METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file, then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Format is the live stream format described by the settings
func (c *Config) Format() audio.Format {
	return audio.Format{
		Codec:      c.Codec,
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   c.BitDepth,
	}
}

// Validate checks the settings. Call it again after applying flag overrides.
func (c *Config) Validate() error {
	switch c.Sink {
	case SinkPlayback:
	case SinkFile:
		if c.RecordDir == "" {
			return errors.New("ONAIR_RECORD_DIR is required for the file sink")
		}
	default:
		return fmt.Errorf("ONAIR_SINK must be %q or %q, got %q", SinkPlayback, SinkFile, c.Sink)
	}

	if err := c.Format().Validate(); err != nil {
		return fmt.Errorf("invalid stream format: %w", err)
	}

	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("ONAIR_VOLUME must be between 0 and 100, got %d", c.Volume)
	}

	if c.RefreshDelay < 0 {
		return errors.New("ONAIR_REFRESH_DELAY must not be negative")
	}

	if c.ArchiveURL != "" {
		u, err := url.Parse(c.ArchiveURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("ONAIR_ARCHIVE_URL must be an http(s) URL, got %q", c.ArchiveURL)
		}
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	return nil
}
