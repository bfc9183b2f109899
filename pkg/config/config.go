// Package config loads the daemon configuration by layering the embedded
// defaults, an optional config file, and MORPHD_* environment variables.
package config

import (
	_ "embed"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	morpherr "github.com/arthur-debert/morphd/pkg/errors"
)

// DefaultPath is consulted when no explicit config file is given.
const DefaultPath = "/etc/morphd/config.toml"

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Config is the fully resolved daemon configuration.
type Config struct {
	Watch   WatchConfig   `koanf:"watch"`
	Guard   GuardConfig   `koanf:"guard"`
	Convert ConvertConfig `koanf:"convert"`
	Store   StoreConfig   `koanf:"store"`
	Notify  NotifyConfig  `koanf:"notify"`
}

// WatchConfig controls event ingestion.
type WatchConfig struct {
	Roots      []string `koanf:"roots"`
	DebounceMS int      `koanf:"debounce_ms"`
	QueueSize  int      `koanf:"queue_size"`
}

// GuardConfig controls the loop guard window.
type GuardConfig struct {
	TTLSeconds int `koanf:"ttl_seconds"`
}

// ConvertConfig controls the worker pool and engine quality defaults.
type ConvertConfig struct {
	Workers           int `koanf:"workers"`
	RasterDPI         int `koanf:"raster_dpi"`
	VideoCRF          int `koanf:"video_crf"`
	AudioQuality      int `koanf:"audio_quality"`
	TempMaxAgeMinutes int `koanf:"temp_max_age_minutes"`
	TempSweepMinutes  int `koanf:"temp_sweep_minutes"`
}

// StoreConfig controls version store placement.
type StoreConfig struct {
	Root string `koanf:"root"`
}

// NotifyConfig selects the notification backend.
type NotifyConfig struct {
	Mode string `koanf:"mode"`
}

// Debounce returns the ingestion quiet window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// GuardTTL returns the loop guard window as a duration.
func (c *Config) GuardTTL() time.Duration {
	return time.Duration(c.Guard.TTLSeconds) * time.Second
}

// TempMaxAge returns the stale-temp threshold as a duration.
func (c *Config) TempMaxAge() time.Duration {
	return time.Duration(c.Convert.TempMaxAgeMinutes) * time.Minute
}

// TempSweepInterval returns the sweep cadence as a duration.
func (c *Config) TempSweepInterval() time.Duration {
	return time.Duration(c.Convert.TempSweepMinutes) * time.Minute
}

// Load resolves the configuration. path may be empty, in which case the
// default path is used when present.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, morpherr.Wrap(err, morpherr.ErrConfigParse, "failed to load embedded defaults")
	}

	// 2. Config file, if any
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, morpherr.Wrapf(err, morpherr.ErrConfigParse, "failed to load config from %s", path)
		}
	} else if explicit {
		return nil, morpherr.Wrapf(err, morpherr.ErrConfigLoad, "config file %s not readable", path)
	}

	// 3. Environment overrides: MORPHD_WATCH_DEBOUNCE_MS -> watch.debounce_ms
	err := k.Load(env.Provider("MORPHD_", ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, "MORPHD_")), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, morpherr.Wrap(err, morpherr.ErrConfigLoad, "failed to load env vars")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, morpherr.Wrap(err, morpherr.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Watch.Roots) == 0 {
		return morpherr.New(morpherr.ErrConfigValid, "watch.roots must not be empty")
	}
	if cfg.Watch.QueueSize < 1 {
		return morpherr.New(morpherr.ErrConfigValid, "watch.queue_size must be at least 1")
	}
	if cfg.Convert.Workers < 1 {
		return morpherr.New(morpherr.ErrConfigValid, "convert.workers must be at least 1")
	}
	if cfg.Guard.TTLSeconds < 1 {
		return morpherr.New(morpherr.ErrConfigValid, "guard.ttl_seconds must be at least 1")
	}
	switch cfg.Notify.Mode {
	case "auto", "dbus", "desktop", "off":
	default:
		return morpherr.Newf(morpherr.ErrConfigValid, "notify.mode %q is not one of auto, dbus, desktop, off", cfg.Notify.Mode)
	}
	return nil
}
