package playback

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads playback configuration from Viper,
// layering file values over the defaults.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("playback.seek_floor") {
		cfg.SeekFloor = viper.GetFloat64("playback.seek_floor")
	}
	if viper.IsSet("playback.seek_ceiling") {
		cfg.SeekCeiling = viper.GetFloat64("playback.seek_ceiling")
	}
	if viper.IsSet("playback.boundary_margin") {
		cfg.BoundaryMargin = viper.GetFloat64("playback.boundary_margin")
	}
	if viper.IsSet("playback.chapter_start_epsilon") {
		cfg.ChapterStartEpsilon = viper.GetFloat64("playback.chapter_start_epsilon")
	}
	if viper.IsSet("playback.min_chapter_length") {
		cfg.MinChapterLength = viper.GetInt("playback.min_chapter_length")
	}
	if viper.IsSet("playback.chars_per_minute") {
		cfg.CharsPerMinute = viper.GetInt("playback.chars_per_minute")
	}
	if viper.IsSet("playback.skip_interval") {
		if d, err := time.ParseDuration(viper.GetString("playback.skip_interval")); err == nil {
			cfg.SkipInterval = d
		}
	}
	if viper.IsSet("playback.rate") {
		cfg.Rate = viper.GetFloat64("playback.rate")
	}
	if viper.IsSet("playback.resume_delay") {
		if d, err := time.ParseDuration(viper.GetString("playback.resume_delay")); err == nil {
			cfg.ResumeDelay = d
		}
	}
	if viper.IsSet("playback.poll_interval") {
		if d, err := time.ParseDuration(viper.GetString("playback.poll_interval")); err == nil {
			cfg.PollInterval = d
		}
	}
	if viper.IsSet("playback.load_poll_interval") {
		if d, err := time.ParseDuration(viper.GetString("playback.load_poll_interval")); err == nil {
			cfg.LoadPollInterval = d
		}
	}
	if viper.IsSet("playback.load_timeout") {
		if d, err := time.ParseDuration(viper.GetString("playback.load_timeout")); err == nil {
			cfg.LoadTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid playback configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromEnv overlays LECTOR_* environment variables onto the
// defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid playback configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers default values with Viper so partial config
// files validate cleanly.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("playback.seek_floor", defaults.SeekFloor)
	viper.SetDefault("playback.seek_ceiling", defaults.SeekCeiling)
	viper.SetDefault("playback.boundary_margin", defaults.BoundaryMargin)
	viper.SetDefault("playback.chapter_start_epsilon", defaults.ChapterStartEpsilon)
	viper.SetDefault("playback.min_chapter_length", defaults.MinChapterLength)
	viper.SetDefault("playback.chars_per_minute", defaults.CharsPerMinute)
	viper.SetDefault("playback.skip_interval", defaults.SkipInterval.String())
	viper.SetDefault("playback.rate", defaults.Rate)
	viper.SetDefault("playback.resume_delay", defaults.ResumeDelay.String())
	viper.SetDefault("playback.poll_interval", defaults.PollInterval.String())
	viper.SetDefault("playback.load_poll_interval", defaults.LoadPollInterval.String())
	viper.SetDefault("playback.load_timeout", defaults.LoadTimeout.String())
}

// WatchConfig reloads tuning constants when the config file changes
// on disk and hands the result to onChange. Invalid edits are dropped
// and the previous configuration stays in effect.
func WatchConfig(onChange func(Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := LoadConfigFromViper()
		if err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
