package playback

import (
	"fmt"
	"time"
)

// Config holds the tuning constants of the playback engine. The
// safe-ratio margins are empirically chosen; nothing besides "stay
// away from chapter edges" depends on their exact values, so they are
// plain configuration rather than invariants.
type Config struct {
	// Safe-interior margins
	SeekFloor           float64 `yaml:"seek_floor" env:"LECTOR_SEEK_FLOOR" envDefault:"0.01"`
	SeekCeiling         float64 `yaml:"seek_ceiling" env:"LECTOR_SEEK_CEILING" envDefault:"0.90"`
	BoundaryMargin      float64 `yaml:"boundary_margin" env:"LECTOR_BOUNDARY_MARGIN" envDefault:"0.005"`
	ChapterStartEpsilon float64 `yaml:"chapter_start_epsilon" env:"LECTOR_CHAPTER_START_EPSILON" envDefault:"0.02"`

	// Segmentation
	MinChapterLength int `yaml:"min_chapter_length" env:"LECTOR_MIN_CHAPTER_LENGTH" envDefault:"100"`

	// Skip sizing: a skip moves the position by SkipInterval worth of
	// estimated reading at CharsPerMinute, so skips feel the same
	// length regardless of chapter size.
	CharsPerMinute int           `yaml:"chars_per_minute" env:"LECTOR_CHARS_PER_MINUTE" envDefault:"900"`
	SkipInterval   time.Duration `yaml:"skip_interval" env:"LECTOR_SKIP_INTERVAL" envDefault:"15s"`

	// Playback
	Rate        float64       `yaml:"rate" env:"LECTOR_RATE" envDefault:"1.0"`
	ResumeDelay time.Duration `yaml:"resume_delay" env:"LECTOR_RESUME_DELAY" envDefault:"250ms"`

	// Polling and loading
	PollInterval     time.Duration `yaml:"poll_interval" env:"LECTOR_POLL_INTERVAL" envDefault:"750ms"`
	LoadPollInterval time.Duration `yaml:"load_poll_interval" env:"LECTOR_LOAD_POLL_INTERVAL" envDefault:"500ms"`
	LoadTimeout      time.Duration `yaml:"load_timeout" env:"LECTOR_LOAD_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config with the engine's default tuning.
func DefaultConfig() Config {
	return Config{
		SeekFloor:           0.01,
		SeekCeiling:         0.90,
		BoundaryMargin:      0.005,
		ChapterStartEpsilon: 0.02,

		MinChapterLength: 100,

		CharsPerMinute: 900,
		SkipInterval:   15 * time.Second,

		Rate:        1.0,
		ResumeDelay: 250 * time.Millisecond,

		PollInterval:     750 * time.Millisecond,
		LoadPollInterval: 500 * time.Millisecond,
		LoadTimeout:      10 * time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.SeekFloor <= 0 || c.SeekFloor >= 1 {
		return fmt.Errorf("seek_floor must be in (0,1), got %f", c.SeekFloor)
	}
	if c.SeekCeiling <= 0 || c.SeekCeiling >= 1 {
		return fmt.Errorf("seek_ceiling must be in (0,1), got %f", c.SeekCeiling)
	}
	if c.SeekFloor >= c.SeekCeiling {
		return fmt.Errorf("seek_floor %f must be below seek_ceiling %f", c.SeekFloor, c.SeekCeiling)
	}
	if c.BoundaryMargin < 0 || c.BoundaryMargin > 0.1 {
		return fmt.Errorf("boundary_margin must be in [0,0.1], got %f", c.BoundaryMargin)
	}
	if c.ChapterStartEpsilon <= 0 || c.ChapterStartEpsilon >= c.SeekCeiling {
		return fmt.Errorf("chapter_start_epsilon must be in (0,%f), got %f", c.SeekCeiling, c.ChapterStartEpsilon)
	}
	if c.MinChapterLength < 0 {
		return fmt.Errorf("min_chapter_length must be non-negative, got %d", c.MinChapterLength)
	}
	if c.CharsPerMinute < 60 || c.CharsPerMinute > 10000 {
		return fmt.Errorf("chars_per_minute must be between 60 and 10000, got %d", c.CharsPerMinute)
	}
	if c.SkipInterval < time.Second {
		return fmt.Errorf("skip_interval must be at least 1s, got %v", c.SkipInterval)
	}
	if c.Rate < 0.25 || c.Rate > 4.0 {
		return fmt.Errorf("rate must be between 0.25 and 4.0, got %f", c.Rate)
	}
	if c.ResumeDelay < 0 {
		return fmt.Errorf("resume_delay must be non-negative, got %v", c.ResumeDelay)
	}
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms, got %v", c.PollInterval)
	}
	if c.LoadPollInterval < 100*time.Millisecond {
		return fmt.Errorf("load_poll_interval must be at least 100ms, got %v", c.LoadPollInterval)
	}
	if c.LoadTimeout < c.LoadPollInterval {
		return fmt.Errorf("load_timeout %v must be at least load_poll_interval %v", c.LoadTimeout, c.LoadPollInterval)
	}
	return nil
}

// SkipOffsetDelta returns the skip distance in runes.
func (c *Config) SkipOffsetDelta() int {
	return int(c.SkipInterval.Minutes() * float64(c.CharsPerMinute))
}

// LoadAttempts returns the number of load polls the timeout allows.
func (c *Config) LoadAttempts() int {
	if c.LoadPollInterval <= 0 {
		return 1
	}
	return int(c.LoadTimeout / c.LoadPollInterval)
}
