package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Playback engine tuning.
playback:
  # Safe-interior seek range: caller ratios are clamped into
  # [seek_floor, seek_ceiling] before mapping to a position.
  seek_floor: 0.01
  seek_ceiling: 0.90
  # Fraction of a chapter's span kept clear of its edges.
  boundary_margin: 0.005
  # Chapter-internal ratio used when jumping to a chapter start.
  chapter_start_epsilon: 0.02

  # Candidate chapters at or below this rune count with placeholder
  # titles are merged into a neighbor.
  min_chapter_length: 100

  # Skip sizing: skip_interval worth of reading at chars_per_minute.
  chars_per_minute: 900
  skip_interval: "15s"

  # Speech rate multiplier.
  rate: 1.0
  # Delay before speech resumes after a seek while playing.
  resume_delay: "250ms"

  # Chapter-index polling cadence.
  poll_interval: "750ms"
  # Document loading poll cadence and attempt budget.
  load_poll_interval: "500ms"
  load_timeout: "10s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the lector config file",
	Long:    fmt.Sprintf("\n%s the lector config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit")),
	Example: "lector config\nlector config --config path/to/lector.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Lector", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
