// Package config handles panobake configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/panobake/internal/logger"
	"github.com/Faultbox/panobake/pkg/orient"
)

// Config holds all bake settings.
type Config struct {
	Input string `yaml:"input"`
	// Output defaults to <input stem>_processed.json.
	Output string `yaml:"output"`
	// ProcessedDir defaults to <image dir>/processed.
	ProcessedDir string `yaml:"processed_dir"`
	Quality      int    `yaml:"quality"`
	// Limit caps the number of pending frames processed; 0 means all.
	Limit  int  `yaml:"limit"`
	DryRun bool `yaml:"dry_run"`

	Workers     WorkersConfig     `yaml:"workers"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Preview     PreviewConfig     `yaml:"preview"`
	Journal     JournalConfig     `yaml:"journal"`
	Report      ReportConfig      `yaml:"report"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WorkersConfig bounds the two levels of parallelism.
type WorkersConfig struct {
	Frames int `yaml:"frames"` // frames baked at once
	Pixels int `yaml:"pixels"` // row bands per frame, 0 = NumCPU
}

// CalibrationConfig selects how raw angles map onto engine angles. A named
// preset wins over the explicit fields.
type CalibrationConfig struct {
	Preset             string `yaml:"preset"`
	orient.Calibration `yaml:",inline"`
}

// PreviewConfig controls downscaled JPEG previews of baked panoramas.
type PreviewConfig struct {
	Width   int `yaml:"width"` // 0 disables previews
	Quality int `yaml:"quality"`
}

// JournalConfig points at the optional SQLite run ledger.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig points at the optional orientation chart.
type ReportConfig struct {
	PlotPath string `yaml:"plot_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Input:   "cone_data.json",
		Quality: 95,
		Workers: WorkersConfig{
			Frames: 2,
			Pixels: 0,
		},
		Calibration: CalibrationConfig{
			Calibration: orient.DefaultCalibration(),
		},
		Preview: PreviewConfig{
			Width:   0,
			Quality: 80,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// OutputPath returns the configured output collection path, deriving it
// from the input when unset.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	ext := filepath.Ext(c.Input)
	return strings.TrimSuffix(c.Input, ext) + "_processed" + ext
}

// ResolveCalibration returns the effective calibration.
func (c *Config) ResolveCalibration() (orient.Calibration, error) {
	if c.Calibration.Preset != "" {
		return orient.Preset(c.Calibration.Preset)
	}
	return c.Calibration.Calibration, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input collection path is required")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be in [1, 100], got %d", c.Quality)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.Workers.Frames < 0 || c.Workers.Pixels < 0 {
		return fmt.Errorf("worker counts must not be negative")
	}
	if c.Preview.Width < 0 {
		return fmt.Errorf("preview width must not be negative, got %d", c.Preview.Width)
	}
	if c.Preview.Width > 0 && (c.Preview.Quality < 1 || c.Preview.Quality > 100) {
		return fmt.Errorf("preview quality must be in [1, 100], got %d", c.Preview.Quality)
	}
	cal, err := c.ResolveCalibration()
	if err != nil {
		return err
	}
	if err := cal.Validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	return nil
}
