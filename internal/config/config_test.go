package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/panobake/pkg/orient"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Input != "cone_data.json" {
		t.Errorf("expected input cone_data.json, got %s", cfg.Input)
	}
	if cfg.OutputPath() != "cone_data_processed.json" {
		t.Errorf("expected derived output cone_data_processed.json, got %s", cfg.OutputPath())
	}
	if cfg.Quality != 95 {
		t.Errorf("expected quality 95, got %d", cfg.Quality)
	}
	if cfg.Limit != 0 || cfg.DryRun {
		t.Error("expected no limit and no dry run by default")
	}
	if cfg.Workers.Frames != 2 || cfg.Workers.Pixels != 0 {
		t.Errorf("unexpected worker defaults %+v", cfg.Workers)
	}
	if cfg.Preview.Width != 0 {
		t.Error("expected previews to be disabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	cal, err := cfg.ResolveCalibration()
	if err != nil {
		t.Fatalf("ResolveCalibration: %v", err)
	}
	if cal != orient.DefaultCalibration() {
		t.Errorf("expected default calibration, got %+v", cal)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
input: site/cone_data.json
output: site/baked.json
processed_dir: site/baked
quality: 88
limit: 3
dry_run: true

workers:
  frames: 4
  pixels: 8

calibration:
  yaw_sign: 1
  pitch_sign: -1
  roll_sign: -1
  yaw_offset: 90

preview:
  width: 1024
  quality: 70

journal:
  path: runs.db

report:
  plot_path: angles.png

logging:
  level: "debug"
  log_file: "bake.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Input != "site/cone_data.json" || cfg.OutputPath() != "site/baked.json" {
		t.Errorf("unexpected paths: %s -> %s", cfg.Input, cfg.OutputPath())
	}
	if cfg.ProcessedDir != "site/baked" {
		t.Errorf("expected processed dir site/baked, got %s", cfg.ProcessedDir)
	}
	if cfg.Quality != 88 || cfg.Limit != 3 || !cfg.DryRun {
		t.Errorf("unexpected run settings: quality=%d limit=%d dry=%v", cfg.Quality, cfg.Limit, cfg.DryRun)
	}
	if cfg.Workers.Frames != 4 || cfg.Workers.Pixels != 8 {
		t.Errorf("unexpected workers %+v", cfg.Workers)
	}

	cal, err := cfg.ResolveCalibration()
	if err != nil {
		t.Fatalf("ResolveCalibration: %v", err)
	}
	want := orient.Calibration{YawSign: 1, PitchSign: -1, RollSign: -1, YawOffset: 90}
	if cal != want {
		t.Errorf("expected calibration %+v, got %+v", want, cal)
	}

	if cfg.Preview.Width != 1024 || cfg.Preview.Quality != 70 {
		t.Errorf("unexpected preview %+v", cfg.Preview)
	}
	if cfg.Journal.Path != "runs.db" || cfg.Report.PlotPath != "angles.png" {
		t.Error("journal or report path not loaded")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "bake.log" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	cases := map[string]string{
		"syntax":      "quality: not a number\n  invalid syntax here\n",
		"unknown key": "qualty: 90\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, name+".yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid config, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.Quality != 95 {
		t.Error("empty file changed defaults")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/panobake.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("quality: 80\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find panobake.yaml in current directory")
	}
}

func TestFlagsApply(t *testing.T) {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	var f Flags
	f.Bind(fs)

	args := []string{
		"-input", "a.json", "-output", "b.json", "-quality", "70", "-limit", "2",
		"-dry-run", "-workers", "3", "-pixel-workers", "5", "-calibration", "aframe-sky",
		"-preview-width", "512", "-journal", "j.db", "-plot", "p.png", "-debug",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg := Default()
	f.apply(cfg)

	if cfg.Input != "a.json" || cfg.Output != "b.json" {
		t.Errorf("paths not applied: %s %s", cfg.Input, cfg.Output)
	}
	if cfg.Quality != 70 || cfg.Limit != 2 || !cfg.DryRun {
		t.Errorf("run flags not applied: %+v", cfg)
	}
	if cfg.Workers.Frames != 3 || cfg.Workers.Pixels != 5 {
		t.Errorf("worker flags not applied: %+v", cfg.Workers)
	}
	if cfg.Preview.Width != 512 || cfg.Journal.Path != "j.db" || cfg.Report.PlotPath != "p.png" {
		t.Error("optional output flags not applied")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}

	cal, err := cfg.ResolveCalibration()
	if err != nil {
		t.Fatalf("ResolveCalibration: %v", err)
	}
	if cal.YawOffset != 90 {
		t.Errorf("preset not applied: %+v", cal)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	yamlContent := `
quality: 80
limit: 5
workers:
  frames: 6
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(&Flags{Config: configPath, Quality: 60})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// flag beats file
	if cfg.Quality != 60 {
		t.Errorf("expected quality 60 from flag, got %d", cfg.Quality)
	}
	// file beats default
	if cfg.Limit != 5 || cfg.Workers.Frames != 6 {
		t.Errorf("expected limit 5 and 6 frame workers from file, got %d and %d", cfg.Limit, cfg.Workers.Frames)
	}
	// untouched default
	if cfg.Preview.Quality != 80 {
		t.Errorf("expected default preview quality, got %d", cfg.Preview.Quality)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("quality: 101\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(&Flags{Config: configPath}); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.Input = "" }},
		{"quality zero", func(c *Config) { c.Quality = 0 }},
		{"quality high", func(c *Config) { c.Quality = 101 }},
		{"negative limit", func(c *Config) { c.Limit = -1 }},
		{"negative frames", func(c *Config) { c.Workers.Frames = -1 }},
		{"negative pixels", func(c *Config) { c.Workers.Pixels = -2 }},
		{"preview quality", func(c *Config) { c.Preview.Width = 100; c.Preview.Quality = 0 }},
		{"unknown preset", func(c *Config) { c.Calibration.Preset = "unity" }},
		{"zero sign", func(c *Config) { c.Calibration.RollSign = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Calibration.Preset = "aframe-sky"
	cfg.Journal.Path = "runs.db"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Calibration.Preset != "aframe-sky" || loaded.Journal.Path != "runs.db" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
