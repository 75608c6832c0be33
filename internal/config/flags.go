package config

import "flag"

// Flags are the command-line overrides shared by the panobake subcommands.
type Flags struct {
	Config       string
	Input        string
	Output       string
	ProcessedDir string
	Quality      int
	Limit        int
	DryRun       bool
	Workers      int
	PixelWorkers int
	Preset       string
	PreviewWidth int
	Journal      string
	Plot         string
	Debug        bool
	LogFile      string
}

// Bind registers the flags on fs.
func (f *Flags) Bind(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.Input, "input", "", "Input frame collection (JSON)")
	fs.StringVar(&f.Output, "output", "", "Output frame collection (JSON)")
	fs.StringVar(&f.ProcessedDir, "processed-dir", "", "Directory for baked images")
	fs.IntVar(&f.Quality, "quality", 0, "JPEG quality of baked images (1-100)")
	fs.IntVar(&f.Limit, "limit", 0, "Only process the first N pending frames")
	fs.BoolVar(&f.DryRun, "dry-run", false, "Plan rotations without writing anything")
	fs.IntVar(&f.Workers, "workers", 0, "Frames baked in parallel")
	fs.IntVar(&f.PixelWorkers, "pixel-workers", 0, "Row bands per frame (default NumCPU)")
	fs.StringVar(&f.Preset, "calibration", "", "Calibration preset name")
	fs.IntVar(&f.PreviewWidth, "preview-width", 0, "Write previews this many pixels wide")
	fs.StringVar(&f.Journal, "journal", "", "SQLite run journal path")
	fs.StringVar(&f.Plot, "plot", "", "Write an orientation chart to this path")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Input != "" {
		cfg.Input = f.Input
	}
	if f.Output != "" {
		cfg.Output = f.Output
	}
	if f.ProcessedDir != "" {
		cfg.ProcessedDir = f.ProcessedDir
	}
	if f.Quality > 0 {
		cfg.Quality = f.Quality
	}
	if f.Limit > 0 {
		cfg.Limit = f.Limit
	}
	if f.DryRun {
		cfg.DryRun = true
	}
	if f.Workers > 0 {
		cfg.Workers.Frames = f.Workers
	}
	if f.PixelWorkers > 0 {
		cfg.Workers.Pixels = f.PixelWorkers
	}
	if f.Preset != "" {
		cfg.Calibration.Preset = f.Preset
	}
	if f.PreviewWidth > 0 {
		cfg.Preview.Width = f.PreviewWidth
	}
	if f.Journal != "" {
		cfg.Journal.Path = f.Journal
	}
	if f.Plot != "" {
		cfg.Report.PlotPath = f.Plot
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
