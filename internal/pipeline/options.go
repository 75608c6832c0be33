package pipeline

import (
	"time"

	"github.com/Faultbox/panobake/internal/config"
	"github.com/Faultbox/panobake/pkg/orient"
)

// Options are the plain values a run needs. Relative image paths and a
// relative ProcessedDir are taken against the input collection's directory.
type Options struct {
	Input  string
	Output string
	// ProcessedDir overrides <image dir>/processed.
	ProcessedDir string
	Quality      int

	// Limit caps how many pending frames are processed, 0 means all.
	Limit  int
	DryRun bool

	FrameWorkers int
	PixelWorkers int

	Calibration orient.Calibration

	PreviewWidth   int
	PreviewQuality int

	JournalPath string
	PlotPath    string

	// Now stamps backups and journal rows; nil means time.Now.
	Now func() time.Time
}

// OptionsFromConfig flattens a loaded config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	cal, err := cfg.ResolveCalibration()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Input:          cfg.Input,
		Output:         cfg.OutputPath(),
		ProcessedDir:   cfg.ProcessedDir,
		Quality:        cfg.Quality,
		Limit:          cfg.Limit,
		DryRun:         cfg.DryRun,
		FrameWorkers:   cfg.Workers.Frames,
		PixelWorkers:   cfg.Workers.Pixels,
		Calibration:    cal,
		PreviewWidth:   cfg.Preview.Width,
		PreviewQuality: cfg.Preview.Quality,
		JournalPath:    cfg.Journal.Path,
		PlotPath:       cfg.Report.PlotPath,
	}, nil
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
