// Package pipeline bakes capture orientation into the pixels of every
// pending frame of a collection.
//
// A run loads the collection, backs it up, bakes the selected frames on a
// bounded worker pool and then, on the calling goroutine, rewrites the
// baked frames to the identity direction and saves the collection once.
// A failing frame is recorded in the Summary and left untouched; the other
// frames still complete.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/panobake/internal/collection"
	"github.com/Faultbox/panobake/internal/imageio"
	"github.com/Faultbox/panobake/internal/journal"
	"github.com/Faultbox/panobake/internal/report"
	"github.com/Faultbox/panobake/pkg/equirect"
)

// Pipeline runs bakes with fixed options.
type Pipeline struct {
	opts    Options
	log     *zap.Logger
	baker   equirect.Baker
	baseDir string
}

// New returns a pipeline. A nil logger discards output.
func New(opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.FrameWorkers <= 0 {
		opts.FrameWorkers = 1
	}
	return &Pipeline{
		opts:    opts,
		log:     log,
		baker:   equirect.Baker{Workers: opts.PixelWorkers},
		baseDir: filepath.Dir(opts.Input),
	}
}

// Run processes the collection. The returned error is non-nil only when
// the run as a whole failed: the collection could not be read, or the
// backup, the output collection, the journal or the report could not be
// written. Per-frame failures are reported in the Summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	s := &Summary{
		RunID:     journal.NewRunID(),
		DryRun:    p.opts.DryRun,
		StartedAt: p.opts.now(),
	}
	log := p.log.With(zap.String("run", s.RunID.String()))

	c, err := collection.Load(p.opts.Input)
	if err != nil {
		return nil, err
	}

	selected, skipped := p.selectFrames(c)
	s.Skipped = skipped
	log.Info("collection loaded",
		zap.String("input", p.opts.Input),
		zap.Int("frames", len(c.Frames)),
		zap.Int("selected", len(selected)),
		zap.Int("skipped", len(skipped)),
		zap.Bool("dry_run", p.opts.DryRun),
	)

	if !p.opts.DryRun && len(selected) > 0 {
		backup, err := collection.Backup(p.opts.Input, s.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("backing up collection: %w", err)
		}
		s.Backup = backup
		log.Info("backup written", zap.String("path", backup))
	}

	s.Frames = p.bakeAll(ctx, c, selected)

	if !p.opts.DryRun {
		if err := p.commit(c, s); err != nil {
			return s, err
		}
		log.Info("collection written", zap.String("output", s.Output))
	}
	s.FinishedAt = p.opts.now()

	var errs []error
	if p.opts.JournalPath != "" {
		if err := p.record(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if p.opts.PlotPath != "" {
		if err := p.chart(s); err != nil {
			errs = append(errs, fmt.Errorf("report: %w", err))
		}
	}

	log.Info("run finished",
		zap.Int("succeeded", len(s.Succeeded())),
		zap.Int("failed", len(s.Failed())),
		zap.Int("skipped", len(s.Skipped)),
		zap.Duration("duration", s.FinishedAt.Sub(s.StartedAt)),
	)
	return s, errors.Join(errs...)
}

// selectFrames splits the collection into frames to process and frames to
// skip. Baked frames are always skipped; pending frames past the limit are
// skipped too.
func (p *Pipeline) selectFrames(c *collection.Collection) (selected []int, skipped []Skip) {
	selected = c.Pending()
	over := make(map[int]bool)
	if p.opts.Limit > 0 && len(selected) > p.opts.Limit {
		for _, i := range selected[p.opts.Limit:] {
			over[i] = true
		}
		selected = selected[:p.opts.Limit]
	}

	for i, f := range c.Frames {
		switch {
		case f.Baked:
			skipped = append(skipped, Skip{ID: f.ID.String(), Index: i, Reason: ReasonAlreadyBaked})
		case over[i]:
			skipped = append(skipped, Skip{ID: f.ID.String(), Index: i, Reason: ReasonOverLimit})
		}
	}
	return selected, skipped
}

// claimOutputs hands out processed image paths in collection order. A
// selected frame whose path is already taken, by the image of a baked frame
// or by an earlier selected frame, gets an ErrOutputConflict. Frames that
// will fail anyway claim nothing.
func (p *Pipeline) claimOutputs(c *collection.Collection, selected []int) map[int]error {
	owner := make(map[string]string)
	for _, f := range c.Frames {
		if f.Baked {
			owner[p.outputKey(f.ImagePath)] = f.ID.String()
		}
	}

	conflicts := make(map[int]error)
	for _, i := range selected {
		f := c.Frames[i]
		if _, err := collection.Transform(f.Direction); err != nil {
			continue
		}
		if _, err := imageio.FormatOf(f.ImagePath); err != nil {
			continue
		}
		out := p.processedPath(f.ImagePath)
		key := p.outputKey(out)
		if id, ok := owner[key]; ok {
			conflicts[i] = fmt.Errorf("%w: frame %s already writes %s", ErrOutputConflict, id, out)
			continue
		}
		owner[key] = f.ID.String()
	}
	return conflicts
}

func (p *Pipeline) outputKey(path string) string {
	return filepath.Clean(p.resolve(path))
}

// bakeAll runs processFrame over the selected frames with at most
// FrameWorkers in flight. Each worker owns one slot of the result slice.
func (p *Pipeline) bakeAll(ctx context.Context, c *collection.Collection, selected []int) []Outcome {
	out := make([]Outcome, len(selected))
	conflicts := p.claimOutputs(c, selected)

	var g errgroup.Group
	g.SetLimit(p.opts.FrameWorkers)
	for slot, idx := range selected {
		frame, conflict := c.Frames[idx], conflicts[idx]
		g.Go(func() error {
			out[slot] = p.processFrame(ctx, idx, frame, conflict)
			return nil
		})
	}
	g.Wait()
	return out
}

// commit applies successful outcomes to the collection and writes it.
func (p *Pipeline) commit(c *collection.Collection, s *Summary) error {
	baked := 0
	for _, o := range s.Frames {
		if o.Status != journal.StatusBaked {
			continue
		}
		c.Frames[o.Index].MarkBaked(o.Output)
		baked++
	}
	if baked > 0 {
		if err := c.StampExportInfo(filepath.Base(p.opts.Input)); err != nil {
			return fmt.Errorf("stamping export info: %w", err)
		}
	}

	if err := c.Save(p.opts.Output); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}
	s.Output = p.opts.Output
	return nil
}

func (p *Pipeline) record(ctx context.Context, s *Summary) error {
	j, err := journal.Open(p.opts.JournalPath)
	if err != nil {
		return err
	}
	defer j.Close()
	return j.Record(context.WithoutCancel(ctx), s.journalRun(p.opts.Input), s.journalFrames())
}

func (p *Pipeline) chart(s *Summary) error {
	var points []report.Point
	for _, o := range s.Frames {
		if o.Angles != nil {
			points = append(points, report.Point{Frame: o.ID, Angles: *o.Angles})
		}
	}
	if len(points) == 0 {
		p.log.Warn("no angles to chart", zap.String("plot", p.opts.PlotPath))
		return nil
	}
	return report.Save(p.opts.PlotPath, filepath.Base(p.opts.Input), points)
}
