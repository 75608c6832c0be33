package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/panobake/internal/collection"
	"github.com/Faultbox/panobake/internal/imageio"
	"github.com/Faultbox/panobake/internal/journal"
	"github.com/Faultbox/panobake/pkg/orient"
)

// processFrame bakes one frame. It only reads f and the options, so frames
// can run concurrently; the caller applies the outcome to the collection.
// A non-nil conflict fails the frame once its output path is known.
func (p *Pipeline) processFrame(ctx context.Context, index int, f collection.Frame, conflict error) Outcome {
	start := time.Now()
	o := Outcome{ID: f.ID.String(), Index: index}
	log := p.log.With(zap.String("frame", o.ID))

	fail := func(err error) Outcome {
		o.Status = journal.StatusFailed
		o.Err = err
		o.Reason = ReasonOf(err)
		o.Duration = time.Since(start)
		log.Warn("frame failed", zap.String("reason", string(o.Reason)), zap.Error(err))
		return o
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	t, err := collection.Transform(f.Direction)
	if err != nil {
		return fail(err)
	}
	angles := p.opts.Calibration.Apply(orient.Decompose(t))
	o.Angles = &angles
	o.Gimbal = t.GimbalLocked()
	if o.Gimbal {
		log.Debug("gimbal lock, roll folded into yaw", zap.Float64("pitch", angles.Pitch))
	}

	if _, err := imageio.FormatOf(f.ImagePath); err != nil {
		return fail(err)
	}
	o.Output = p.processedPath(f.ImagePath)
	if conflict != nil {
		return fail(conflict)
	}

	if p.opts.DryRun {
		o.Status = journal.StatusPlanned
		o.Duration = time.Since(start)
		log.Info("planned",
			zap.Float64("yaw", angles.Yaw),
			zap.Float64("pitch", angles.Pitch),
			zap.Float64("roll", angles.Roll),
			zap.String("output", o.Output),
		)
		return o
	}

	src, _, err := imageio.ReadPanorama(p.resolve(f.ImagePath))
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrIO, err))
	}

	baked, err := p.baker.Bake(src, t)
	if err != nil {
		return fail(err)
	}

	dst := p.resolve(o.Output)
	if err := imageio.WritePanorama(dst, baked, p.opts.Quality); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrIO, err))
	}

	if p.opts.PreviewWidth > 0 {
		preview := previewPath(dst)
		if err := imageio.WritePreview(preview, baked.ToImage(), p.opts.PreviewWidth, p.opts.PreviewQuality); err != nil {
			return fail(fmt.Errorf("%w: preview: %w", ErrIO, err))
		}
	}

	o.Status = journal.StatusBaked
	o.Duration = time.Since(start)
	log.Info("baked",
		zap.Float64("yaw", angles.Yaw),
		zap.Float64("pitch", angles.Pitch),
		zap.Float64("roll", angles.Roll),
		zap.String("output", o.Output),
		zap.Duration("duration", o.Duration),
	)
	return o
}

// processedPath is where the baked copy of image goes, in the same form
// (relative or absolute) as the collection stores paths.
func (p *Pipeline) processedPath(image string) string {
	dir := p.opts.ProcessedDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(image), "processed")
	}
	return filepath.Join(dir, filepath.Base(imageio.OutputPath(image)))
}

// resolve maps a collection path onto the filesystem.
func (p *Pipeline) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.baseDir, path)
}

// previewPath puts previews next to the processed image as JPEG.
func previewPath(processed string) string {
	name := filepath.Base(processed)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(filepath.Dir(processed), "previews", stem+".jpg")
}
