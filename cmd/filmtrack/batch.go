package main

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"film-frame-tracker/internal/config"
	"film-frame-tracker/internal/cropbox"
	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/engine"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
	"film-frame-tracker/internal/overlay"

	"github.com/disintegration/imaging"
)

// passSpread is the aggressiveness offset of the extra detection passes
// around the configured value.
const passSpread = 20.0

type batchOptions struct {
	DryRun    bool
	Enforce32 bool
	Overwrite bool
	OutputDir string
	DebugDir  string
	Style     overlay.Style
}

// stillResult is what one still produced.
type stillResult struct {
	Bounds  cropbox.Bounds
	Found   bool
	OutPath string
}

type batch struct {
	cfg     *config.Config
	opts    batchOptions
	det     detect.Detector
	sampler *frame.Sampler
	logger  *slog.Logger
	stdout  io.Writer
}

func newBatch(cfg *config.Config, opts batchOptions, det detect.Detector, logger *slog.Logger, stdout io.Writer) *batch {
	if opts.Style == (overlay.Style{}) {
		opts.Style = overlay.DefaultStyle()
	}
	return &batch{
		cfg:     cfg,
		opts:    opts,
		det:     det,
		sampler: frame.NewSampler(cfg.AnalysisWidth),
		logger:  logger,
		stdout:  stdout,
	}
}

// run processes every file and keeps going past failures. It returns the
// number of files that failed.
func (b *batch) run(files []string) int {
	total := len(files)
	failed := 0
	for idx, filename := range files {
		status := fmt.Sprintf("[%d/%d] ", idx+1, total)
		res, err := b.processSafe(filename)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%sWARNING: Skipping '%s': %v\n", status, filename, err)
			continue
		}

		pct := int(math.Round(res.Bounds.Retained() * 100))
		var line string
		if b.opts.DryRun {
			line = fmt.Sprintf("%swould crop to %d%% (%s)", status, pct, filepath.Base(filename))
		} else {
			dest := res.OutPath
			if dest == "" {
				dest = "(no output)"
			}
			line = fmt.Sprintf("%scropped image to %d%% -> %s", status, pct, dest)
		}
		fmt.Fprintln(b.stdout, line)
	}
	return failed
}

// processSafe turns a panic from the image stack into an error so one bad
// file does not end the batch.
func (b *batch) processSafe(filename string) (res stillResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.process(filename)
}

func (b *batch) process(filename string) (stillResult, error) {
	img, err := imaging.Open(filename, imaging.AutoOrientation(true))
	if err != nil {
		return stillResult{}, fmt.Errorf("open: %w", err)
	}
	bounds := img.Bounds()
	b.logger.Debug("still loaded", "file", filename, "width", bounds.Dx(), "height", bounds.Dy())

	a := b.sampler.Analyze(frame.Frame{Image: img, Seq: 1})
	region, found := b.locate(a)

	res := stillResult{Bounds: cropbox.Full, Found: found}
	if found {
		region = cropbox.Inset(region)
		res.Bounds = cropbox.FromRegion(region, a.Display)
		if b.opts.Enforce32 {
			var decision string
			res.Bounds, decision = cropbox.Enforce32(res.Bounds, bounds.Dx(), bounds.Dy())
			b.logger.Debug("aspect enforced", "file", filename, "decision", decision)
		}
		prev := res.Bounds
		res.Bounds = cropbox.ShrinkUniform(res.Bounds, cropbox.ShrinkPercent)
		b.logger.Debug("final shrink", "from", prev, "to", res.Bounds)

		if b.cfg.Debug || b.opts.DebugDir != "" {
			if err := b.writeAnalysis(filename, img, region, a.Display); err != nil {
				b.logger.Warn("analysis image not written", "file", filename, "error", err)
			}
		}
	} else {
		b.logger.Debug("no frame found", "file", filename)
	}

	values := res.Bounds.Values()
	for _, v := range values {
		fmt.Fprintln(b.stdout, v)
	}
	if err := cropbox.WriteCropFile(filename+".txt", values); err != nil {
		b.logger.Warn("crop data not written", "file", filename, "error", err)
	}

	if b.opts.DryRun {
		return res, nil
	}
	rect := res.Bounds.Pixels(bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return res, nil
	}
	res.OutPath = outputPath(filename, b.opts.OutputDir, b.opts.Overwrite)
	if err := os.MkdirAll(filepath.Dir(res.OutPath), 0o755); err != nil {
		return res, fmt.Errorf("output dir: %w", err)
	}
	if err := imaging.Save(imaging.Crop(img, rect.Add(bounds.Min)), res.OutPath); err != nil {
		return res, fmt.Errorf("save: %w", err)
	}
	b.logger.Debug("wrote cropped", "path", res.OutPath, "rect", rect)
	return res, nil
}

// locate runs detection at the configured aggressiveness and at a stricter
// and a looser setting, then takes the edge-wise median of what was found.
func (b *batch) locate(a *frame.Analysis) (geom.Region, bool) {
	var found []geom.Region
	for _, agg := range []float64{b.cfg.Aggressiveness - passSpread, b.cfg.Aggressiveness, b.cfg.Aggressiveness + passSpread} {
		best, ok := b.det.Detect(a, detect.FromAggressiveness(agg), 1).Best()
		if !ok {
			continue
		}
		found = append(found, best.Region)
	}
	region, ok := cropbox.MedianRegion(found)
	if !ok {
		return geom.Region{}, false
	}
	b.logger.Debug("passes combined", "found", len(found), "region", region)
	return geom.Clamp(region, a.Display, b.cfg.MinRegionSize), true
}

// writeAnalysis saves img with the located region drawn on it.
func (b *batch) writeAnalysis(filename string, img image.Image, region geom.Region, display geom.Size) error {
	snap := engine.Snapshot{
		Width:    display.W,
		Height:   display.H,
		Selected: 0,
		Regions: []engine.Published{{
			X: region.X, Y: region.Y, W: region.W, H: region.H,
			Provenance: "detected",
			Locked:     true,
		}},
	}
	path := analysisPath(filename, b.opts.DebugDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := overlay.Render(img, snap, b.opts.Style)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return imaging.Save(out, path)
}
