// Package engine drives one detection, tracking and editing pass per
// frame and publishes the resulting region set.
//
// Tick is the only writer of engine state. Hosts feed pointer gestures and
// commands through Enqueue from any goroutine; they are applied at the end
// of the next tick, after the automatic update, so a manual edit always
// wins over the tracker in the same tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"film-frame-tracker/internal/config"
	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/editor"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
	"film-frame-tracker/internal/track"
)

// Options wires an Engine. Flow may be nil when optical flow is unavailable.
type Options struct {
	Config   *config.Config
	Source   frame.Source
	Detector detect.Detector
	Flow     track.FlowEstimator
	Logger   *slog.Logger
	// Now defaults to time.Now; tests inject a fake clock for the
	// detection interval.
	Now func() time.Time
}

// Engine is the orchestrator.
type Engine struct {
	cfg     *config.Config
	src     frame.Source
	det     detect.Detector
	sampler *frame.Sampler
	tracker *track.Tracker
	editor  *editor.Editor
	logger  *slog.Logger
	now     func() time.Time

	tick        uint64
	detected    bool
	lastDetect  time.Time
	detectTick  uint64
	candidates  detect.CandidateSet
	frameSize   geom.Size
	autoFrame   bool
	holdLock    bool
	grabbedProv track.Provenance
	lastPointer geom.Point
	dragged     bool

	mu       sync.Mutex
	params   detect.Params
	pending  []Event
	snapshot Snapshot
}

func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: nil frame source")
	}
	if opts.Detector == nil {
		return nil, errors.New("engine: nil detector")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		cfg:     cfg,
		src:     opts.Source,
		det:     opts.Detector,
		sampler: frame.NewSampler(cfg.AnalysisWidth),
		tracker: track.New(track.Config{
			MinIoU:     cfg.MinIoU,
			MinCorners: cfg.MinCorners,
			MinSize:    cfg.MinRegionSize,
			PinManual:  cfg.PinManual,
		}, opts.Flow, logger),
		editor: editor.New(editor.Config{
			MinSize:        cfg.MinRegionSize,
			HandleFraction: cfg.HandleFraction,
			HandleMinSize:  cfg.HandleMinSize,
		}, logger),
		logger:    logger,
		now:       now,
		autoFrame: true,
		params:    detect.FromAggressiveness(cfg.Aggressiveness),
		snapshot:  Snapshot{Selected: -1, AutoFrame: true},
	}
	logger.Info("engine ready", "detector", opts.Detector.Name(), "optical_flow", opts.Flow != nil,
		"aggressiveness", cfg.Aggressiveness, "max_candidates", cfg.Candidates())
	return e, nil
}

// SetAggressiveness updates the detection parameters used from the next
// detection on and returns them.
func (e *Engine) SetAggressiveness(v float64) detect.Params {
	p := detect.FromAggressiveness(v)
	e.mu.Lock()
	e.params = p
	e.mu.Unlock()
	e.logger.Debug("engine: aggressiveness", "value", p.Aggressiveness)
	return p
}

// Params returns the current detection parameters.
func (e *Engine) Params() detect.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Snapshot returns the region set published by the last tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.clone()
}

// Tick pulls one frame and advances detection, tracking and edits.
// Source errors, including frame.ErrEndOfStream, are returned unchanged.
func (e *Engine) Tick(ctx context.Context) (Snapshot, error) {
	f, err := e.src.Next(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	e.tick++
	a := e.sampler.Analyze(f)
	e.resize(a)

	if !e.autoFrame {
		e.merge(a)
		return e.publish(a), nil
	}

	var (
		tickCands detect.CandidateSet
		ran       bool
	)
	detectNow := func() detect.CandidateSet {
		if !ran {
			tickCands = e.runDetect(a)
			ran = true
		}
		return tickCands
	}

	if _, ok := e.tracker.Current(); ok {
		res := e.tracker.Step(a, detectNow)
		if res.State == track.Lost {
			e.recover(a, detectNow())
		}
	} else {
		if e.detectDue() {
			detectNow()
		}
		if ran {
			e.autoLock(a, tickCands)
		}
	}
	if ran {
		e.candidates = tickCands
	} else if _, ok := e.tracker.Current(); ok {
		// proposals are only refreshed while nothing is locked
		e.candidates = nil
	}

	e.merge(a)
	return e.publish(a), nil
}

// Run ticks every interval until ctx ends or the source is exhausted,
// handing each snapshot to publish.
func (e *Engine) Run(ctx context.Context, interval time.Duration, publish func(Snapshot)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := e.Tick(ctx)
			if errors.Is(err, frame.ErrEndOfStream) {
				return nil
			}
			if err != nil {
				return err
			}
			if publish != nil {
				publish(snap)
			}
		}
	}
}

// Close releases the tracker, detector, sampler and source.
func (e *Engine) Close() error {
	e.tracker.Close()
	e.sampler.Release()
	err := e.det.Close()
	if srcErr := e.src.Close(); err == nil {
		err = srcErr
	}
	return err
}

func (e *Engine) runDetect(a *frame.Analysis) detect.CandidateSet {
	cs := e.det.Detect(a, e.Params(), e.cfg.Candidates())
	e.detected = true
	e.lastDetect = e.now()
	e.detectTick = e.tick
	e.logger.Debug("engine: detection", "seq", a.Seq, "candidates", len(cs))
	return cs
}

// detectDue applies the detection cadence: once per DetectInterval when
// one is configured, otherwise once per DetectEveryTicks ticks.
func (e *Engine) detectDue() bool {
	if !e.detected {
		return true
	}
	if iv := e.cfg.DetectInterval(); iv > 0 {
		return e.now().Sub(e.lastDetect) >= iv
	}
	return e.tick-e.detectTick >= uint64(e.cfg.DetectEveryTicks)
}

func (e *Engine) autoLock(a *frame.Analysis, cs detect.CandidateSet) bool {
	if !e.cfg.AutoLock || e.holdLock || e.editor.Active() {
		return false
	}
	best, ok := cs.Best()
	if !ok {
		return false
	}
	e.tracker.Lock(e.editor.Clamp(best.Region), track.Detected, a)
	return true
}

// recover runs after the tracker destroyed its region: lock the best
// fresh candidate, or fall back to the default region when configured.
func (e *Engine) recover(a *frame.Analysis, cs detect.CandidateSet) {
	if e.autoLock(a, cs) {
		return
	}
	if e.cfg.DefaultOnLoss && !e.holdLock {
		e.tracker.Lock(geom.DefaultRegion(a.Display, e.cfg.MinRegionSize), track.Manual, a)
		e.logger.Debug("engine: substituted default region")
	}
}

// resize updates the editor bounds and re-clamps the live region when the
// display frame changes size.
func (e *Engine) resize(a *frame.Analysis) {
	if a.Display == e.frameSize {
		return
	}
	if !e.frameSize.Empty() {
		e.logger.Debug("engine: frame size changed", "from", e.frameSize, "to", a.Display)
	}
	e.frameSize = a.Display
	e.editor.SetBounds(a.Display)
	e.candidates = nil
	if cur, ok := e.tracker.Current(); ok {
		e.tracker.Override(e.editor.Clamp(cur.Region), cur.Provenance, a)
	}
}

// publish builds the snapshot: the locked region first, then the proposals
// that do not duplicate it. Any region failing validation is dropped and
// logged, since none should ever reach this point.
func (e *Engine) publish(a *frame.Analysis) Snapshot {
	snap := Snapshot{
		Seq:       a.Seq,
		Width:     a.Display.W,
		Height:    a.Display.H,
		Selected:  -1,
		AutoFrame: e.autoFrame,
		Editing:   e.editor.Active(),
	}
	e.mu.Lock()
	snap.Aggressiveness = e.params.Aggressiveness
	e.mu.Unlock()

	cur, locked := e.tracker.Current()
	if locked {
		if err := geom.Validate(cur.Region, a.Display, e.cfg.MinRegionSize); err != nil {
			e.logger.Error("engine: dropping locked region", "error", err)
		} else {
			snap.Regions = append(snap.Regions, publishedFrom(cur))
			snap.Selected = 0
		}
	}
	for _, c := range e.candidates {
		if locked && geom.IoU(c.Region, cur.Region) > e.cfg.MinIoU {
			continue
		}
		r := e.editor.Clamp(c.Region)
		if err := geom.Validate(r, a.Display, e.cfg.MinRegionSize); err != nil {
			e.logger.Error("engine: dropping candidate", "error", err)
			continue
		}
		snap.Regions = append(snap.Regions, Published{
			X: r.X, Y: r.Y, W: r.W, H: r.H,
			Provenance: "candidate",
			Score:      c.Score,
		})
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
	return snap.clone()
}
