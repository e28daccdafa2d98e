// Package track keeps the identity of one locked region across frames.
//
// Each step first tries sparse optical flow on the region's four corners.
// When too few corners survive, or no flow estimator is available, it
// falls back to matching fresh detector candidates by IoU. When that also
// fails the region is gone, unless it was placed by the operator and
// pinning is enabled.
package track

import (
	"errors"
	"image"
	"io"
	"log/slog"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"

	"github.com/google/uuid"
)

var ErrTrackingLost = errors.New("tracking lost")

// Defaults for the fallback heuristics.
const (
	DefaultMinIoU     = 0.2
	DefaultMinCorners = 3
)

// Provenance records which write path produced a region's current geometry.
type Provenance int

const (
	Detected Provenance = iota
	Tracked
	Manual
)

func (p Provenance) String() string {
	switch p {
	case Detected:
		return "detected"
	case Tracked:
		return "tracked"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// State of the tracker after a step.
type State int

const (
	Idle State = iota
	Tracking
	Lost
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// TrackedRegion is the locked region with its identity and provenance.
type TrackedRegion struct {
	ID         uuid.UUID
	Region     geom.Region
	Provenance Provenance
}

// FlowEstimator moves points from prev into next. ok[i] reports whether
// point i was followed.
type FlowEstimator interface {
	Estimate(prev, next *image.Gray, pts []geom.Point) (out []geom.Point, ok []bool, err error)
}

// Config holds the tracker thresholds.
type Config struct {
	MinIoU     float64
	MinCorners int
	MinSize    float64
	// PinManual keeps an operator-placed region in place when neither flow
	// nor overlap matching can follow it, instead of destroying it.
	PinManual bool
}

// Step outcomes.
type Result struct {
	State  State
	Region TrackedRegion
	// Method is "flow", "iou", "pinned" or empty when nothing happened.
	Method string
}

// Tracker owns the single live TrackedRegion, its corner points and a
// copy of the previous analysis frame.
type Tracker struct {
	cfg    Config
	flow   FlowEstimator
	logger *slog.Logger

	current *TrackedRegion
	corners []geom.Point // analysis space
	prev    *image.Gray
}

// New creates a tracker. flow may be nil when optical flow is unavailable.
func New(cfg Config, flow FlowEstimator, logger *slog.Logger) *Tracker {
	if cfg.MinIoU <= 0 {
		cfg.MinIoU = DefaultMinIoU
	}
	if cfg.MinCorners <= 0 {
		cfg.MinCorners = DefaultMinCorners
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = geom.DefaultMinSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{cfg: cfg, flow: flow, logger: logger}
}

// Current returns a copy of the live region.
func (t *Tracker) Current() (TrackedRegion, bool) {
	if t.current == nil {
		return TrackedRegion{}, false
	}
	return *t.current, true
}

// Lock starts tracking r under a new identity. a, when non-nil, seeds the
// corner state from the frame r was found in.
func (t *Tracker) Lock(r geom.Region, p Provenance, a *frame.Analysis) TrackedRegion {
	t.current = &TrackedRegion{ID: uuid.New(), Region: r, Provenance: p}
	t.seed(a)
	t.logger.Debug("track: locked", "id", t.current.ID, "region", r, "provenance", p)
	return *t.current
}

// Override replaces the live geometry while keeping its identity. It is
// the write path for operator edits. Without a live region it locks a new one.
func (t *Tracker) Override(r geom.Region, p Provenance, a *frame.Analysis) TrackedRegion {
	if t.current == nil {
		return t.Lock(r, p, a)
	}
	t.current.Region = r
	t.current.Provenance = p
	t.seed(a)
	return *t.current
}

// Unlock destroys the live region and all flow state.
func (t *Tracker) Unlock() {
	if t.current != nil {
		t.logger.Debug("track: unlocked", "id", t.current.ID)
	}
	t.current = nil
	t.dropFlow()
}

// Step advances the live region into a. detectFn is called lazily, only
// when the IoU fallback needs candidates.
func (t *Tracker) Step(a *frame.Analysis, detectFn func() detect.CandidateSet) Result {
	if t.current == nil {
		return Result{State: Idle}
	}

	if t.flow != nil && t.corners != nil && t.prev != nil {
		region, corners, err := FlowTrack(t.flow, t.prev, a, t.corners, t.cfg.MinCorners, t.cfg.MinSize)
		if err == nil {
			t.current.Region = region
			t.current.Provenance = trackedFrom(t.current.Provenance)
			t.corners = corners
			t.keepFrame(a.Gray)
			return Result{State: Tracking, Region: *t.current, Method: "flow"}
		}
		t.logger.Debug("track: optical flow lost", "id", t.current.ID, "error", err)
		t.dropFlow()
	}

	var cands detect.CandidateSet
	if detectFn != nil {
		cands = detectFn()
	}
	if best, score, ok := Match(t.current.Region, cands, t.cfg.MinIoU); ok {
		t.current.Region = geom.Clamp(best.Region, a.Display, t.cfg.MinSize)
		t.current.Provenance = Tracked
		t.seed(a)
		t.logger.Debug("track: re-acquired by overlap", "id", t.current.ID, "iou", score)
		return Result{State: Tracking, Region: *t.current, Method: "iou"}
	}

	if t.current.Provenance == Manual && t.cfg.PinManual {
		t.seed(a)
		return Result{State: Tracking, Region: *t.current, Method: "pinned"}
	}

	lost := *t.current
	t.logger.Debug("track: region destroyed", "id", lost.ID, "candidates", len(cands))
	t.current = nil
	t.dropFlow()
	return Result{State: Lost, Region: lost}
}

// Manual regions keep their provenance while flow merely follows jitter.
func trackedFrom(p Provenance) Provenance {
	if p == Manual {
		return Manual
	}
	return Tracked
}

// Close releases the cached frame and corner state.
func (t *Tracker) Close() error {
	t.dropFlow()
	return nil
}

func (t *Tracker) seed(a *frame.Analysis) {
	if t.flow == nil || a == nil || t.current == nil {
		return
	}
	c := t.current.Region.Corners()
	if t.corners == nil {
		t.corners = make([]geom.Point, 4)
	}
	for i, p := range c {
		t.corners[i] = a.ToAnalysis(p)
	}
	t.keepFrame(a.Gray)
}

// keepFrame copies g into the owned previous-frame buffer, reallocating
// only on a size change.
func (t *Tracker) keepFrame(g *image.Gray) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if t.prev == nil || t.prev.Rect.Dx() != w || t.prev.Rect.Dy() != h {
		t.prev = image.NewGray(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		copy(t.prev.Pix[y*t.prev.Stride:y*t.prev.Stride+w], g.Pix[g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y):])
	}
}

func (t *Tracker) dropFlow() {
	t.corners = nil
	t.prev = nil
}
