// Package editor turns pointer gestures into region edits. Every region it
// returns satisfies geom.Validate against the current frame bounds.
package editor

import (
	"io"
	"log/slog"
	"math"

	"film-frame-tracker/internal/geom"
)

// Handle identifies what a grab holds on to.
type Handle int

const (
	HandleNone Handle = iota
	HandleMove
	HandleTopLeft
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
)

func (h Handle) String() string {
	switch h {
	case HandleMove:
		return "move"
	case HandleTopLeft:
		return "tl"
	case HandleTopRight:
		return "tr"
	case HandleBottomRight:
		return "br"
	case HandleBottomLeft:
		return "bl"
	default:
		return "none"
	}
}

// corner handles in geom.Region.Corners order
var cornerHandles = [4]Handle{HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft}

// Session is an in-progress grab. Origin is the region as it was at
// pointer-down; every update is computed from it, not accumulated.
type Session struct {
	Handle Handle
	Start  geom.Point
	Origin geom.Region
	// Index of the grabbed region in the list passed to Begin, or -1 for
	// a region Begin created.
	Index int
}

// Action is what a pointer-down did.
type Action int

const (
	ActionNone Action = iota
	ActionGrab
	ActionSelect
	ActionCreate
)

func (a Action) String() string {
	switch a {
	case ActionGrab:
		return "grab"
	case ActionSelect:
		return "select"
	case ActionCreate:
		return "create"
	default:
		return "none"
	}
}

// Outcome reports the effect of Begin. Region is the region now selected.
// Grabbed is true when a session was started.
type Outcome struct {
	Action  Action
	Index   int
	Region  geom.Region
	Grabbed bool
}

// Config sets the editor geometry.
type Config struct {
	MinSize float64
	// Hit box side is max(HandleMinSize, frame width * HandleFraction).
	HandleFraction float64
	HandleMinSize  float64
}

// Editor owns at most one Session.
type Editor struct {
	cfg     Config
	bounds  geom.Size
	session *Session
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Editor {
	if cfg.MinSize <= 0 {
		cfg.MinSize = geom.DefaultMinSize
	}
	if cfg.HandleFraction <= 0 {
		cfg.HandleFraction = 1.0 / 36.0
	}
	if cfg.HandleMinSize <= 0 {
		cfg.HandleMinSize = 12
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Editor{cfg: cfg, logger: logger}
}

// SetBounds updates the frame the editor clamps against.
func (e *Editor) SetBounds(s geom.Size) { e.bounds = s }

func (e *Editor) Bounds() geom.Size { return e.bounds }

// Clamp applies the region invariants for the current bounds.
func (e *Editor) Clamp(r geom.Region) geom.Region {
	return geom.Clamp(r, e.bounds, e.cfg.MinSize)
}

// HandleSize is the side of a corner hit box. It grows with the frame so
// touch targets scale with video resolution.
func (e *Editor) HandleSize() float64 {
	return math.Max(e.cfg.HandleMinSize, e.bounds.W*e.cfg.HandleFraction)
}

// HandleAt returns the corner handle of r under p, or the body, or none.
func (e *Editor) HandleAt(p geom.Point, r geom.Region) Handle {
	half := e.HandleSize() / 2
	for i, c := range r.Corners() {
		if p.X >= c.X-half && p.X <= c.X+half && p.Y >= c.Y-half && p.Y <= c.Y+half {
			return cornerHandles[i]
		}
	}
	if r.Contains(p) {
		return HandleMove
	}
	return HandleNone
}

// Active reports whether a grab is in progress.
func (e *Editor) Active() bool { return e.session != nil }

// Session returns a copy of the live session.
func (e *Editor) Session() (Session, bool) {
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Begin handles a pointer-down at p over regions, where selected indexes
// the currently selected region (or is out of range when none is).
//
// The selected region's corner handles win over its body. A press outside
// it selects the topmost other region under p and grabs its body. A press
// over nothing creates the default region. With no regions at all the
// default region is created and then hit-tested like a selected one.
func (e *Editor) Begin(p geom.Point, regions []geom.Region, selected int) Outcome {
	if e.session != nil {
		e.logger.Debug("editor: replacing unfinished grab", "handle", e.session.Handle)
		e.session = nil
	}
	if e.bounds.Empty() {
		return Outcome{Action: ActionNone, Index: -1}
	}

	if len(regions) == 0 {
		def := geom.DefaultRegion(e.bounds, e.cfg.MinSize)
		out := Outcome{Action: ActionCreate, Index: -1, Region: def}
		if h := e.HandleAt(p, def); h != HandleNone {
			e.grab(h, p, def, -1)
			out.Grabbed = true
		}
		return out
	}

	if selected >= 0 && selected < len(regions) {
		r := e.Clamp(regions[selected])
		if h := e.HandleAt(p, r); h != HandleNone {
			e.grab(h, p, r, selected)
			return Outcome{Action: ActionGrab, Index: selected, Region: r, Grabbed: true}
		}
	}

	for i := len(regions) - 1; i >= 0; i-- {
		if i == selected {
			continue
		}
		r := e.Clamp(regions[i])
		if r.Contains(p) {
			e.grab(HandleMove, p, r, i)
			return Outcome{Action: ActionSelect, Index: i, Region: r, Grabbed: true}
		}
	}

	def := geom.DefaultRegion(e.bounds, e.cfg.MinSize)
	e.logger.Debug("editor: created default region", "region", def)
	return Outcome{Action: ActionCreate, Index: -1, Region: def}
}

func (e *Editor) grab(h Handle, p geom.Point, r geom.Region, idx int) {
	e.session = &Session{Handle: h, Start: p, Origin: r, Index: idx}
	e.logger.Debug("editor: grab", "handle", h, "index", idx, "region", r)
}

// Update applies the pointer at p to the live grab and returns the edited
// region. It returns false when no grab is in progress.
func (e *Editor) Update(p geom.Point) (geom.Region, bool) {
	if e.session == nil {
		return geom.Region{}, false
	}
	return e.Clamp(Drag(e.session.Handle, e.session.Origin, p.X-e.session.Start.X, p.Y-e.session.Start.Y, e.bounds, e.cfg.MinSize)), true
}

// End finishes the grab.
func (e *Editor) End() (Session, bool) {
	s, ok := e.Session()
	e.session = nil
	return s, ok
}

// Cancel abandons the grab and returns the region as it was at grab time.
func (e *Editor) Cancel() (Session, bool) {
	s, ok := e.Session()
	if ok {
		e.logger.Debug("editor: grab cancelled", "handle", s.Handle)
	}
	e.session = nil
	return s, ok
}

// Drag moves or resizes origin by (dx, dy). A move translates x and y only.
// A corner moves its own two edges; the opposite edges stay fixed, and the
// moving edges stop at the frame and at minSize from the fixed ones.
func Drag(h Handle, origin geom.Region, dx, dy float64, frame geom.Size, minSize float64) geom.Region {
	if h == HandleMove {
		origin.X += dx
		origin.Y += dy
		return origin
	}

	floorW := math.Min(minSize, frame.W)
	floorH := math.Min(minSize, frame.H)
	left, top, right, bottom := origin.X, origin.Y, origin.Right(), origin.Bottom()

	switch h {
	case HandleTopLeft:
		left = clampf(left+dx, 0, right-floorW)
		top = clampf(top+dy, 0, bottom-floorH)
	case HandleTopRight:
		right = clampf(right+dx, left+floorW, frame.W)
		top = clampf(top+dy, 0, bottom-floorH)
	case HandleBottomRight:
		right = clampf(right+dx, left+floorW, frame.W)
		bottom = clampf(bottom+dy, top+floorH, frame.H)
	case HandleBottomLeft:
		left = clampf(left+dx, 0, right-floorW)
		bottom = clampf(bottom+dy, top+floorH, frame.H)
	default:
		return origin
	}
	return geom.Region{X: left, Y: top, W: right - left, H: bottom - top}
}

// clampf bounds v to [lo, hi]; lo wins when the range is empty.
func clampf(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
