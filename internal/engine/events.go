package engine

import (
	"film-frame-tracker/internal/editor"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
	"film-frame-tracker/internal/track"
)

// EventKind names a host input.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerCancel
	Unlock
	AutoFrame
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case PointerUp:
		return "pointerup"
	case PointerCancel:
		return "pointercancel"
	case Unlock:
		return "unlock"
	case AutoFrame:
		return "autoframe"
	default:
		return "unknown"
	}
}

// Event is a host input. Point is in display-frame coordinates; Enabled is
// read by AutoFrame only.
type Event struct {
	Kind    EventKind
	Point   geom.Point
	Enabled bool
}

// Enqueue queues ev for the next tick. Safe for concurrent use.
func (e *Engine) Enqueue(ev Event) {
	e.mu.Lock()
	e.pending = append(e.pending, ev)
	e.mu.Unlock()
}

func (e *Engine) drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	evs := e.pending
	e.pending = nil
	return evs
}

// merge applies queued input after the automatic update. A grab that has
// moved is re-applied at the last pointer position even without a new
// move, so the tracker never shifts a region out from under the pointer.
func (e *Engine) merge(a *frame.Analysis) {
	moved := false
	for _, ev := range e.drain() {
		switch ev.Kind {
		case AutoFrame:
			e.setAutoFrame(ev.Enabled)
		case Unlock:
			e.unlock()
		default:
			if !e.autoFrame {
				continue
			}
			if ev.Kind == PointerMove {
				moved = true
			}
			e.pointer(a, ev)
		}
	}
	if !moved && e.dragged && e.editor.Active() {
		if r, ok := e.editor.Update(e.lastPointer); ok {
			e.tracker.Override(r, track.Manual, a)
		}
	}
}

func (e *Engine) pointer(a *frame.Analysis, ev Event) {
	switch ev.Kind {
	case PointerDown:
		e.holdLock = false
		e.dragged = false
		e.lastPointer = ev.Point
		e.pointerDown(a, ev.Point)
	case PointerMove:
		if !e.editor.Active() {
			return
		}
		e.lastPointer = ev.Point
		e.dragged = true
		if r, ok := e.editor.Update(ev.Point); ok {
			e.tracker.Override(r, track.Manual, a)
		}
	case PointerUp:
		if s, ok := e.editor.End(); ok {
			e.logger.Debug("engine: edit committed", "handle", s.Handle)
		}
		e.dragged = false
	case PointerCancel:
		if s, ok := e.editor.Cancel(); ok && e.dragged {
			e.tracker.Override(s.Origin, e.grabbedProv, a)
		}
		e.dragged = false
	}
}

func (e *Engine) pointerDown(a *frame.Analysis, p geom.Point) {
	var regions []geom.Region
	selected := -1
	cur, locked := e.tracker.Current()
	if locked {
		regions = append(regions, cur.Region)
		selected = 0
	}
	var props []geom.Region
	for _, c := range e.candidates {
		if locked && geom.IoU(c.Region, cur.Region) > e.cfg.MinIoU {
			continue
		}
		props = append(props, c.Region)
	}
	regions = append(regions, props...)

	out := e.editor.Begin(p, regions, selected)
	switch out.Action {
	case editor.ActionGrab:
		e.grabbedProv = cur.Provenance
	case editor.ActionSelect:
		t := e.tracker.Lock(out.Region, track.Detected, a)
		e.grabbedProv = t.Provenance
		e.dropCandidate(out.Region)
	case editor.ActionCreate:
		t := e.tracker.Lock(out.Region, track.Manual, a)
		e.grabbedProv = t.Provenance
	}
	e.logger.Debug("engine: pointer down", "action", out.Action, "index", out.Index, "grabbed", out.Grabbed)
}

func (e *Engine) dropCandidate(r geom.Region) {
	kept := e.candidates[:0]
	for _, c := range e.candidates {
		if c.Region != r {
			kept = append(kept, c)
		}
	}
	e.candidates = kept
}

// unlock destroys the locked region. Auto-lock stays off until the next
// pointer-down so the next detection does not immediately undo it.
func (e *Engine) unlock() {
	e.editor.Cancel()
	e.dragged = false
	e.tracker.Unlock()
	e.holdLock = true
}

func (e *Engine) setAutoFrame(on bool) {
	if on == e.autoFrame {
		return
	}
	e.autoFrame = on
	if !on {
		e.editor.Cancel()
		e.dragged = false
		e.tracker.Unlock()
		e.candidates = nil
	}
	e.logger.Debug("engine: auto frame", "enabled", on)
}

// PointerDown, PointerMove, PointerUp and PointerCancel queue pointer
// gestures in display-frame coordinates.
func (e *Engine) PointerDown(p geom.Point) { e.Enqueue(Event{Kind: PointerDown, Point: p}) }
func (e *Engine) PointerMove(p geom.Point) { e.Enqueue(Event{Kind: PointerMove, Point: p}) }
func (e *Engine) PointerUp(p geom.Point)   { e.Enqueue(Event{Kind: PointerUp, Point: p}) }
func (e *Engine) PointerCancel()           { e.Enqueue(Event{Kind: PointerCancel}) }

// Unlock queues destruction of the locked region.
func (e *Engine) Unlock() { e.Enqueue(Event{Kind: Unlock}) }

// SetAutoFrame queues the auto-frame toggle. Disabling it clears every
// region and ignores pointer input until re-enabled.
func (e *Engine) SetAutoFrame(on bool) { e.Enqueue(Event{Kind: AutoFrame, Enabled: on}) }
