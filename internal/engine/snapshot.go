package engine

import (
	"film-frame-tracker/internal/geom"
	"film-frame-tracker/internal/track"
)

// Published is one region in a Snapshot, in display-frame coordinates.
type Published struct {
	ID         string  `json:"id,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Provenance string  `json:"provenance"`
	Locked     bool    `json:"locked"`
	Score      float64 `json:"score,omitempty"`
}

func (p Published) Region() geom.Region {
	return geom.Region{X: p.X, Y: p.Y, W: p.W, H: p.H}
}

func publishedFrom(t track.TrackedRegion) Published {
	return Published{
		ID:         t.ID.String(),
		X:          t.Region.X,
		Y:          t.Region.Y,
		W:          t.Region.W,
		H:          t.Region.H,
		Provenance: t.Provenance.String(),
		Locked:     true,
	}
}

// Snapshot is the region set published after a tick. At most one region
// is locked and, when present, it comes first and is Selected.
type Snapshot struct {
	Seq            uint64      `json:"seq"`
	Width          float64     `json:"width"`
	Height         float64     `json:"height"`
	Regions        []Published `json:"regions"`
	Selected       int         `json:"selected"`
	AutoFrame      bool        `json:"auto_frame"`
	Editing        bool        `json:"editing"`
	Aggressiveness float64     `json:"aggressiveness"`
}

// Locked returns the locked region, if any.
func (s Snapshot) Locked() (Published, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Regions) {
		return Published{}, false
	}
	return s.Regions[s.Selected], true
}

// FrameSize is the display frame the regions refer to.
func (s Snapshot) FrameSize() geom.Size {
	return geom.Size{W: s.Width, H: s.Height}
}

func (s Snapshot) clone() Snapshot {
	if s.Regions != nil {
		s.Regions = append([]Published(nil), s.Regions...)
	}
	return s
}
