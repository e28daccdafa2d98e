// Package detect locates candidate film-frame regions in analysis frames.
//
// Two heuristics satisfy the Detector interface: EdgeDensity, a
// dependency-free gradient bounding box used when OpenCV is missing, and
// the contour detector in package opencv. The host picks one at start-up.
package detect

import (
	"image"
	"sort"

	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
)

// Candidate is a detected region in display space with its ranking score.
type Candidate struct {
	Region geom.Region
	Score  float64
}

// CandidateSet is ordered best first.
type CandidateSet []Candidate

// Regions copies out the regions in rank order.
func (cs CandidateSet) Regions() []geom.Region {
	out := make([]geom.Region, len(cs))
	for i, c := range cs {
		out[i] = c.Region
	}
	return out
}

// Best returns the top candidate.
func (cs CandidateSet) Best() (Candidate, bool) {
	if len(cs) == 0 {
		return Candidate{}, false
	}
	return cs[0], true
}

// Detector finds candidate regions. An empty set is a valid negative
// result. Implementations must not retain a.Gray past the call.
type Detector interface {
	Name() string
	Detect(a *frame.Analysis, p Params, limit int) CandidateSet
	Close() error
}

// Rank sorts by score descending and truncates to limit. Ties fall back to
// position so repeated runs order identically.
func Rank(cs CandidateSet, limit int) CandidateSet {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		if cs[i].Region.Y != cs[j].Region.Y {
			return cs[i].Region.Y < cs[j].Region.Y
		}
		return cs[i].Region.X < cs[j].Region.X
	})
	if limit > 0 && len(cs) > limit {
		cs = cs[:limit]
	}
	return cs
}

// RectRegion converts an integer image rectangle to a Region.
func RectRegion(r image.Rectangle) geom.Region {
	return geom.Region{X: float64(r.Min.X), Y: float64(r.Min.Y), W: float64(r.Dx()), H: float64(r.Dy())}
}
