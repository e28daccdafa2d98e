package track

import (
	"fmt"
	"image"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
)

// FlowTrack moves corners (analysis space, in prev) into the frame a. When
// at least minCorners survive it returns the clamped display-space bounding
// box of the survivors and the four corners of that box for the next step.
// Otherwise it returns ErrTrackingLost and no region.
func FlowTrack(flow FlowEstimator, prev *image.Gray, a *frame.Analysis, corners []geom.Point, minCorners int, minSize float64) (geom.Region, []geom.Point, error) {
	out, ok, err := flow.Estimate(prev, a.Gray, corners)
	if err != nil {
		return geom.Region{}, nil, fmt.Errorf("%w: %v", ErrTrackingLost, err)
	}
	survivors := make([]geom.Point, 0, len(out))
	for i := range out {
		if i < len(ok) && ok[i] {
			survivors = append(survivors, a.PointToDisplay(out[i]))
		}
	}
	if len(survivors) < minCorners {
		return geom.Region{}, nil, fmt.Errorf("%w: %d of %d corners", ErrTrackingLost, len(survivors), len(corners))
	}

	region := geom.Clamp(geom.Bounding(survivors), a.Display, minSize)
	next := make([]geom.Point, 4)
	for i, p := range region.Corners() {
		next[i] = a.ToAnalysis(p)
	}
	return region, next, nil
}

// Match returns the candidate overlapping prev the most, if its IoU
// exceeds minIoU.
func Match(prev geom.Region, cands detect.CandidateSet, minIoU float64) (detect.Candidate, float64, bool) {
	best := -1
	bestIoU := 0.0
	for i, c := range cands {
		if v := geom.IoU(prev, c.Region); v > bestIoU {
			best, bestIoU = i, v
		}
	}
	if best < 0 || bestIoU <= minIoU {
		return detect.Candidate{}, bestIoU, false
	}
	return cands[best], bestIoU, true
}
