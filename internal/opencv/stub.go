//go:build nocv

package opencv

import (
	"context"
	"image"
	"log/slog"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/frame"
	"film-frame-tracker/internal/geom"
)

func Available() bool { return false }

type ContourDetector struct{}

func NewContourDetector(*slog.Logger, bool) *ContourDetector { return &ContourDetector{} }

func (d *ContourDetector) Name() string { return "contour (unavailable)" }

func (d *ContourDetector) Detect(*frame.Analysis, detect.Params, int) detect.CandidateSet {
	return nil
}

func (d *ContourDetector) Close() error { return nil }

type LKFlow struct{}

func NewLKFlow() *LKFlow { return &LKFlow{} }

func (f *LKFlow) Estimate(_, _ *image.Gray, _ []geom.Point) ([]geom.Point, []bool, error) {
	return nil, nil, ErrUnavailable
}

func (f *LKFlow) Close() error { return nil }

type VideoSource struct{}

func OpenVideoSource(string) (*VideoSource, error) { return nil, ErrUnavailable }

func (v *VideoSource) Next(context.Context) (frame.Frame, error) {
	return frame.Frame{}, ErrUnavailable
}

func (v *VideoSource) Close() error { return nil }
