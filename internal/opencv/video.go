//go:build !nocv

package opencv

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"film-frame-tracker/internal/frame"

	"gocv.io/x/gocv"
)

// VideoSource reads frames from a capture device or a video file. The
// frame image is owned by the source and overwritten by the next call.
type VideoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	rgba    *image.RGBA
	seq     uint64
}

// OpenVideoSource opens a numeric device id or a file path.
func OpenVideoSource(device string) (*VideoSource, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(device); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.VideoCaptureFile(device)
	}
	if err != nil {
		return nil, fmt.Errorf("open video %q: %w", device, err)
	}
	return &VideoSource{capture: capture, mat: gocv.NewMat()}, nil
}

func (v *VideoSource) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		return frame.Frame{}, frame.ErrEndOfStream
	}
	img, err := v.convert()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("convert frame: %w", err)
	}
	v.seq++
	return frame.Frame{Image: img, Seq: v.seq, CapturedAt: time.Now()}, nil
}

// convert converts the captured Mat into the reused RGBA buffer. Types other
// than 8-bit BGR or BGRA go through gocv's allocating conversion.
func (v *VideoSource) convert() (image.Image, error) {
	ch := v.mat.Channels()
	if t := v.mat.Type(); t != gocv.MatTypeCV8UC3 && t != gocv.MatTypeCV8UC4 {
		return v.mat.ToImage()
	}
	data, err := v.mat.DataPtrUint8()
	if err != nil {
		return nil, err
	}
	v.rgba = bgrInto(v.rgba, data, v.mat.Cols(), v.mat.Rows(), ch)
	return v.rgba, nil
}

func (v *VideoSource) Close() error {
	v.mat.Close()
	return v.capture.Close()
}
