// Package opencv holds the gocv-backed parts of the engine: the contour
// detector, sparse optical flow and live video capture.
//
// Building with the nocv tag replaces them with stubs so the rest of the
// engine runs on the dependency-free detector without OpenCV installed.
package opencv

import "errors"

var ErrUnavailable = errors.New("opencv support not built in")
