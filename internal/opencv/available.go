//go:build !nocv

package opencv

// Available reports whether the OpenCV-backed components are compiled in.
func Available() bool { return true }
