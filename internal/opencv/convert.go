package opencv

import "image"

// bgrInto copies packed 8-bit BGR (channels 3) or BGRA (channels 4) pixels
// into dst as opaque RGBA. dst is reallocated only when the size changes;
// the buffer in use is returned.
func bgrInto(dst *image.RGBA, data []byte, w, h, channels int) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	n := min(w*h, len(data)/channels)
	pix := dst.Pix
	for i := 0; i < n; i++ {
		s, d := i*channels, i*4
		pix[d] = data[s+2]
		pix[d+1] = data[s+1]
		pix[d+2] = data[s]
		pix[d+3] = 0xff
	}
	return dst
}
