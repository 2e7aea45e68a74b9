package mask

import (
	"fmt"
	"math"
)

// Plan records the geometry of one pass through the inpainting engine.
type Plan struct {
	Width, Height             int // source size
	Scale                     float64
	ScaledWidth, ScaledHeight int
	PadRight, PadBottom       int
}

// NewPlan computes the working size for a w×h image: a uniform downscale when
// the longer edge exceeds maxDim, then padding up to a multiple of stride.
func NewPlan(w, h, maxDim, stride int) Plan {
	if stride < 1 {
		stride = 1
	}
	p := Plan{Width: w, Height: h, Scale: 1, ScaledWidth: w, ScaledHeight: h}

	if long := max(w, h); maxDim > 0 && long > maxDim {
		p.Scale = float64(maxDim) / float64(long)
		p.ScaledWidth = max(1, int(math.Round(float64(w)*p.Scale)))
		p.ScaledHeight = max(1, int(math.Round(float64(h)*p.Scale)))
	}

	p.PadRight = roundUp(p.ScaledWidth, stride) - p.ScaledWidth
	p.PadBottom = roundUp(p.ScaledHeight, stride) - p.ScaledHeight
	return p
}

// Resized reports whether the image is resampled before inpainting.
func (p Plan) Resized() bool {
	return p.Scale != 1
}

// PaddedSize returns the size handed to the inpainter.
func (p Plan) PaddedSize() (int, int) {
	return p.ScaledWidth + p.PadRight, p.ScaledHeight + p.PadBottom
}

func (p Plan) String() string {
	pw, ph := p.PaddedSize()
	return fmt.Sprintf("%dx%d -> %dx%d (x%.3f) -> %dx%d", p.Width, p.Height,
		p.ScaledWidth, p.ScaledHeight, p.Scale, pw, ph)
}

func roundUp(v, stride int) int {
	return (v + stride - 1) / stride * stride
}
