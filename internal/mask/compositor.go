package mask

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/system"
)

// Compositor runs the scale, pad, inpaint, crop, upscale and composite steps
// for one page per call. It holds no per-call state and may be shared.
type Compositor struct {
	MaxDim    int
	Stride    int
	Padding   int // mask dilation in pixels
	Inpainter Inpainter
	Pool      *system.ImagePool // optional canvas reuse
}

// NewCompositor returns a compositor with the default working size and stride.
func NewCompositor(inp Inpainter, pool *system.ImagePool) *Compositor {
	return &Compositor{
		MaxDim:    DefaultMaxDim,
		Stride:    DefaultStride,
		Inpainter: inp,
		Pool:      pool,
	}
}

// Inpaint erases regions from img. An empty region list still runs the whole
// pipeline and returns a copy of img.
func (c *Compositor) Inpaint(ctx context.Context, img image.Image, regions []geometry.Box) (*image.RGBA, error) {
	if c.Inpainter == nil {
		return nil, errors.New("mask: no inpainter configured")
	}

	src := ToRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	fullMask := BuildMask(w, h, regions, c.Padding)

	stride := c.Stride
	if stride <= 0 {
		stride = DefaultStride
	}
	plan := NewPlan(w, h, c.MaxDim, stride)
	pw, ph := plan.PaddedSize()
	padded := image.Rect(0, 0, pw, ph)
	content := image.Rect(0, 0, plan.ScaledWidth, plan.ScaledHeight)

	canvas := c.Pool.Get(padded)
	defer c.Pool.Put(canvas)
	draw.Draw(canvas, padded, &image.Uniform{C: padGray}, image.Point{}, draw.Src)

	maskCanvas := c.Pool.GetGray(padded)
	defer c.Pool.PutGray(maskCanvas)
	clear(maskCanvas.Pix)

	if plan.Resized() {
		draw.CatmullRom.Scale(canvas, content, src, src.Rect, draw.Src, nil)
		draw.NearestNeighbor.Scale(maskCanvas, content, fullMask, fullMask.Rect, draw.Src, nil)
	} else {
		draw.Draw(canvas, content, src, image.Point{}, draw.Src)
		draw.Draw(maskCanvas, content, fullMask, image.Point{}, draw.Src)
	}

	out, err := c.Inpainter.Inpaint(ctx, canvas, maskCanvas)
	if err != nil {
		return nil, fmt.Errorf("inpaint %s: %w", plan, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil image", ErrUnexpectedResult)
	}
	if got := out.Bounds().Size(); got != padded.Size() {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrUnexpectedResult, got, padded.Size())
	}

	// Crop by the recorded pad amounts. The copy also detaches the result
	// from the pooled canvas the inpainter may have returned.
	ob := out.Bounds()
	crop := image.Rect(0, 0, ob.Dx()-plan.PadRight, ob.Dy()-plan.PadBottom)
	restored := image.NewRGBA(crop)
	draw.Draw(restored, crop, out, ob.Min, draw.Src)

	if plan.Resized() {
		full := image.NewRGBA(src.Rect)
		draw.CatmullRom.Scale(full, full.Rect, restored, restored.Rect, draw.Src, nil)
		restored = full
	}

	return Composite(src, restored, fullMask), nil
}
