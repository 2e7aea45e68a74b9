// Package mask erases text regions from a page through a stride-constrained
// inpainting engine. Pages are scaled down to the engine's working size,
// padded to its stride, inpainted, then cropped, scaled back and composited
// over the original with the full-resolution mask.
package mask

import (
	"context"
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ivlev/mangatl/internal/geometry"
)

const (
	DefaultMaxDim = 896
	DefaultStride = 8

	// Erase marks a mask pixel to be repainted.
	Erase = 255
)

// padGray is the neutral fill for image padding.
var padGray = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// ErrUnexpectedResult is returned when an inpainter yields no image or an
// image of the wrong size.
var ErrUnexpectedResult = errors.New("unexpected inpaint result")

// Inpainter fills the masked pixels of img. Both inputs have the same
// stride-aligned size and the result must match it.
type Inpainter interface {
	Inpaint(ctx context.Context, img *image.RGBA, mask *image.Gray) (image.Image, error)
}

// InpainterFunc adapts a function to Inpainter.
type InpainterFunc func(ctx context.Context, img *image.RGBA, mask *image.Gray) (image.Image, error)

func (f InpainterFunc) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Gray) (image.Image, error) {
	return f(ctx, img, mask)
}

// BuildMask returns a w×h mask with Erase inside every region grown by
// padding pixels. Regions are covered outward to whole pixels and clipped
// to the mask.
func BuildMask(w, h int, regions []geometry.Box, padding int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range regions {
		r = r.Pad(float64(padding)).Clip(m.Rect)
		if r.Empty() {
			continue
		}
		draw.Draw(m, r.Rect(), &image.Uniform{C: color.Gray{Y: Erase}}, image.Point{}, draw.Src)
	}
	return m
}

// Composite returns a copy of original where every pixel set in mask is taken
// from inpainted. All three images must share the same bounds.
func Composite(original, inpainted *image.RGBA, mask *image.Gray) *image.RGBA {
	out := image.NewRGBA(original.Rect)
	copy(out.Pix, original.Pix)

	b := original.Rect.Intersect(inpainted.Rect).Intersect(mask.Rect)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.Pix[mask.PixOffset(x, y)] == 0 {
				continue
			}
			o := out.PixOffset(x, y)
			i := inpainted.PixOffset(x, y)
			copy(out.Pix[o:o+4], inpainted.Pix[i:i+4])
		}
	}
	return out
}

// ToRGBA copies img into a new RGBA image anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
