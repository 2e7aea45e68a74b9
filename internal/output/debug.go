package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/page"
)

var (
	bubbleColor = color.RGBA{B: 255, A: 255}
	textColor   = color.RGBA{G: 200, A: 255}
	freeColor   = color.RGBA{R: 255, A: 255}
)

// DebugOverlay draws bubble boxes in blue, text boxes in green and free text
// in red over a copy of img, each bubble labelled with its id.
func DebugOverlay(img image.Image, bubbles []page.BubbleRecord, free []geometry.Box) *image.RGBA {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(2)

	stroke := func(b geometry.Box, c color.Color) {
		dc.DrawRectangle(b.X1, b.Y1, b.Width(), b.Height())
		dc.SetColor(c)
		dc.Stroke()
	}

	for _, b := range bubbles {
		stroke(b.BubbleBox, bubbleColor)
		stroke(b.TextBox, textColor)
		dc.SetColor(bubbleColor)
		dc.DrawString(fmt.Sprintf("#%d %s", b.ID, b.Layout), b.BubbleBox.X1+3, b.BubbleBox.Y1+14)
	}
	for _, f := range free {
		stroke(f, freeColor)
	}

	return dc.Image().(*image.RGBA)
}
