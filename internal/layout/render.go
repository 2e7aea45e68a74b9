package layout

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// Render draws a fitted layout onto dst. Layouts that are not fitted are
// ignored. face must be the same font and size the layout was measured with.
func Render(dst *image.RGBA, l Layout, face font.Face, c color.Color) {
	if !l.Fitted() || len(l.Lines) == 0 {
		return
	}

	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(face)
	dc.SetColor(c)

	ascent := toFloat(face.Metrics().Ascent)
	centerX := l.X + l.Width/2
	for i, line := range l.Lines {
		baseline := l.Y + float64(i)*(l.LineHeight+l.LineSpacing) + ascent
		if l.Align == AlignCenter {
			dc.DrawStringAnchored(line, centerX, baseline, 0.5, 0)
			continue
		}
		dc.DrawString(line, l.X, baseline)
	}
}
