package layout

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/mangatl/internal/geometry"
)

// fixedMeasurer gives every character 9/11 of the font size in width, so
// "HELLO WORLD" is 180px wide at size 20.
type fixedMeasurer struct {
	calls int
}

func (m *fixedMeasurer) MeasureString(size int, s string) float64 {
	m.calls++
	return float64(len(s)) * float64(size) * 9 / 11
}

func (m *fixedMeasurer) LineHeight(size int) float64 {
	m.calls++
	return float64(size) * 1.25
}

func TestFitTextSingleLine(t *testing.T) {
	m := &fixedMeasurer{}
	require.Equal(t, 180.0, m.MeasureString(20, "HELLO WORLD"))

	rect := geometry.NewBox(50, 100, 250, 160)
	l := FitText(rect, "HELLO WORLD", m, DefaultOptions())

	require.Equal(t, StatusFitted, l.Status)
	assert.Equal(t, []string{"HELLO WORLD"}, l.Lines)
	assert.GreaterOrEqual(t, l.FontSize, 20)
	assert.Equal(t, 22, l.FontSize)
	assert.GreaterOrEqual(t, l.X, rect.X1)
	assert.LessOrEqual(t, l.X+l.Width, rect.X2)
	assert.InDelta(t, 51.0, l.X, 1e-9)
	assert.InDelta(t, 100+(60-27.5)/2, l.Y, 1e-9)
}

func TestFitTextWraps(t *testing.T) {
	m := &fixedMeasurer{}
	rect := geometry.NewBox(0, 0, 100, 200)
	l := FitText(rect, "HELLO WORLD", m, DefaultOptions())

	require.Equal(t, StatusFitted, l.Status)
	assert.Equal(t, []string{"HELLO", "WORLD"}, l.Lines)
	assert.Equal(t, 24, l.FontSize)
	assert.InDelta(t, 2*30+4.0, l.Height, 1e-9)
}

func TestFitTextInclusiveBounds(t *testing.T) {
	m := &fixedMeasurer{}
	// exactly the size-22 single line block
	rect := geometry.NewBox(0, 0, 198, 27.5)
	l := FitText(rect, "HELLO WORLD", m, DefaultOptions())

	require.Equal(t, StatusFitted, l.Status)
	assert.Equal(t, 22, l.FontSize)
	assert.Equal(t, 0.0, l.X)
	assert.Equal(t, 0.0, l.Y)
}

func TestFitTextSkipped(t *testing.T) {
	m := &fixedMeasurer{}
	l := FitText(geometry.NewBox(0, 0, 10, 10), "SUPERCALIFRAGILISTIC", m, DefaultOptions())
	assert.Equal(t, StatusSkipped, l.Status)
	assert.False(t, l.Fitted())
	assert.Empty(t, l.Lines)
	assert.Zero(t, l.FontSize)
}

func TestFitTextEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		m := &fixedMeasurer{}
		l := FitText(geometry.NewBox(0, 0, 100, 100), text, m, DefaultOptions())
		assert.Equal(t, StatusEmpty, l.Status)
		assert.Zero(t, m.calls, "empty text must not be measured")
	}
}

func TestFitTextDegenerateRect(t *testing.T) {
	l := FitText(geometry.NewBox(10, 10, 5, 5), "HI", &fixedMeasurer{}, DefaultOptions())
	assert.Equal(t, StatusSkipped, l.Status)
}

func TestFontMeasurer(t *testing.T) {
	f, err := LoadFont("")
	require.NoError(t, err)
	m := f.Measurer()

	small := m.MeasureString(10, "HELLO")
	large := m.MeasureString(20, "HELLO")
	assert.Greater(t, small, 0.0)
	assert.Greater(t, large, small)
	assert.Greater(t, m.LineHeight(20), m.LineHeight(10))
	assert.Equal(t, 0.0, m.MeasureString(20, ""))

	_, err = LoadFont("/nonexistent/font.ttf")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	f, err := LoadFont("")
	require.NoError(t, err)
	m := f.Measurer()

	dst := image.NewRGBA(image.Rect(0, 0, 300, 120))
	draw.Draw(dst, dst.Rect, image.White, image.Point{}, draw.Src)

	rect := geometry.NewBox(50, 20, 250, 100)
	for _, align := range []Align{AlignLeft, AlignCenter} {
		opts := DefaultOptions()
		opts.Align = align
		l := FitText(rect, "HELLO WORLD", m, opts)
		require.True(t, l.Fitted())
		Render(dst, l, m.Face(l.FontSize), color.Black)
	}

	inked := 0
	for y := 0; y < 120; y++ {
		for x := 0; x < 300; x++ {
			c := dst.RGBAAt(x, y)
			if c.R == 255 {
				continue
			}
			inked++
			assert.True(t, image.Pt(x, y).In(rect.Rect()), "ink outside the bubble at %d,%d", x, y)
		}
	}
	assert.Greater(t, inked, 0)
}

func TestRenderIgnoresUnfitted(t *testing.T) {
	f, err := LoadFont("")
	require.NoError(t, err)

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	Render(dst, Layout{Status: StatusSkipped, Lines: []string{"X"}}, f.Face(10), color.Black)
	for _, v := range dst.Pix {
		assert.Zero(t, v)
	}
}
