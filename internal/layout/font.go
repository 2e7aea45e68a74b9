package layout

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Font is a parsed TrueType font shared by all pages.
type Font struct {
	tt *truetype.Font
}

// LoadFont reads a TrueType font from path. An empty path selects the
// embedded Go Regular font.
func LoadFont(path string) (*Font, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	tt, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}
	return &Font{tt: tt}, nil
}

// Face returns a new face at size points (72 DPI, so points equal pixels).
func (f *Font) Face(size int) font.Face {
	return truetype.NewFace(f.tt, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Measurer returns a measurer with its own face cache. Faces are not safe for
// concurrent use, so each goroutine needs its own measurer.
func (f *Font) Measurer() *FaceMeasurer {
	return &FaceMeasurer{font: f, faces: map[int]font.Face{}}
}

// FaceMeasurer implements Measurer for a Font.
type FaceMeasurer struct {
	font  *Font
	faces map[int]font.Face
}

// Face returns the cached face for size.
func (m *FaceMeasurer) Face(size int) font.Face {
	face, ok := m.faces[size]
	if !ok {
		face = m.font.Face(size)
		m.faces[size] = face
	}
	return face
}

func (m *FaceMeasurer) MeasureString(size int, s string) float64 {
	return toFloat(font.MeasureString(m.Face(size), s))
}

func (m *FaceMeasurer) LineHeight(size int) float64 {
	return toFloat(m.Face(size).Metrics().Height)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
