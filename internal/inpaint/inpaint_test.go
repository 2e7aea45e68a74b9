package inpaint

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageTensorRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 51, A: 255})
	img.SetRGBA(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	data := imageTensor(img)
	require.Len(t, data, 3*6)
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.2, data[12], 1e-6)

	back := tensorImage(data, 3, 2)
	assert.Equal(t, img.RGBAAt(0, 0), back.RGBAAt(0, 0))
	assert.Equal(t, img.RGBAAt(2, 1), back.RGBAAt(2, 1))
}

func TestTensorImagePixelRange(t *testing.T) {
	// outputs already in 0..255
	data := []float32{200, 300, -4, 0.5, 0, 0}
	img := tensorImage(data, 2, 1)
	assert.Equal(t, color.RGBA{R: 200, G: 0, B: 0, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, uint8(255), img.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(1), img.RGBAAt(1, 0).G)
}

func TestMaskTensor(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 2, 2))
	m.SetGray(1, 0, color.Gray{Y: 255})
	assert.Equal(t, []float32{0, 1, 0, 0}, maskTensor(m))
}

func TestOpenCVFillsUniformBackground(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	draw.Draw(img, img.Rect, &image.Uniform{C: color.RGBA{R: 100, G: 100, B: 100, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(12, 12, 20, 20), image.Black, image.Point{}, draw.Src)

	m := image.NewGray(img.Rect)
	draw.Draw(m, image.Rect(10, 10, 22, 22), image.White, image.Point{}, draw.Src)

	for _, engine := range []string{"telea", "ns"} {
		t.Run(engine, func(t *testing.T) {
			inp, err := New(Settings{Engine: engine})
			require.NoError(t, err)

			out, err := inp.Inpaint(context.Background(), img, m)
			require.NoError(t, err)
			assert.Equal(t, img.Rect.Size(), out.Bounds().Size())

			r, g, b, _ := out.At(16, 16).RGBA()
			assert.InDelta(t, 100, r>>8, 3)
			assert.InDelta(t, 100, g>>8, 3)
			assert.InDelta(t, 100, b>>8, 3)
		})
	}
}

func TestNewUnknownEngine(t *testing.T) {
	for _, name := range []string{"photoshop", "opencv", ""} {
		_, err := New(Settings{Engine: name})
		assert.Error(t, err, "engine %q", name)
	}

	_, err = New(Settings{Engine: "lama"})
	assert.Error(t, err, "lama needs a model path")
}

func TestNewOpenCVEngines(t *testing.T) {
	for _, name := range Engines {
		if name == "lama" {
			continue
		}
		inp, err := New(Settings{Engine: name, Radius: 5})
		require.NoError(t, err, name)
		o, ok := inp.(*OpenCV)
		require.True(t, ok, name)
		assert.Equal(t, float32(5), o.Radius)
	}
}
