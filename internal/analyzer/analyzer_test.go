package analyzer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/mangatl/internal/geometry"
)

func fill(img *image.Gray, r image.Rectangle, v uint8) {
	draw.Draw(img, r, &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, draw.Src)
}

// balloonPage draws a white balloon with a black outline on a mid-gray page
// and a black glyph bar inside it.
func balloonPage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	fill(img, img.Bounds(), 120)
	fill(img, image.Rect(38, 38, 162, 162), 0)
	fill(img, image.Rect(40, 40, 160, 160), 255)
	fill(img, image.Rect(80, 90, 120, 110), 0)
	return img
}

func byLabel(dets []Detection, label Label) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Label == label {
			out = append(out, d)
		}
	}
	return out
}

func TestContrastDetectorFindsBalloon(t *testing.T) {
	d := NewContrastDetector()
	res, err := d.Detect(context.Background(), []image.Image{balloonPage()})
	require.NoError(t, err)
	require.Len(t, res, 1)

	bubbles := byLabel(res[0], LabelBubble)
	require.Len(t, bubbles, 1)
	assert.Equal(t, geometry.NewBox(40, 40, 160, 160), bubbles[0].Box)

	texts := byLabel(res[0], LabelTextBubble)
	require.Len(t, texts, 1)
	text := texts[0].Box
	assert.LessOrEqual(t, text.X1, 80.0)
	assert.LessOrEqual(t, text.Y1, 90.0)
	assert.GreaterOrEqual(t, text.X2, 120.0)
	assert.GreaterOrEqual(t, text.Y2, 110.0)
	assert.Greater(t, geometry.IoU(bubbles[0].Box, text), 0.0)
}

func TestContrastDetectorFreeText(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	fill(img, img.Bounds(), 255)
	fill(img, image.Rect(80, 90, 120, 110), 0)

	res, err := NewContrastDetector().Detect(context.Background(), []image.Image{img})
	require.NoError(t, err)
	require.Len(t, res[0], 1)
	assert.Equal(t, LabelTextFree, res[0][0].Label)
}

func TestContrastDetectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewContrastDetector().Detect(ctx, []image.Image{balloonPage()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectorRegistry(t *testing.T) {
	d, err := NewDetector(Settings{Variant: "contrast"})
	require.NoError(t, err)
	assert.IsType(t, &ContrastDetector{}, d)

	_, err = NewDetector(Settings{Variant: "onnx"})
	assert.Error(t, err, "onnx without a model path")
	assert.False(t, errors.Is(err, ErrUnknownVariant))

	_, err = NewDetector(Settings{Variant: "yolo"})
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestLabelFromClass(t *testing.T) {
	l, err := LabelFromClass(1)
	require.NoError(t, err)
	assert.Equal(t, LabelTextBubble, l)

	_, err = LabelFromClass(3)
	assert.Error(t, err)
}

func TestDecodeDetections(t *testing.T) {
	logits := []float32{
		3, -5, -5, // query 0: bubble
		-5, -5, -5, // query 1: nothing
	}
	boxes := []float32{
		0.5, 0.5, 0.25, 0.5,
		0.1, 0.1, 0.1, 0.1,
	}

	dets := decodeDetections(logits, boxes, 3, 100, 200, 0.8)
	require.Len(t, dets, 1)
	assert.Equal(t, LabelBubble, dets[0].Label)
	assert.Equal(t, geometry.NewBox(37.5, 50, 62.5, 150), dets[0].Box)
	assert.InDelta(t, 0.9526, dets[0].Confidence, 1e-3)
}

func TestPixelValues(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)

	v := pixelValues(img, 4)
	require.Len(t, v, 3*16)
	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, v[i], 0.01)
		assert.InDelta(t, 0.0, v[16+i], 0.01)
		assert.InDelta(t, 0.0, v[32+i], 0.01)
	}
}
