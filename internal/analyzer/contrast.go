package analyzer

import (
	"context"
	"image"
	"image/draw"
	"math"

	"github.com/ivlev/mangatl/internal/geometry"
)

// ContrastDetector is a model-free detector. Glyph clusters are found with a
// Sobel edge pass; each cluster is then grown through the bright pixels around
// it to recover the balloon interior. Clusters without a closed bright
// surrounding are reported as free text.
type ContrastDetector struct {
	MinBlockArea     int     // Minimum glyph cluster area in pixels²
	EdgeThreshold    float64 // Gradient magnitude threshold
	BrightLevel      uint8   // Gray level counted as balloon interior
	MaxBubbleFrac    float64 // Larger bright components are page background
	DilateKernel     int
	DilateIterations int
	Confidence       float64
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:     150,
		EdgeThreshold:    60.0,
		BrightLevel:      200,
		MaxBubbleFrac:    0.5,
		DilateKernel:     5,
		DilateIterations: 2,
		Confidence:       0.7,
	}
}

// Detect runs the heuristic on every image independently.
func (d *ContrastDetector) Detect(ctx context.Context, images []image.Image) ([][]Detection, error) {
	results := make([][]Detection, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = d.detectPage(img)
	}
	return results, nil
}

func (d *ContrastDetector) detectPage(img image.Image) []Detection {
	gray := toGrayscale(img)
	bounds := gray.Bounds()
	pageArea := bounds.Dx() * bounds.Dy()

	edges := sobelEdgeDetection(gray, d.EdgeThreshold)
	dilated := dilate(edges, d.DilateKernel, d.DilateIterations)
	clusters := findComponents(dilated, func(v uint8) bool { return v > 128 })

	bright := func(v uint8) bool { return v >= d.BrightLevel }
	labels := make([]int32, len(gray.Pix))
	var bubbleRects []image.Rectangle
	emitted := map[int32]bool{}

	dets := []Detection{}
	for _, cluster := range clusters {
		if cluster.Dx()*cluster.Dy() < d.MinBlockArea {
			continue
		}

		id, ok := d.enclosingComponent(gray, labels, &bubbleRects, cluster, bright)
		if ok {
			rect := bubbleRects[id-1]
			if rect.Dx()*rect.Dy() <= int(d.MaxBubbleFrac*float64(pageArea)) && cluster.In(rect.Inset(-2)) {
				if !emitted[id] {
					emitted[id] = true
					dets = append(dets, Detection{Label: LabelBubble, Box: geometry.FromRect(rect), Confidence: d.Confidence})
				}
				dets = append(dets, Detection{Label: LabelTextBubble, Box: geometry.FromRect(cluster), Confidence: d.Confidence})
				continue
			}
		}
		dets = append(dets, Detection{Label: LabelTextFree, Box: geometry.FromRect(cluster), Confidence: d.Confidence})
	}

	return dets
}

// enclosingComponent walks the ring just outside cluster and returns the id of
// the first bright component touching it, labelling the component on demand.
func (d *ContrastDetector) enclosingComponent(gray *image.Gray, labels []int32, rects *[]image.Rectangle, cluster image.Rectangle, inside func(uint8) bool) (int32, bool) {
	bounds := gray.Bounds()
	ring := cluster.Inset(-1).Intersect(bounds)

	check := func(x, y int) (int32, bool) {
		p := image.Point{X: x, Y: y}
		if !p.In(ring) || p.In(cluster) {
			return 0, false
		}
		off := gray.PixOffset(x, y)
		if !inside(gray.Pix[off]) {
			return 0, false
		}
		if labels[off] == 0 {
			id := int32(len(*rects) + 1)
			*rects = append(*rects, floodFill(gray, labels, id, p, inside))
		}
		return labels[off], true
	}

	for x := ring.Min.X; x < ring.Max.X; x++ {
		if id, ok := check(x, ring.Min.Y); ok {
			return id, true
		}
		if id, ok := check(x, ring.Max.Y-1); ok {
			return id, true
		}
	}
	for y := ring.Min.Y; y < ring.Max.Y; y++ {
		if id, ok := check(ring.Min.X, y); ok {
			return id, true
		}
		if id, ok := check(ring.Max.X-1, y); ok {
			return id, true
		}
	}
	return 0, false
}

// toGrayscale converts an image to grayscale
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// sobelEdgeDetection marks pixels whose gradient magnitude exceeds threshold
func sobelEdgeDetection(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)
	px := func(x, y int) float64 { return float64(gray.Pix[gray.PixOffset(x, y)]) }

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) -
				2*px(x-1, y) + 2*px(x+1, y) -
				px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)

			if math.Sqrt(gx*gx+gy*gy) > threshold {
				edges.Pix[edges.PixOffset(x, y)] = 255
			}
		}
	}

	return edges
}

// dilate performs morphological dilation to connect nearby glyph edges
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	b := img.Bounds()
	result := image.NewGray(b)
	copy(result.Pix, img.Pix)

	half := kernelSize / 2
	for iter := 0; iter < iterations; iter++ {
		temp := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				var maxVal uint8
				for ky := max(b.Min.Y, y-half); ky <= min(b.Max.Y-1, y+half) && maxVal < 255; ky++ {
					for kx := max(b.Min.X, x-half); kx <= min(b.Max.X-1, x+half); kx++ {
						if v := result.Pix[result.PixOffset(kx, ky)]; v > maxVal {
							maxVal = v
						}
					}
				}
				temp.Pix[temp.PixOffset(x, y)] = maxVal
			}
		}
		result = temp
	}

	return result
}

// findComponents returns the bounding rectangles of 4-connected regions
// whose pixels satisfy inside.
func findComponents(img *image.Gray, inside func(uint8) bool) []image.Rectangle {
	b := img.Bounds()
	labels := make([]int32, len(img.Pix))
	rects := []image.Rectangle{}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			if labels[off] == 0 && inside(img.Pix[off]) {
				id := int32(len(rects) + 1)
				rects = append(rects, floodFill(img, labels, id, image.Point{X: x, Y: y}, inside))
			}
		}
	}

	return rects
}

// floodFill labels the component containing start with id and returns its
// bounding rectangle
func floodFill(img *image.Gray, labels []int32, id int32, start image.Point, inside func(uint8) bool) image.Rectangle {
	b := img.Bounds()
	minX, minY := start.X, start.Y
	maxX, maxY := start.X, start.Y

	stack := []image.Point{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !p.In(b) {
			continue
		}
		off := img.PixOffset(p.X, p.Y)
		if labels[off] != 0 || !inside(img.Pix[off]) {
			continue
		}
		labels[off] = id

		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}
