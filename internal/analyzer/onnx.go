package analyzer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/system"
)

// ONNXConfig configures the RT-DETR comic text and bubble detector.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string  // onnxruntime shared library, empty for default lookup
	InputSize   int     // square model input, default 640
	Queries     int     // decoder queries, default 300
	Confidence  float64 // default 0.8
	Device      string  // cpu | cuda | cuda:<id>
}

// ONNXDetector runs an exported RT-DETR model. Sessions are not safe for
// concurrent Run calls, so inference is serialised.
type ONNXDetector struct {
	cfg     ONNXConfig
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewONNXDetector loads the model and prepares an inference session.
func NewONNXDetector(cfg ONNXConfig) (*ONNXDetector, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx detector: model path is required")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.Queries <= 0 {
		cfg.Queries = 300
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = 0.8
	}

	if err := system.InitONNXRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}
	opts, err := system.NewSessionOptions(cfg.Device)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"pixel_values"}, []string{"logits", "pred_boxes"}, opts)
	if err != nil {
		return nil, fmt.Errorf("load detector %s: %w", cfg.ModelPath, err)
	}
	return &ONNXDetector{cfg: cfg, session: session}, nil
}

// Detect runs the model once per image.
func (d *ONNXDetector) Detect(ctx context.Context, images []image.Image) ([][]Detection, error) {
	results := make([][]Detection, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dets, err := d.detectOne(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		results[i] = dets
	}
	return results, nil
}

func (d *ONNXDetector) detectOne(img image.Image) ([]Detection, error) {
	size := int64(d.cfg.InputSize)
	classes := int64(len(classLabels))
	queries := int64(d.cfg.Queries)

	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), pixelValues(img, d.cfg.InputSize))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, queries, classes))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer logits.Destroy()

	boxes, err := ort.NewEmptyTensor[float32](ort.NewShape(1, queries, 4))
	if err != nil {
		return nil, fmt.Errorf("boxes tensor: %w", err)
	}
	defer boxes.Destroy()

	d.mu.Lock()
	err = d.session.Run([]ort.Value{input}, []ort.Value{logits, boxes})
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run detector: %w", err)
	}

	b := img.Bounds()
	return decodeDetections(logits.GetData(), boxes.GetData(), len(classLabels),
		float64(b.Dx()), float64(b.Dy()), d.cfg.Confidence), nil
}

// Close releases the inference session.
func (d *ONNXDetector) Close() error {
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

// pixelValues resizes img to size×size and returns it as a CHW tensor
// scaled to [0, 1].
func pixelValues(img image.Image, size int) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		out[i] = float32(resized.Pix[i*4]) / 255
		out[plane+i] = float32(resized.Pix[i*4+1]) / 255
		out[2*plane+i] = float32(resized.Pix[i*4+2]) / 255
	}
	return out
}

// decodeDetections turns raw logits and normalized (cx, cy, w, h) boxes into
// pixel-space detections. Every class scoring at least minScore after a
// sigmoid yields a detection.
func decodeDetections(logits, boxes []float32, classes int, width, height, minScore float64) []Detection {
	queries := len(boxes) / 4
	if len(logits) < queries*classes {
		queries = len(logits) / classes
	}

	dets := []Detection{}
	for q := 0; q < queries; q++ {
		cx := float64(boxes[q*4]) * width
		cy := float64(boxes[q*4+1]) * height
		w := float64(boxes[q*4+2]) * width
		h := float64(boxes[q*4+3]) * height
		box := geometry.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2).
			Clip(image.Rect(0, 0, int(width), int(height)))

		for c := 0; c < classes; c++ {
			score := sigmoid(float64(logits[q*classes+c]))
			if score < minScore {
				continue
			}
			label, err := LabelFromClass(c)
			if err != nil {
				break
			}
			dets = append(dets, Detection{Label: label, Box: box, Confidence: score})
		}
	}
	return dets
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
