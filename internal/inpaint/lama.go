package inpaint

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ivlev/mangatl/internal/system"
)

// LaMaConfig configures the LaMa ONNX inpainter. The model must accept
// dynamic spatial axes that are multiples of 8.
type LaMaConfig struct {
	ModelPath   string
	LibraryPath string
	Device      string // cpu | cuda | cuda:<id>
}

// LaMa runs a LaMa export through onnxruntime. Inference is serialised on the
// session.
type LaMa struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewLaMa loads the model on the configured device.
func NewLaMa(cfg LaMaConfig) (*LaMa, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("lama: model path is required")
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
		[]string{"image", "mask"}, []string{"output"}, opts)
	if err != nil {
		return nil, fmt.Errorf("load lama %s: %w", cfg.ModelPath, err)
	}
	return &LaMa{session: session}, nil
}

func (l *LaMa) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Gray) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	imgTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(h), int64(w)), imageTensor(img))
	if err != nil {
		return nil, fmt.Errorf("image tensor: %w", err)
	}
	defer imgTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, 1, int64(h), int64(w)), maskTensor(mask))
	if err != nil {
		return nil, fmt.Errorf("mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(h), int64(w)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	l.mu.Lock()
	err = l.session.Run([]ort.Value{imgTensor, maskTensor}, []ort.Value{output})
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run lama: %w", err)
	}
	return tensorImage(output.GetData(), w, h), nil
}

func (l *LaMa) Close() error {
	if l.session == nil {
		return nil
	}
	err := l.session.Destroy()
	l.session = nil
	return err
}

// imageTensor converts img to CHW floats in [0, 1].
func imageTensor(img *image.RGBA) []float32 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := w * h
	out := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			out[i] = float32(row[x*4]) / 255
			out[plane+i] = float32(row[x*4+1]) / 255
			out[2*plane+i] = float32(row[x*4+2]) / 255
		}
	}
	return out
}

// maskTensor converts a mask to 0/1 floats.
func maskTensor(m *image.Gray) []float32 {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := m.Pix[y*m.Stride:]
		for x := 0; x < w; x++ {
			if row[x] > 0 {
				out[y*w+x] = 1
			}
		}
	}
	return out
}

// tensorImage converts a CHW output back to RGBA. Exports differ in output
// range; values that never exceed 1 are treated as normalized.
func tensorImage(data []float32, w, h int) *image.RGBA {
	scale := float32(1)
	var peak float32
	for _, v := range data {
		peak = max(peak, v)
	}
	if peak <= 1 {
		scale = 255
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	plane := w * h
	for i := 0; i < plane; i++ {
		img.Pix[i*4] = clampByte(data[i] * scale)
		img.Pix[i*4+1] = clampByte(data[plane+i] * scale)
		img.Pix[i*4+2] = clampByte(data[2*plane+i] * scale)
		img.Pix[i*4+3] = 255
	}
	return img
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
