package inpaint

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ivlev/mangatl/internal/mask"
)

// Settings selects and configures an inpainting engine.
type Settings struct {
	Engine      string // telea | ns | lama
	ModelPath   string
	LibraryPath string
	Device      string
	Radius      float32
}

// Engines lists the names New accepts.
var Engines = []string{"telea", "ns", "lama"}

// New creates the inpainter for s.Engine.
func New(s Settings) (mask.Inpainter, error) {
	switch s.Engine {
	case "telea":
		o := NewOpenCV()
		if s.Radius > 0 {
			o.Radius = s.Radius
		}
		return o, nil
	case "ns":
		o := NewOpenCV()
		o.Method = gocv.NS
		if s.Radius > 0 {
			o.Radius = s.Radius
		}
		return o, nil
	case "lama":
		return NewLaMa(LaMaConfig{ModelPath: s.ModelPath, LibraryPath: s.LibraryPath, Device: s.Device})
	default:
		return nil, fmt.Errorf("unknown inpaint engine: %s", s.Engine)
	}
}
