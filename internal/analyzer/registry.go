package analyzer

import (
	"errors"
	"fmt"
)

// ErrUnknownVariant is returned for detector names the registry does not know.
var ErrUnknownVariant = errors.New("unknown detector variant")

// Settings selects and configures a detector implementation.
type Settings struct {
	Variant     string
	ModelPath   string
	LibraryPath string
	InputSize   int
	Confidence  float64
	Device      string
}

// NewDetector creates a detector based on the specified variant
func NewDetector(s Settings) (Detector, error) {
	switch s.Variant {
	case "onnx", "":
		return NewONNXDetector(ONNXConfig{
			ModelPath:   s.ModelPath,
			LibraryPath: s.LibraryPath,
			InputSize:   s.InputSize,
			Confidence:  s.Confidence,
			Device:      s.Device,
		})
	case "contrast":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, s.Variant)
	}
}
