package analyzer

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/mangatl/internal/geometry"
)

// Label is the detector class of a box.
type Label string

const (
	LabelBubble     Label = "bubble"      // speech balloon outline
	LabelTextBubble Label = "text_bubble" // text region nested in a balloon
	LabelTextFree   Label = "text_free"   // text with no balloon around it
)

// classLabels maps model class indices to labels.
var classLabels = [...]Label{LabelBubble, LabelTextBubble, LabelTextFree}

// LabelFromClass returns the label for a model class index.
func LabelFromClass(class int) (Label, error) {
	if class < 0 || class >= len(classLabels) {
		return "", fmt.Errorf("unknown detector class %d", class)
	}
	return classLabels[class], nil
}

// Detection is a single box emitted by a detector.
type Detection struct {
	Label      Label
	Box        geometry.Box
	Confidence float64 // 0.0-1.0
}

// Detector finds bubble and text regions on a batch of page images.
// The result holds one detection slice per input image, in input order.
type Detector interface {
	Detect(ctx context.Context, images []image.Image) ([][]Detection, error)
}
