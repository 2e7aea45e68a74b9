// Package page holds the per-bubble and per-page records produced by a run.
package page

import (
	"image"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/grouping"
	"github.com/ivlev/mangatl/internal/layout"
	"github.com/ivlev/mangatl/internal/translate"
)

// BubbleRecord follows one bubble through OCR, translation and rendering.
type BubbleRecord struct {
	ID             int               `yaml:"id"`
	BubbleBox      geometry.Box      `yaml:"bubble"`
	TextBox        geometry.Box      `yaml:"text"`
	TextDerived    bool              `yaml:"text_derived"` // TextBox shrunk from BubbleBox
	OriginalText   string            `yaml:"original_text"`
	TranslatedText string            `yaml:"translated_text"`
	Translation    translate.Outcome `yaml:"translation,omitempty"`
	Layout         layout.Status     `yaml:"layout,omitempty"`
	FontSize       int               `yaml:"font_size,omitempty"`
}

// NewBubbleRecord builds the record for a group that has a bubble. The text
// box is the detected one or, when missing, the bubble shrunk by shrink.
func NewBubbleRecord(g grouping.BubbleGroup, shrink float64) (BubbleRecord, bool) {
	bubble, ok := g.Bubble()
	if !ok {
		return BubbleRecord{}, false
	}
	rec := BubbleRecord{ID: g.ID, BubbleBox: bubble}
	if text, ok := g.Text(); ok {
		rec.TextBox = text
	} else {
		rec.TextBox = geometry.Shrink(bubble, shrink)
		rec.TextDerived = true
	}
	return rec, true
}

// EraseBox is the region cleared before rendering: the text box, or the
// bubble when the text box is empty.
func (r BubbleRecord) EraseBox() geometry.Box {
	if !r.TextBox.Empty() {
		return r.TextBox
	}
	return r.BubbleBox
}

// OCRBox is the crop handed to OCR: the bubble, or the text box when the
// bubble is empty.
func (r BubbleRecord) OCRBox() geometry.Box {
	if !r.BubbleBox.Empty() {
		return r.BubbleBox
	}
	return r.TextBox
}

// Result is one processed page.
type Result struct {
	Index    int
	Name     string // source file base name without extension
	Ext      string // source extension, ".png" for rendered PDF pages
	Original image.Image
	Image    image.Image // translated page, Original when inpainting failed
	Bubbles  []BubbleRecord
	FreeText []grouping.FreeText
	Dropped  int // text regions without a bubble
	Err      error
}

// Failed reports whether the page kept its original pixels because of an error.
func (r Result) Failed() bool {
	return r.Err != nil
}
