// Package layout fits translated text into a bubble rectangle: the largest
// font size whose greedy word wrap fits wins, and the block is centered.
package layout

import (
	"strings"

	"github.com/ivlev/mangatl/internal/geometry"
)

const (
	DefaultMaxFontSize = 30
	DefaultLineSpacing = 4
)

// Measurer reports text metrics in pixels at an integer font size.
type Measurer interface {
	MeasureString(size int, s string) float64
	LineHeight(size int) float64
}

// Align controls the horizontal placement of lines inside the block.
type Align int

const (
	AlignLeft   Align = iota // lines left-aligned in a centered block
	AlignCenter              // every line centered on the rectangle
)

// Status is the outcome of a fit attempt.
type Status string

const (
	StatusFitted  Status = "fitted"
	StatusSkipped Status = "skipped" // no font size fits, nothing is drawn
	StatusEmpty   Status = "empty"   // no text, nothing is measured
)

type Options struct {
	MaxFontSize int
	LineSpacing float64
	Align       Align
}

func DefaultOptions() Options {
	return Options{MaxFontSize: DefaultMaxFontSize, LineSpacing: DefaultLineSpacing, Align: AlignLeft}
}

// Layout is a fitted text block. X and Y are the top-left corner of the
// block; Width and Height are its extent.
type Layout struct {
	Lines       []string
	FontSize    int
	X, Y        float64
	Width       float64
	Height      float64
	LineHeight  float64
	LineSpacing float64
	Align       Align
	Status      Status
}

// Fitted reports whether the layout should be drawn.
func (l Layout) Fitted() bool {
	return l.Status == StatusFitted
}

// FitText tries every font size from opts.MaxFontSize down to 1 and returns
// the first whose wrapped block fits rect. Comparisons are inclusive.
func FitText(rect geometry.Box, text string, m Measurer, opts Options) Layout {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Layout{Status: StatusEmpty}
	}
	if opts.MaxFontSize <= 0 {
		opts.MaxFontSize = DefaultMaxFontSize
	}

	rw, rh := rect.Width(), rect.Height()
	for size := opts.MaxFontSize; size > 0; size-- {
		lines := wrap(words, size, rw, m)

		var bw float64
		for _, line := range lines {
			bw = max(bw, m.MeasureString(size, line))
		}
		lh := m.LineHeight(size)
		n := float64(len(lines))
		bh := n*lh + (n-1)*opts.LineSpacing

		if bw <= rw && bh <= rh {
			return Layout{
				Lines:       lines,
				FontSize:    size,
				X:           rect.X1 + (rw-bw)/2,
				Y:           rect.Y1 + (rh-bh)/2,
				Width:       bw,
				Height:      bh,
				LineHeight:  lh,
				LineSpacing: opts.LineSpacing,
				Align:       opts.Align,
				Status:      StatusFitted,
			}
		}
	}
	return Layout{Status: StatusSkipped}
}

// wrap greedily packs words into lines no wider than maxWidth. A single word
// wider than maxWidth still gets its own line.
func wrap(words []string, size int, maxWidth float64, m Measurer) []string {
	lines := []string{}
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if m.MeasureString(size, candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}
