// Package grouping clusters raw detector boxes into speech bubbles and the
// text regions nested inside them.
package grouping

import (
	"sort"

	"github.com/ivlev/mangatl/internal/analyzer"
	"github.com/ivlev/mangatl/internal/geometry"
)

// DefaultIoUThreshold is the minimum overlap for a text region to be
// attached to a bubble.
const DefaultIoUThreshold = 0.3

// Order selects how candidate boxes are visited before claiming.
type Order int

const (
	// OrderDetector visits boxes in detector emission order; the first
	// unclaimed bubble wins an ambiguous text region.
	OrderDetector Order = iota
	// OrderConfidence visits boxes by descending confidence, then larger
	// area, then input index. The result no longer depends on emission order.
	OrderConfidence
)

// Options configures Group.
type Options struct {
	IoUThreshold float64
	Order        Order
}

// DefaultOptions returns the detector-order grouping with a 0.3 threshold.
func DefaultOptions() Options {
	return Options{IoUThreshold: DefaultIoUThreshold, Order: OrderDetector}
}

// BubbleGroup is one physical speech bubble. Boxes holds the bubble outline
// under analyzer.LabelBubble and, when text was attached, the union of the
// attached regions under analyzer.LabelTextBubble.
type BubbleGroup struct {
	ID          int // index of the seeding detection in the input
	Boxes       map[analyzer.Label]geometry.Box
	TextRegions []geometry.Box
}

// Bubble returns the bubble outline, if present.
func (g BubbleGroup) Bubble() (geometry.Box, bool) {
	b, ok := g.Boxes[analyzer.LabelBubble]
	return b, ok
}

// Text returns the attached text region, if present.
func (g BubbleGroup) Text() (geometry.Box, bool) {
	b, ok := g.Boxes[analyzer.LabelTextBubble]
	return b, ok
}

// FreeText is a text region with no bubble around it. It is reported but not
// processed further.
type FreeText struct {
	ID         int
	Box        geometry.Box
	Confidence float64
}

// Result is the grouping of one image.
type Result struct {
	Groups   []BubbleGroup // sorted by ID
	FreeText []FreeText
	Dropped  []geometry.Box // text_bubble boxes that matched no bubble
}

// ByID returns the groups keyed by their id.
func (r Result) ByID() map[int]BubbleGroup {
	m := make(map[int]BubbleGroup, len(r.Groups))
	for _, g := range r.Groups {
		m[g.ID] = g
	}
	return m
}

// Group clusters the detections of a single image. Every bubble seeds its
// own group; every text_bubble is attached to at most one group.
func Group(dets []analyzer.Detection, opts Options) Result {
	res := Result{Groups: []BubbleGroup{}}
	if len(dets) == 0 {
		return res
	}

	order := visitOrder(dets, opts.Order)
	claimed := make([]bool, len(dets))

	for _, i := range order {
		d := dets[i]
		switch d.Label {
		case analyzer.LabelTextFree:
			res.FreeText = append(res.FreeText, FreeText{ID: i, Box: d.Box, Confidence: d.Confidence})
			continue
		case analyzer.LabelBubble:
		default:
			continue
		}
		if claimed[i] {
			continue
		}
		claimed[i] = true

		g := BubbleGroup{ID: i, Boxes: map[analyzer.Label]geometry.Box{analyzer.LabelBubble: d.Box}}
		for _, j := range order {
			t := dets[j]
			if claimed[j] || t.Label != analyzer.LabelTextBubble {
				continue
			}
			if geometry.IoU(d.Box, t.Box) >= opts.IoUThreshold {
				claimed[j] = true
				g.TextRegions = append(g.TextRegions, t.Box)
			}
		}
		if len(g.TextRegions) > 0 {
			text := g.TextRegions[0]
			for _, r := range g.TextRegions[1:] {
				text = geometry.Union(text, r)
			}
			g.Boxes[analyzer.LabelTextBubble] = text
		}
		res.Groups = append(res.Groups, g)
	}

	for i, d := range dets {
		if d.Label == analyzer.LabelTextBubble && !claimed[i] {
			res.Dropped = append(res.Dropped, d.Box)
		}
	}

	sort.Slice(res.Groups, func(a, b int) bool { return res.Groups[a].ID < res.Groups[b].ID })
	sort.Slice(res.FreeText, func(a, b int) bool { return res.FreeText[a].ID < res.FreeText[b].ID })
	return res
}

func visitOrder(dets []analyzer.Detection, order Order) []int {
	idx := make([]int, len(dets))
	for i := range idx {
		idx[i] = i
	}
	if order != OrderConfidence {
		return idx
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := dets[idx[a]], dets[idx[b]]
		if da.Confidence != db.Confidence {
			return da.Confidence > db.Confidence
		}
		if aa, ab := geometry.Area(da.Box), geometry.Area(db.Box); aa != ab {
			return aa > ab
		}
		return idx[a] < idx[b]
	})
	return idx
}
