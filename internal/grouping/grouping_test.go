package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/mangatl/internal/analyzer"
	"github.com/ivlev/mangatl/internal/geometry"
)

func det(label analyzer.Label, x1, y1, x2, y2 float64) analyzer.Detection {
	return analyzer.Detection{Label: label, Box: geometry.NewBox(x1, y1, x2, y2), Confidence: 0.9}
}

func TestGroupNestedText(t *testing.T) {
	dets := []analyzer.Detection{
		det(analyzer.LabelBubble, 0, 0, 100, 100),
		det(analyzer.LabelTextBubble, 10, 10, 90, 90),
	}

	res := Group(dets, DefaultOptions())
	require.Len(t, res.Groups, 1)
	assert.Equal(t, map[analyzer.Label]geometry.Box{
		analyzer.LabelBubble:     geometry.NewBox(0, 0, 100, 100),
		analyzer.LabelTextBubble: geometry.NewBox(10, 10, 90, 90),
	}, res.Groups[0].Boxes)
	assert.Empty(t, res.Dropped)
}

func TestGroupEmpty(t *testing.T) {
	res := Group(nil, DefaultOptions())
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.FreeText)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, res.ByID())
}

func TestGroupNoOverlapDropsText(t *testing.T) {
	var dets []analyzer.Detection
	for i := 0; i < 3; i++ {
		x := float64(i) * 200
		dets = append(dets, det(analyzer.LabelBubble, x, 0, x+100, 100))
	}
	for i := 0; i < 4; i++ {
		x := float64(i) * 200
		dets = append(dets, det(analyzer.LabelTextBubble, x, 500, x+50, 550))
	}

	res := Group(dets, DefaultOptions())
	require.Len(t, res.Groups, 3)
	for _, g := range res.Groups {
		assert.Len(t, g.Boxes, 1)
		_, ok := g.Bubble()
		assert.True(t, ok)
	}
	assert.Len(t, res.Dropped, 4)
}

func TestGroupFirstClaimWins(t *testing.T) {
	dets := []analyzer.Detection{
		det(analyzer.LabelBubble, 0, 0, 100, 100),
		det(analyzer.LabelBubble, 10, 0, 110, 100),
		det(analyzer.LabelTextBubble, 5, 0, 105, 100),
	}

	res := Group(dets, DefaultOptions())
	require.Len(t, res.Groups, 2)

	byID := res.ByID()
	_, first := byID[0].Text()
	_, second := byID[1].Text()
	assert.True(t, first)
	assert.False(t, second)
}

func TestGroupConfidenceOrder(t *testing.T) {
	dets := []analyzer.Detection{
		det(analyzer.LabelBubble, 0, 0, 100, 100),
		det(analyzer.LabelBubble, 10, 0, 110, 100),
		det(analyzer.LabelTextBubble, 5, 0, 105, 100),
	}
	dets[1].Confidence = 0.95

	res := Group(dets, Options{IoUThreshold: DefaultIoUThreshold, Order: OrderConfidence})
	byID := res.ByID()
	_, first := byID[0].Text()
	_, second := byID[1].Text()
	assert.False(t, first)
	assert.True(t, second)

	// groups stay sorted by input index
	assert.Equal(t, 0, res.Groups[0].ID)
	assert.Equal(t, 1, res.Groups[1].ID)
}

func TestGroupMultipleTextRegions(t *testing.T) {
	dets := []analyzer.Detection{
		det(analyzer.LabelTextBubble, 10, 10, 90, 50),
		det(analyzer.LabelBubble, 0, 0, 100, 100),
		det(analyzer.LabelTextBubble, 10, 50, 90, 90),
	}

	res := Group(dets, Options{IoUThreshold: 0.2})
	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, 1, g.ID)
	assert.Len(t, g.TextRegions, 2)
	text, ok := g.Text()
	require.True(t, ok)
	assert.Equal(t, geometry.NewBox(10, 10, 90, 90), text)
}

func TestGroupFreeText(t *testing.T) {
	dets := []analyzer.Detection{
		det(analyzer.LabelTextFree, 0, 0, 10, 10),
		det(analyzer.LabelBubble, 0, 0, 100, 100),
	}

	res := Group(dets, DefaultOptions())
	require.Len(t, res.FreeText, 1)
	assert.Equal(t, 0, res.FreeText[0].ID)
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Boxes, 1)
}
