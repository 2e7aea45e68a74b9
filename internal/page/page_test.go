package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/mangatl/internal/analyzer"
	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/grouping"
)

func TestNewBubbleRecord(t *testing.T) {
	bubble := geometry.NewBox(0, 0, 100, 200)

	t.Run("detected text", func(t *testing.T) {
		g := grouping.BubbleGroup{ID: 3, Boxes: map[analyzer.Label]geometry.Box{
			analyzer.LabelBubble:     bubble,
			analyzer.LabelTextBubble: geometry.NewBox(10, 10, 90, 190),
		}}
		rec, ok := NewBubbleRecord(g, geometry.DefaultShrinkFactor)
		require.True(t, ok)
		assert.Equal(t, 3, rec.ID)
		assert.False(t, rec.TextDerived)
		assert.Equal(t, geometry.NewBox(10, 10, 90, 190), rec.TextBox)
	})

	t.Run("derived text", func(t *testing.T) {
		g := grouping.BubbleGroup{Boxes: map[analyzer.Label]geometry.Box{analyzer.LabelBubble: bubble}}
		rec, ok := NewBubbleRecord(g, geometry.DefaultShrinkFactor)
		require.True(t, ok)
		assert.True(t, rec.TextDerived)
		assert.Equal(t, geometry.NewBox(10, 20, 90, 180), rec.TextBox)
	})

	t.Run("no bubble", func(t *testing.T) {
		g := grouping.BubbleGroup{Boxes: map[analyzer.Label]geometry.Box{
			analyzer.LabelTextBubble: geometry.NewBox(10, 10, 90, 190),
		}}
		_, ok := NewBubbleRecord(g, geometry.DefaultShrinkFactor)
		assert.False(t, ok)
	})
}

func TestRecordBoxes(t *testing.T) {
	rec := BubbleRecord{BubbleBox: geometry.NewBox(0, 0, 50, 50), TextBox: geometry.NewBox(5, 5, 45, 45)}
	assert.Equal(t, rec.TextBox, rec.EraseBox())
	assert.Equal(t, rec.BubbleBox, rec.OCRBox())

	rec.TextBox = geometry.Box{}
	assert.Equal(t, rec.BubbleBox, rec.EraseBox())
}
