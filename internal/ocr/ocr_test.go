package ocr

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces between glyphs", "お は よ う", "おはよう"},
		{"full-width latin", "ＡＢＣ１２３", "ABC123"},
		{"half-width katakana", "ｶﾀｶﾅ", "カタカナ"},
		{"newlines", "行く\nぞ！\n", "行くぞ!"},
		{"ideographic space", "あ　い", "あい"},
		{"latin words", "HELLO WORLD", "HELLO WORLD"},
		{"latin lines", "HELLO\n  WORLD\n", "HELLO WORLD"},
		{"mixed scripts", "あ A b", "あA b"},
		{"only spaces", " \t\n", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := encodePNG(image.NewGray(image.Rect(5, 5, 15, 25)))
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}
