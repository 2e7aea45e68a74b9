// Package ocr extracts bubble text with Tesseract.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/unicode/norm"
)

// DefaultLanguages reads vertical Japanese first, then horizontal.
var DefaultLanguages = []string{"jpn_vert", "jpn"}

// Tesseract wraps a single gosseract client. The client is not safe for
// concurrent use, so calls are serialised.
type Tesseract struct {
	client *gosseract.Client
	mu     sync.Mutex
}

// NewTesseract creates a client for langs. Vertical languages switch the page
// segmentation to a single vertical block.
func NewTesseract(langs ...string) (*Tesseract, error) {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract languages %v: %w", langs, err)
	}

	mode := gosseract.PSM_SINGLE_BLOCK
	if strings.HasSuffix(langs[0], "_vert") {
		mode = gosseract.PSM_SINGLE_BLOCK_VERT_TEXT
	}
	if err := client.SetPageSegMode(mode); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract page mode: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// ExtractText recognises the text in a bubble crop.
func (t *Tesseract) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return Normalize(text), nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}

// Normalize folds full-width and compatibility forms (NFKC) and cleans up
// whitespace. Tesseract puts spaces between CJK glyphs that carry no meaning;
// those are removed. Any other whitespace run becomes a single space, so words
// of alphabetic scripts stay apart.
func Normalize(s string) string {
	runes := []rune(norm.NFKC.String(s))

	var b strings.Builder
	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if i > 0 && j < len(runes) && !isCJK(runes[i-1]) && !isCJK(runes[j]) {
			b.WriteByte(' ')
		}
		i = j
	}
	return b.String()
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303f) || // CJK punctuation
		(r >= 0xff00 && r <= 0xffef) || // full-width forms left after NFKC
		r == 0x30fc // prolonged sound mark
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
