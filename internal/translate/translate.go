// Package translate turns OCR text into the target language. Failures never
// lose a position: WithFallback substitutes the original text element-wise.
package translate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrLengthMismatch is returned when a provider answers with a different
// number of strings than it was given.
var ErrLengthMismatch = errors.New("translation length mismatch")

// Translator translates a batch of strings, preserving order and length.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Outcome tells whether a position holds a translation or its original.
type Outcome string

const (
	OutcomeTranslated Outcome = "translated"
	OutcomeFallback   Outcome = "fallback"
)

// BatchResult always has one text and one outcome per input.
type BatchResult struct {
	Texts    []string
	Outcomes []Outcome
	Err      error // provider error that caused a fallback, if any
}

// Fallbacks counts positions that kept their original text.
func (r BatchResult) Fallbacks() int {
	n := 0
	for _, o := range r.Outcomes {
		if o == OutcomeFallback {
			n++
		}
	}
	return n
}

// WithFallback runs t and falls back to the original string at every position
// the provider failed to fill. It never returns fewer items than texts.
func WithFallback(ctx context.Context, t Translator, texts []string) BatchResult {
	res := BatchResult{
		Texts:    make([]string, len(texts)),
		Outcomes: make([]Outcome, len(texts)),
	}
	copy(res.Texts, texts)
	for i := range res.Outcomes {
		res.Outcomes[i] = OutcomeFallback
	}
	if len(texts) == 0 {
		return res
	}

	out, err := t.TranslateBatch(ctx, texts)
	if err != nil {
		res.Err = err
		return res
	}
	if len(out) != len(texts) {
		res.Err = fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(out), len(texts))
	}
	for i := 0; i < len(texts) && i < len(out); i++ {
		res.Texts[i] = out[i]
		res.Outcomes[i] = OutcomeTranslated
	}
	return res
}

// Identity returns every text unchanged. It backs the "none" provider.
type Identity struct{}

func (Identity) TranslateBatch(_ context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
}

// upper upper-cases every translation of the wrapped translator. Lettering in
// comics is conventionally all caps.
type upper struct {
	next Translator
	tag  language.Tag
}

// Uppercase wraps t so its results are upper-cased with the rules of tag.
func Uppercase(t Translator, tag language.Tag) Translator {
	return upper{next: t, tag: tag}
}

func (u upper) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	out, err := u.next.TranslateBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	// Casers are stateful; one per call.
	c := cases.Upper(u.tag)
	for i, s := range out {
		out[i] = c.String(s)
	}
	return out, nil
}
