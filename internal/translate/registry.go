package translate

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Settings selects and configures a translator.
type Settings struct {
	Provider   string // openai | none
	APIKey     string
	BaseURL    string
	Model      string
	Source     string
	Target     string
	Uppercase  bool
	MaxRetries uint64
	RetryDelay time.Duration
}

// New creates the translator for s.Provider.
func New(s Settings) (Translator, error) {
	var t Translator
	switch s.Provider {
	case "none", "":
		t = Identity{}
	case "openai":
		o, err := NewOpenAI(OpenAIConfig{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Source:     s.Source,
			Target:     s.Target,
			MaxRetries: s.MaxRetries,
			RetryDelay: s.RetryDelay,
		})
		if err != nil {
			return nil, err
		}
		t = o
	default:
		return nil, fmt.Errorf("unknown translation provider: %s", s.Provider)
	}

	if s.Uppercase {
		t = Uppercase(t, language.English)
	}
	return t, nil
}
