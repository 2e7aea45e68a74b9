package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures a chat-completion translator. Any OpenAI
// compatible endpoint works through BaseURL.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Source     string // source language name, e.g. "Japanese"
	Target     string // target language name, e.g. "English"
	MaxRetries uint64
	RetryDelay time.Duration
}

// OpenAITranslator sends the whole batch as one JSON array and expects a JSON
// array of the same length back.
type OpenAITranslator struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai translator: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Source == "" {
		cfg.Source = "Japanese"
	}
	if cfg.Target == "" {
		cfg.Target = "English"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return &OpenAITranslator{client: openai.NewClientWithConfig(c), cfg: cfg}, nil
}

func (t *OpenAITranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.cfg.RetryDelay), t.cfg.MaxRetries), ctx)

	out, err := backoff.RetryWithData(func() ([]string, error) {
		out, err := t.complete(ctx, string(payload))
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(out), len(texts))
		}
		return out, nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("openai translate: %w", err)
	}
	return out, nil
}

func (t *OpenAITranslator) complete(ctx context.Context, payload string) ([]string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.cfg.Model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: t.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: `["おはよう", "行くぞ！"]`},
			{Role: openai.ChatMessageRoleAssistant, Content: `["Good morning", "Let's go!"]`},
			{Role: openai.ChatMessageRoleUser, Content: payload},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion")
	}
	return parseArray(resp.Choices[0].Message.Content)
}

func (t *OpenAITranslator) systemPrompt() string {
	return fmt.Sprintf(`You translate %s comic speech bubbles into %s.
The user sends a JSON array of strings. Reply with a JSON array of the same length,
one translation per element, in the same order. Reply with JSON only.`, t.cfg.Source, t.cfg.Target)
}

// parseArray extracts a JSON string array from a reply, tolerating a fenced
// code block around it.
func parseArray(content string) ([]string, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply %q", content)
	}
	var out []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}
