// Package llm wraps the chat-completion calls the pipeline makes against an
// OpenAI-compatible endpoint: question decomposition, lecture script
// generation, slide structuring, and per-slide field extraction.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"lecturegen/internal/apperr"
	"lecturegen/internal/observability"
)

// Message is a single chat turn.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Completer is the chat-completion surface the pipeline depends on. Client
// and MockCompleter both satisfy it so ORPHEUS_DEBUG can swap in canned
// output without touching call sites.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Client issues chat completions against a configured OpenAI-compatible
// endpoint (the coursework's self-hosted llama.cpp server in practice).
type Client struct {
	inner *openai.Client
}

var _ Completer = (*Client)(nil)
var _ Completer = MockCompleter{}

// New builds a Client pointed at baseURL (empty means the SDK's public
// OpenAI default) using httpClient for the underlying transport so every
// collaborator call shares the same tracing and timeout configuration.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	c := openai.NewClient(opts...)
	return &Client{inner: &c}
}

// Complete sends messages to model and returns the first choice's content.
// A CollaboratorUnavailable error is returned on transport/API failure; an
// empty-choices response is treated the same way since it leaves nothing
// for the caller to parse.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toSDKMessages(messages),
		Temperature: param.NewOpt(temperature),
		MaxTokens:   param.NewOpt(int64(maxTokens)),
	}

	resp, err := c.inner.Chat.Completions.New(ctx, params)
	if err != nil {
		if raw, marshalErr := json.Marshal(params); marshalErr == nil {
			log.Error().Str("model", model).RawJSON("request", observability.RedactJSON(raw)).
				Err(err).Msg("llm: chat completion request failed")
		}
		return "", apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("llm: chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.CollaboratorUnavailable, fmt.Errorf("llm: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func toSDKMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
