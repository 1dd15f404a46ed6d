package capability

import (
	"context"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// GenerateOptions constrains a single text-generation call.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	System      string  `json:"system,omitempty"`
}

// Generator is the text-generation capability consumed by the report and
// auditor agents. Implementations fail with GENERATION_ERROR on backend
// unavailability or content-policy rejection.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// chat-completions wire format, the lingua franca of generation backends.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// HTTPGenerator calls a chat-completions compatible generation backend.
type HTTPGenerator struct {
	base         *baseClient
	defaultModel string
}

// NewHTTPGenerator creates a generation client for the configured backend.
func NewHTTPGenerator(cfg ClientConfig, model string, logger *zap.Logger) *HTTPGenerator {
	if cfg.Name == "" {
		cfg.Name = "generation"
	}
	return &HTTPGenerator{
		base:         newBaseClient(cfg, logger),
		defaultModel: model,
	}
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if prompt == "" {
		return "", types.NewError(types.ErrInvalidInput, "empty prompt")
	}

	model := opts.Model
	if model == "" {
		model = g.defaultModel
	}
	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	var resp chatResponse
	err := g.base.postJSON(ctx, "/v1/chat/completions", chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, &resp)
	if err != nil {
		if types.IsRetryable(err) || types.CodeOf(err) == types.ErrCancelled {
			return "", err
		}
		return "", types.NewError(types.ErrGeneration, "generation backend rejected request").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return "", types.NewError(types.ErrGeneration, "generation backend returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", types.NewError(types.ErrGeneration, "generation rejected by content policy")
	}
	return choice.Message.Content, nil
}
