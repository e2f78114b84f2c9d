// internal/common/genai/openai.go
package genai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"cinesense/internal/common/config"
	"cinesense/internal/common/jsonx"
)

const jsonOnlyInstruction = "Respond with a single valid JSON value and nothing else."

// OpenAI targets any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: config.GetDuration(cfg.Timeout)}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req Request) (interface{}, error) {
	system := jsonOnlyInstruction
	if req.Schema != nil {
		schema, err := jsonx.MarshalToString(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema: %w", err)
		}
		system += " The value must match this JSON schema: " + schema
	}

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
