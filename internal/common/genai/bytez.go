// internal/common/genai/bytez.go
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cinesense/internal/common/config"
	httpclient "cinesense/internal/common/http"
	"cinesense/internal/common/jsonx"
)

// Bytez runs a hosted model through the model-run API and falls back to a
// raw HTTP endpoint when that fails.
type Bytez struct {
	apiKey  string
	modelID string
	baseURL string

	// raw HTTP transport
	rawURL string
	rawKey string

	client *httpclient.Client
}

// NewBytez builds the provider. fb supplies URL/key defaults for the raw transport.
func NewBytez(cfg config.BytezConfig, fb config.FallbackConfig) *Bytez {
	return &Bytez{
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		rawURL:  firstNonEmpty(cfg.APIURL, fb.APIURL),
		rawKey:  firstNonEmpty(cfg.APIKey, fb.APIKey),
		client:  httpclient.NewClient(config.GetDuration(cfg.Timeout), httpclient.WithRetries(1)),
	}
}

func (b *Bytez) Name() string { return "bytez" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bytezRunRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type bytezRunResponse struct {
	Error  interface{} `json:"error"`
	Output interface{} `json:"output"`
}

func (b *Bytez) Generate(ctx context.Context, req Request) (interface{}, error) {
	text, runErr := b.run(ctx, req)
	if runErr == nil {
		return text, nil
	}
	if b.rawURL == "" {
		return nil, runErr
	}

	value, err := b.post(ctx, req)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	return value, nil
}

func (b *Bytez) run(ctx context.Context, req Request) (string, error) {
	if b.apiKey == "" {
		return "", ErrProviderNotConfigured
	}

	payload := bytezRunRequest{
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	resp, err := b.client.Send(ctx, http.MethodPost, b.baseURL+"/"+b.modelID, payload, map[string]string{
		"Authorization": "Key " + b.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("bytez run failed: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("bytez run returned status %d", resp.StatusCode)
	}

	var out bytezRunResponse
	if err := jsonx.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("failed to decode bytez response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("bytez model error: %v", out.Error)
	}
	return outputText(out.Output, resp.Body), nil
}

func (b *Bytez) post(ctx context.Context, req Request) (interface{}, error) {
	payload := map[string]interface{}{
		"input": []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.Schema != nil {
		payload["schema"] = req.Schema
	}

	headers := map[string]string{}
	if b.rawKey != "" {
		headers["Authorization"] = "Bearer " + b.rawKey
	}

	resp, err := b.client.Send(ctx, http.MethodPost, b.rawURL, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("bytez http fallback failed: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("bytez http fallback returned status %d", resp.StatusCode)
	}
	return decodeBody(resp.Body), nil
}

// outputText flattens a model-run output into text.
func outputText(output interface{}, raw []byte) string {
	switch v := output.(type) {
	case nil:
		return string(raw)
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			if m, ok := entry.(map[string]interface{}); ok {
				if s, ok := m["content"].(string); ok {
					parts = append(parts, s)
					continue
				}
			}
			s, _ := jsonx.MarshalToString(entry)
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n")
	case map[string]interface{}:
		if s, ok := v["content"].(string); ok {
			return s
		}
		if s, ok := v["text"].(string); ok {
			return s
		}
		s, _ := jsonx.MarshalToString(v)
		return s
	default:
		s, _ := jsonx.MarshalToString(v)
		return s
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
