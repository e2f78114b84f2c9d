// internal/common/genai/fallback.go
package genai

import (
	"context"
	"fmt"
	"net/http"

	"cinesense/internal/common/config"
	httpclient "cinesense/internal/common/http"
)

// HTTPFallback posts {prompt, schema?} to a generic generation endpoint.
type HTTPFallback struct {
	url    string
	apiKey string
	client *httpclient.Client
}

func NewHTTPFallback(cfg config.FallbackConfig) *HTTPFallback {
	return &HTTPFallback{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		client: httpclient.NewClient(config.GetDuration(cfg.Timeout), httpclient.WithRetries(1)),
	}
}

func (f *HTTPFallback) Name() string { return "fallback" }

func (f *HTTPFallback) Generate(ctx context.Context, req Request) (interface{}, error) {
	if f.url == "" {
		return nil, ErrProviderNotConfigured
	}

	payload := map[string]interface{}{"prompt": req.Prompt}
	if req.Schema != nil {
		payload["schema"] = req.Schema
	}

	headers := map[string]string{}
	if f.apiKey != "" {
		headers["Authorization"] = "Bearer " + f.apiKey
	}

	resp, err := f.client.Send(ctx, http.MethodPost, f.url, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("fallback request failed: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fallback returned status %d", resp.StatusCode)
	}
	return decodeBody(resp.Body), nil
}
