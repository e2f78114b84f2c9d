// internal/common/genai/gemini.go
package genai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	googlegenai "google.golang.org/genai"

	"cinesense/internal/common/config"
)

// Gemini calls generateContent through the Google GenAI SDK in JSON mode.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	retries     int
	httpClient  *http.Client

	once    sync.Once
	client  *googlegenai.Client
	initErr error
}

func NewGemini(cfg config.GeminiConfig) *Gemini {
	return &Gemini{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		retries:     cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
	}
}

func (g *Gemini) Name() string { return "gemini" }

// sdk builds the SDK client on first use; NewClient needs a context and can fail.
func (g *Gemini) sdk(ctx context.Context) (*googlegenai.Client, error) {
	g.once.Do(func() {
		cc := &googlegenai.ClientConfig{
			APIKey:     g.apiKey,
			Backend:    googlegenai.BackendGeminiAPI,
			HTTPClient: g.httpClient,
		}
		if g.baseURL != "" {
			cc.HTTPOptions = googlegenai.HTTPOptions{BaseURL: g.baseURL + "/", APIVersion: "v1beta"}
		}
		g.client, g.initErr = googlegenai.NewClient(ctx, cc)
	})
	return g.client, g.initErr
}

func (g *Gemini) Generate(ctx context.Context, req Request) (interface{}, error) {
	if g.apiKey == "" {
		return nil, ErrProviderNotConfigured
	}

	client, err := g.sdk(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}

	genCfg := &googlegenai.GenerateContentConfig{
		Temperature:      googlegenai.Ptr(float32(g.temperature)),
		ResponseMIMEType: "application/json",
	}
	if req.Schema != nil {
		genCfg.ResponseJsonSchema = req.Schema
	}

	var resp *googlegenai.GenerateContentResponse
	for attempt := 0; ; attempt++ {
		resp, err = client.Models.GenerateContent(ctx, g.model, googlegenai.Text(req.Prompt), genCfg)
		if err == nil || attempt >= g.retries || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}
	return resp.Text(), nil
}
