// internal/common/genai/gateway.go
package genai

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cinesense/internal/common/config"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/metrics"
)

// Generator is what pipeline stages depend on.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}) (interface{}, error)
}

// Gateway asks the primary provider for JSON and walks the fallback chain
// when the primary fails or its output cannot be decoded.
type Gateway struct {
	primary   Provider
	fallbacks []Provider
	breakers  map[string]*gobreaker.CircuitBreaker[interface{}]
	logger    logger.Logger
	tracer    trace.Tracer
	debug     bool
}

type Option func(*Gateway)

func WithDebug(debug bool) Option {
	return func(g *Gateway) { g.debug = debug }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		if t != nil {
			g.tracer = t
		}
	}
}

func NewGateway(primary Provider, fallbacks []Provider, breaker config.BreakerConfig, log logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		primary:   primary,
		fallbacks: fallbacks,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[interface{}]),
		logger:    log.With(map[string]interface{}{"component": "genai"}),
		tracer:    otel.Tracer("cinesense/genai"),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, p := range append([]Provider{primary}, fallbacks...) {
		g.breakers[p.Name()] = newBreaker(p.Name(), breaker, g.logger)
	}
	return g
}

// New wires the provider chain from configuration: Gemini first, then Bytez
// (or the generic endpoint when Bytez is not set up), then OpenAI.
func New(cfg config.GenAIConfig, log logger.Logger, opts ...Option) *Gateway {
	var fallbacks []Provider
	switch {
	case cfg.Bytez.Enabled():
		fallbacks = append(fallbacks, NewBytez(cfg.Bytez, cfg.Fallback))
	case cfg.Fallback.APIURL != "":
		fallbacks = append(fallbacks, NewHTTPFallback(cfg.Fallback))
	}
	if cfg.OpenAI.APIKey != "" {
		fallbacks = append(fallbacks, NewOpenAI(cfg.OpenAI))
	}

	opts = append([]Option{WithDebug(cfg.Debug)}, opts...)
	return NewGateway(NewGemini(cfg.Gemini), fallbacks, cfg.Breaker, log, opts...)
}

// Providers lists the chain in call order.
func (g *Gateway) Providers() []string {
	names := []string{g.primary.Name()}
	for _, p := range g.fallbacks {
		names = append(names, p.Name())
	}
	return names
}

func (g *Gateway) GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}) (interface{}, error) {
	req := Request{Prompt: prompt, Schema: schema}

	value, primaryErr := g.attempt(ctx, g.primary, req)
	if primaryErr == nil {
		return value, nil
	}

	attempts := []Attempt{{Provider: g.primary.Name(), Err: primaryErr}}
	g.trace("primary failed", map[string]interface{}{
		"provider": g.primary.Name(),
		"error":    primaryErr.Error(),
	})

	for _, p := range g.fallbacks {
		if ctx.Err() != nil {
			break
		}

		value, err := g.attempt(ctx, p, req)
		if err != nil {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			g.trace("fallback failed", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			continue
		}

		g.trace("fallback succeeded", map[string]interface{}{"provider": p.Name()})
		return value, nil
	}

	genErr := &GenerationError{Primary: primaryErr, Attempts: attempts}
	g.logger.Error("all generation providers failed", map[string]interface{}{
		"attempts": len(attempts),
		"error":    genErr.Error(),
	})
	return nil, genErr
}

// attempt runs one provider behind its breaker and decodes the result.
func (g *Gateway) attempt(ctx context.Context, p Provider, req Request) (interface{}, error) {
	ctx, span := g.tracer.Start(ctx, "genai.generate", trace.WithAttributes(
		attribute.String("genai.provider", p.Name()),
		attribute.Bool("genai.schema", req.Schema != nil),
	))
	defer span.End()

	start := time.Now()
	raw, err := g.breakers[p.Name()].Execute(func() (interface{}, error) {
		return p.Generate(ctx, req)
	})
	metrics.GenAIProviderDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	var value interface{}
	if err == nil {
		value, err = decode(raw)
	}

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrProviderNotConfigured):
		outcome = "not_configured"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	default:
		outcome = "error"
	}
	metrics.GenAIProviderRequests.WithLabelValues(p.Name(), outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	return value, nil
}

func (g *Gateway) trace(msg string, fields map[string]interface{}) {
	if g.debug {
		g.logger.Info(msg, fields)
	}
}
