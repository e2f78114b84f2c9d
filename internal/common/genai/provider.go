// internal/common/genai/provider.go
package genai

import (
	"context"
	"errors"
)

var (
	ErrGenerationFailed      = errors.New("GENERATION_FAILED")
	ErrProviderNotConfigured = errors.New("PROVIDER_NOT_CONFIGURED")
)

// Request is one structured generation call. Schema is optional.
type Request struct {
	Prompt string
	Schema map[string]interface{}
}

// Provider produces either raw text (string) or an already decoded JSON value.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (interface{}, error)
}

// Attempt records one provider's failure.
type Attempt struct {
	Provider string
	Err      error
}

// GenerationError is returned when every provider failed. It reads as the
// primary provider's failure.
type GenerationError struct {
	Primary  error
	Attempts []Attempt
}

func (e *GenerationError) Error() string {
	if e.Primary == nil {
		return ErrGenerationFailed.Error()
	}
	return e.Primary.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Primary
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
