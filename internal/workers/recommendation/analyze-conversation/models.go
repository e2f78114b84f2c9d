// internal/workers/recommendation/analyze-conversation/models.go
package analyzeconversation

import "cinesense/internal/models"

type Input struct {
	Message string   `json:"message" validate:"required,max=4000"`
	History []string `json:"history" validate:"max=50"`
	UserID  string   `json:"userId,omitempty"`
}

type Output struct {
	Analysis models.AnalysisResult `json:"analysis"`
}

// cacheKey is hashed as-is, so field order matters.
type cacheKey struct {
	Message string   `json:"message"`
	History []string `json:"history"`
}
