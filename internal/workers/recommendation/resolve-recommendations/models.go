// internal/workers/recommendation/resolve-recommendations/models.go
package resolverecommendations

import "cinesense/internal/models"

type Input struct {
	Message string               `json:"message"`
	History []models.ChatMessage `json:"history"`
}

type Output = models.ChatReply
