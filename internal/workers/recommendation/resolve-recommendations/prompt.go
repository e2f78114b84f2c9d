// internal/workers/recommendation/resolve-recommendations/prompt.go
package resolverecommendations

import (
	"strings"

	"cinesense/internal/models"
)

const systemIntro = `You are CineSense, an assistant that recommends movies and TV shows based on user preferences. Respond in JSON only with the shape: { greeting?: string, recommendations: [{ title: string, type: "Movie" | "TV Show", reason?: string }] }`

// BuildPrompt renders the persona, the transcript and the new message,
// separated by blank lines.
func BuildPrompt(message string, history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Assistant"
		if m.Role == models.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+m.Content)
	}

	parts := []string{systemIntro, strings.Join(lines, "\n"), "User: " + message, "Assistant:"}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// ResponseSchema constrains the reply to a greeting plus titled drafts.
func ResponseSchema() map[string]interface{} {
	str := func() map[string]interface{} { return map[string]interface{}{"type": "string"} }

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"greeting": str(),
			"recommendations": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title":  str(),
						"type":   str(),
						"reason": str(),
					},
					"required": []interface{}{"title", "type"},
				},
			},
		},
	}
}
