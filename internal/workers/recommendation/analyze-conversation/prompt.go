// internal/workers/recommendation/analyze-conversation/prompt.go
package analyzeconversation

import (
	"strings"

	"cinesense/internal/common/jsonx"
)

const promptHeader = `You are an assistant that analyzes user messages and conversation history.
Return a JSON object with the following fields:

- intent: a short intent label (e.g., "find_movie", "mood", "explain", "filter")
- sentiment: { score: number between -1 and 1, label: "negative"|"neutral"|"positive" }
- topics: an array of topical keywords or short phrases
- explicitFilters: object with obvious constraints (e.g., { min_rating: 7, max_runtime: 120 })
- safety: object with boolean flags for nsfw, violence, adult
- confidence: number between 0 and 1
- explanation: short string describing the analysis

`

// BuildPrompt embeds the message and the JSON-encoded history verbatim.
func BuildPrompt(message string, history []string) string {
	if history == nil {
		history = []string{}
	}
	encoded, err := jsonx.MarshalToString(history)
	if err != nil {
		encoded = "[]"
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("User message:\n")
	b.WriteString(message)
	b.WriteString("\n\nHistory:\n")
	b.WriteString(encoded)
	b.WriteString("\n\nRespond ONLY with valid JSON.")
	return b.String()
}
