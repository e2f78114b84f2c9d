// internal/workers/recommendation/analyze-conversation/normalize.go
package analyzeconversation

import (
	"fmt"
	"strconv"

	"cinesense/internal/models"
)

const defaultConfidence = 0.6

// Normalize maps model output onto an AnalysisResult, defaulting every field
// that is missing or has the wrong type. Output that is not an object yields
// the all-defaults result at the default confidence.
func Normalize(raw interface{}) models.AnalysisResult {
	obj, _ := raw.(map[string]interface{})

	result := models.AnalysisResult{
		Intent:          "unknown",
		Sentiment:       normalizeSentiment(obj["sentiment"]),
		Topics:          normalizeTopics(obj["topics"]),
		ExplicitFilters: map[string]interface{}{},
		Safety:          normalizeSafety(obj["safety"]),
		Confidence:      defaultConfidence,
	}

	if s, ok := obj["intent"].(string); ok {
		result.Intent = s
	}
	if filters, ok := obj["explicitFilters"].(map[string]interface{}); ok {
		result.ExplicitFilters = filters
	}
	if c, ok := obj["confidence"].(float64); ok {
		result.Confidence = clamp(c, 0, 1)
	}
	if v, ok := obj["explanation"]; ok && truthy(v) {
		result.Explanation = stringify(v)
	}
	if p, ok := obj["personalizationScore"].(float64); ok {
		result.PersonalizationScore = &p
	}

	return result
}

func normalizeSentiment(v interface{}) models.Sentiment {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return models.Sentiment{Score: 0, Label: models.SentimentNeutral}
	}

	var score float64
	switch s := obj["score"].(type) {
	case float64:
		score = s
	case string:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			score = f
		}
	}
	score = clamp(score, -1, 1)

	label, _ := obj["label"].(string)
	switch label {
	case models.SentimentNegative, models.SentimentNeutral, models.SentimentPositive:
	case "":
		label = models.SentimentNeutral
	default:
		label = labelFor(score)
	}

	return models.Sentiment{Score: score, Label: label}
}

func labelFor(score float64) string {
	switch {
	case score > 0:
		return models.SentimentPositive
	case score < 0:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func normalizeTopics(v interface{}) []string {
	items, ok := v.([]interface{})
	topics := []string{}
	if !ok {
		return topics
	}
	for _, item := range items {
		switch t := item.(type) {
		case string:
			topics = append(topics, t)
		case float64, bool:
			topics = append(topics, stringify(t))
		}
	}
	return topics
}

func normalizeSafety(v interface{}) models.Safety {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return models.Safety{}
	}

	safety := models.Safety{
		NSFW:     truthy(obj["nsfw"]),
		Violence: truthy(obj["violence"]),
		Adult:    truthy(obj["adult"]),
	}
	if other, ok := obj["other"].([]interface{}); ok {
		for _, o := range other {
			if s, ok := o.(string); ok {
				safety.Other = append(safety.Other, s)
			}
		}
	}
	return safety
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
