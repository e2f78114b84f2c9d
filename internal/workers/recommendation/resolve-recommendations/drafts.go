// internal/workers/recommendation/resolve-recommendations/drafts.go
package resolverecommendations

import (
	"fmt"
	"strconv"
	"strings"

	"cinesense/internal/models"
)

// ParseDrafts reads the greeting and the usable drafts from model output.
// Drafts without a title are dropped; the type is lowercased.
func ParseDrafts(raw interface{}) (string, []models.RecommendationDraft) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return "", nil
	}

	var greeting string
	if g, ok := obj["greeting"]; ok && truthy(g) {
		greeting = stringify(g)
	}

	items, _ := obj["recommendations"].([]interface{})
	drafts := make([]models.RecommendationDraft, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		var title string
		switch t := rec["title"].(type) {
		case string:
			title = strings.TrimSpace(t)
		case float64:
			title = stringify(t)
		}
		if title == "" {
			continue
		}

		draft := models.RecommendationDraft{Title: title}
		if t, ok := rec["type"].(string); ok {
			draft.Type = strings.ToLower(t)
		}
		if r, ok := rec["reason"]; ok && truthy(r) {
			draft.Reason = stringify(r)
		}
		drafts = append(drafts, draft)
	}
	return greeting, drafts
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
	default:
		return fmt.Sprint(t)
	}
}
