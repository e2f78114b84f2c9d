// internal/models/analysis.go
package models

import (
	"maps"
	"slices"
)

const (
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
)

type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type Safety struct {
	NSFW     bool     `json:"nsfw,omitempty"`
	Violence bool     `json:"violence,omitempty"`
	Adult    bool     `json:"adult,omitempty"`
	Other    []string `json:"other,omitempty"`
}

// AnalysisResult is the structured signal set extracted from a conversation.
type AnalysisResult struct {
	Intent               string                 `json:"intent"`
	Sentiment            Sentiment              `json:"sentiment"`
	Topics               []string               `json:"topics"`
	ExplicitFilters      map[string]interface{} `json:"explicitFilters"`
	Safety               Safety                 `json:"safety"`
	PersonalizationScore *float64               `json:"personalizationScore,omitempty"`
	Confidence           float64                `json:"confidence"`
	Explanation          string                 `json:"explanation"`
}

// Clone returns a copy that shares no slices or maps with r. Filter values are
// copied shallowly.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Topics = slices.Clone(r.Topics)
	out.ExplicitFilters = maps.Clone(r.ExplicitFilters)
	out.Safety.Other = slices.Clone(r.Safety.Other)
	if r.PersonalizationScore != nil {
		p := *r.PersonalizationScore
		out.PersonalizationScore = &p
	}
	return out
}

const (
	FailSafeConfidence  = 0.2
	FailSafeExplanation = "analysis-failed"
)

// FailSafeAnalysis is returned whenever analysis cannot produce a real result.
func FailSafeAnalysis() AnalysisResult {
	return AnalysisResult{
		Intent:          "unknown",
		Sentiment:       Sentiment{Score: 0, Label: SentimentNeutral},
		Topics:          []string{},
		ExplicitFilters: map[string]interface{}{},
		Safety:          Safety{},
		Confidence:      FailSafeConfidence,
		Explanation:     FailSafeExplanation,
	}
}
