// internal/models/recommendation.go
package models

// RecommendationDraft is a title proposed by the model before catalog lookup.
// Type is free text such as "Movie" or "TV Show".
type RecommendationDraft struct {
	Title  string `json:"title"`
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedRecommendation is a draft matched (or not) against the catalog.
type ResolvedRecommendation struct {
	MediaType MediaType `json:"mediaType"`
	Reason    string    `json:"reason,omitempty"`
	Item      MediaItem `json:"item"`
}

// ScoredCandidate is a reranked recommendation.
type ScoredCandidate struct {
	ResolvedRecommendation
	Score       float64 `json:"_score"`
	Explanation string  `json:"_explanation"`
}

// ChatReply is the resolver's answer to one chat turn.
type ChatReply struct {
	Greeting        string                   `json:"greeting,omitempty"`
	Recommendations []ResolvedRecommendation `json:"recommendations"`
}
