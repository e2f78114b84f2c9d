// internal/workers/recommendation/rerank-candidates/models.go
package rerankcandidates

import "cinesense/internal/models"

type Input struct {
	Candidates []models.ResolvedRecommendation `json:"candidates"`
	Analysis   models.AnalysisResult           `json:"analysis"`
	TopK       int                             `json:"topK,omitempty"`
}

type Output struct {
	Ranked []models.ScoredCandidate `json:"ranked"`
}

type cacheKey struct {
	IDs             string                 `json:"ids"`
	Intent          string                 `json:"intent"`
	Topics          []string               `json:"topics"`
	Personalization *float64               `json:"personalization"`
	Sentiment       float64                `json:"sentiment"`
	ExplicitFilters map[string]interface{} `json:"explicitFilters"`
	Safety          models.Safety          `json:"safety"`
	TopK            int                    `json:"topK"`
}
