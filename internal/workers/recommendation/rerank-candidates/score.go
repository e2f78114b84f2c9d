// internal/workers/recommendation/rerank-candidates/score.go
package rerankcandidates

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"cinesense/internal/models"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01", "2006"}

// Signals is the analysis reduced to what scoring reads.
type Signals struct {
	Topics          []string
	Intent          string
	Personalization float64
	Sentiment       float64
	NSFW            bool
}

func SignalsFrom(a models.AnalysisResult) Signals {
	s := Signals{
		Intent:    strings.ToLower(a.Intent),
		Sentiment: finite(a.Sentiment.Score),
		NSFW:      a.Safety.NSFW,
	}
	if a.PersonalizationScore != nil {
		s.Personalization = finite(*a.PersonalizationScore)
	}
	for _, t := range a.Topics {
		s.Topics = append(s.Topics, strings.ToLower(t))
	}
	return s
}

// Score returns the final score of item and a "; "-joined breakdown.
func Score(item models.MediaItem, s Signals, now time.Time) (float64, string) {
	vote := 5.0
	if item.VoteAverage != nil {
		vote = clamp(finite(*item.VoteAverage), 0, 10)
	}
	vote /= 10

	pop := 0.0
	if item.Popularity != nil && *item.Popularity > 0 {
		pop = finite(*item.Popularity)
	}
	popularity := math.Min(1, math.Log(1+pop)/10)

	base := 0.45*vote + 0.35*popularity + 0.2*recency(item.Date(), now)

	genreBoost := 0.0
	if len(item.Genres) > 0 && len(s.Topics) > 0 {
		names := make(map[string]bool, len(item.Genres))
		for _, g := range item.Genres {
			names[strings.ToLower(g.Name)] = true
		}
		overlap := 0
		for _, t := range s.Topics {
			if names[t] {
				overlap++
			}
		}
		genreBoost = math.Min(0.35, 0.08*float64(overlap))
	}

	langBoost := 0.0
	if lang := strings.ToLower(item.OriginalLanguage); lang != "" && len(s.Topics) > 0 {
		if strings.Contains(strings.Join(s.Topics, " "), lang) {
			langBoost = 0.06
		}
	}

	topical := 0.0
	text := strings.ToLower(item.Title + " " + item.Overview)
	for _, t := range s.Topics {
		if t != "" && strings.Contains(text, t) {
			topical += 0.05
		}
	}
	topical = math.Min(0.25, topical)

	personalization := 1 + 0.25*s.Personalization
	sentiment := 1 + 0.12*s.Sentiment

	intent := 1.0
	if strings.Contains(s.Intent, "mood") {
		intent += 0.06
	}
	if strings.Contains(s.Intent, "classic") || strings.Contains(s.Intent, "older") {
		intent += 0.04
	}

	safety := 1.0
	if s.NSFW && item.Adult {
		safety = 0.2
	}

	pre := base + genreBoost + langBoost + topical
	final := pre * personalization * sentiment * intent * safety

	parts := []string{fmt.Sprintf("base=%.3f", pre)}
	for _, boost := range []struct {
		name  string
		value float64
	}{{"genre", genreBoost}, {"lang", langBoost}, {"topic", topical}} {
		if boost.value > 0 {
			parts = append(parts, fmt.Sprintf("%s+%.3f", boost.name, boost.value))
		}
	}
	for _, m := range []struct {
		name  string
		value float64
	}{{"personalization", personalization}, {"sentiment", sentiment}, {"intent", intent}, {"safety", safety}} {
		if m.value != 1 {
			parts = append(parts, fmt.Sprintf("%s*x%.3f", m.name, m.value))
		}
	}
	parts = append(parts, fmt.Sprintf("final=%.3f", final))

	return final, strings.Join(parts, "; ")
}

// Rank scores every candidate and returns the best topK, ties keeping input order.
func Rank(candidates []models.ResolvedRecommendation, a models.AnalysisResult, topK int, now time.Time) []models.ScoredCandidate {
	s := SignalsFrom(a)

	scored := make([]models.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		score, explanation := Score(c.Item, s, now)
		scored[i] = models.ScoredCandidate{ResolvedRecommendation: c, Score: score, Explanation: explanation}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

func recency(date string, now time.Time) float64 {
	if len(date) < 4 {
		return 0
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, date)
		if err != nil {
			continue
		}
		daysOld := math.Max(0, now.Sub(t).Hours()/24)
		return 1 / (1 + math.Log1p(daysOld+1)/365)
	}
	return 0
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
