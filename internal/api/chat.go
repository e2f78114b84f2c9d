// internal/api/chat.go
package api

import (
	"net/http"
	"strings"

	analyzeconversation "cinesense/internal/workers/recommendation/analyze-conversation"
	resolverecommendations "cinesense/internal/workers/recommendation/resolve-recommendations"

	apperrors "cinesense/internal/common/errors"
	"cinesense/internal/common/validation"
	"cinesense/internal/models"
)

type chatRequest struct {
	Message string               `json:"message" validate:"max=4000"`
	History []models.ChatMessage `json:"history" validate:"max=50"`
	Rerank  bool                 `json:"rerank"`
	TopK    int                  `json:"topK" validate:"omitempty,min=1,max=50"`
}

type chatResponse struct {
	Greeting        string                 `json:"greeting,omitempty"`
	Recommendations interface{}            `json:"recommendations"`
	Analysis        *models.AnalysisResult `json:"analysis,omitempty"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Empty message")
		return
	}
	if result := validation.Struct(req); !result.Valid {
		writeError(w, http.StatusBadRequest, result.Error())
		return
	}

	ctx := r.Context()
	reply, err := s.deps.Resolver.Execute(ctx, &resolverecommendations.Input{
		Message: req.Message,
		History: req.History,
	})
	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		s.logger.Error("chat failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Message,
			"requestId": RequestIDFrom(ctx),
		})
		writeError(w, apperrors.HTTPStatus(stdErr.Code), stdErr.Message)
		return
	}

	resp := chatResponse{Greeting: reply.Greeting, Recommendations: reply.Recommendations}
	if req.Rerank && s.deps.Analyzer != nil && s.deps.Reranker != nil {
		analysis := s.deps.Analyzer.Analyze(ctx, &analyzeconversation.Input{
			Message: req.Message,
			History: models.Contents(req.History),
		})
		resp.Recommendations = s.deps.Reranker.Rerank(ctx, reply.Recommendations, analysis, s.topKOr(req.TopK))
		resp.Analysis = &analysis
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) topKOr(topK int) int {
	if topK > 0 {
		return topK
	}
	return s.topK
}
