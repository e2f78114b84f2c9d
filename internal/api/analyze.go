// internal/api/analyze.go
package api

import (
	"net/http"
	"strings"

	analyzeconversation "cinesense/internal/workers/recommendation/analyze-conversation"
	rerankcandidates "cinesense/internal/workers/recommendation/rerank-candidates"

	"cinesense/internal/common/validation"
)

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var input analyzeconversation.Input
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(input.Message) == "" {
		writeError(w, http.StatusBadRequest, "Empty message")
		return
	}
	if result := validation.Struct(input); !result.Valid {
		writeError(w, http.StatusBadRequest, result.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Analyzer.Analyze(r.Context(), &input))
}

func (s *Server) rerank(w http.ResponseWriter, r *http.Request) {
	var input rerankcandidates.Input
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ranked := s.deps.Reranker.Rerank(r.Context(), input.Candidates, input.Analysis, s.topKOr(input.TopK))
	writeJSON(w, http.StatusOK, rerankcandidates.Output{Ranked: ranked})
}
