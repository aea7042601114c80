package httpadapter

import (
	"net/http"
	"strings"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

type questionsRequest struct {
	Query     string                `json:"query"`
	DatasetID string                `json:"datasetId"`
	Schema    *domain.SchemaSummary `json:"schema"`
}

// clarifyingQuestions takes the schema from a stored dataset when datasetId is
// given, otherwise from the request body. Provider failures never reach the
// caller.
func (rt *Router) clarifyingQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	var summary domain.SchemaSummary
	switch {
	case strings.TrimSpace(req.DatasetID) != "":
		schema, err := rt.services.Datasets.Schema(r.Context(), userIDFromContext(r.Context()), req.DatasetID)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		summary = schema.Summary()
	case req.Schema != nil:
		summary = *req.Schema
	}

	questions := rt.services.Recommender.GenerateQuestions(r.Context(), query, summary)
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type refineRequest struct {
	Query      string             `json:"query"`
	Candidates []domain.Candidate `json:"candidates"`
}

func (rt *Router) refineCandidates(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if req.Candidates == nil {
		req.Candidates = []domain.Candidate{}
	}

	result := rt.services.Recommender.Refine(r.Context(), strings.TrimSpace(req.Query), req.Candidates)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entry, err := rt.services.Search.Search(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		if domain.IsKind(err, domain.ErrUsageLimit) {
			w.Header().Set("Retry-After", "86400")
		}
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) usage(w http.ResponseWriter, r *http.Request) {
	usage, err := rt.services.Usage.Status(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
