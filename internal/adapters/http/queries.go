package httpadapter

import (
	"net/http"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

func (rt *Router) listQueries(w http.ResponseWriter, r *http.Request) {
	items, err := rt.services.History.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.QueryHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": items})
}

func (rt *Router) createQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.NewQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entry, err := rt.services.History.Create(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (rt *Router) getQuery(w http.ResponseWriter, r *http.Request) {
	entry, err := rt.services.History.Get(r.Context(), userIDFromContext(r.Context()), pathID(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type queryUpdateRequest struct {
	Status           *domain.QueryStatus      `json:"status"`
	Results          *domain.RefinementResult `json:"results"`
	Metadata         map[string]any           `json:"metadata"`
	ProcessingStages []domain.ProcessingStage `json:"processingStages"`
}

func (rt *Router) updateQuery(w http.ResponseWriter, r *http.Request) {
	var req queryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entry, err := rt.services.History.Update(r.Context(), userIDFromContext(r.Context()), pathID(r), domain.QueryUpdate{
		Status:           req.Status,
		Results:          req.Results,
		Metadata:         req.Metadata,
		ProcessingStages: req.ProcessingStages,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) deleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.History.Delete(r.Context(), userIDFromContext(r.Context()), pathID(r)); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
