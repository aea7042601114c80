package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

func (rt *Router) uploadDataset(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		rt.writeMultipartError(w, r, err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	ds, err := rt.services.Datasets.Upload(
		r.Context(),
		userIDFromContext(r.Context()),
		r.FormValue("datasetName"),
		fileHeader.Filename,
		fileHeader.Size,
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ds)
}

func (rt *Router) analyzeDataset(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		rt.writeMultipartError(w, r, err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	schema, err := rt.services.Datasets.AnalyzeUpload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (rt *Router) listDatasets(w http.ResponseWriter, r *http.Request) {
	items, err := rt.services.Datasets.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": items})
}

func (rt *Router) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := rt.services.Datasets.Get(r.Context(), userIDFromContext(r.Context()), pathID(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (rt *Router) previewDataset(w http.ResponseWriter, r *http.Request) {
	preview, err := rt.services.Datasets.Preview(r.Context(), userIDFromContext(r.Context()), pathID(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (rt *Router) datasetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := rt.services.Datasets.Schema(r.Context(), userIDFromContext(r.Context()), pathID(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (rt *Router) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Datasets.Delete(r.Context(), userIDFromContext(r.Context()), pathID(r)); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) writeMultipartError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
}
