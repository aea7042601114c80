package ports

import (
	"context"
	"io"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

// DatasetManager is the inbound contract for dataset upload and inspection.
type DatasetManager interface {
	Upload(ctx context.Context, userID, name, filename string, size int64, body io.Reader) (*domain.Dataset, error)
	List(ctx context.Context, userID string) ([]domain.Dataset, error)
	Get(ctx context.Context, userID, id string) (*domain.Dataset, error)
	Preview(ctx context.Context, userID, id string) (*domain.DatasetPreview, error)
	Delete(ctx context.Context, userID, id string) error
	AnalyzeUpload(ctx context.Context, filename string, body io.Reader) (*domain.DatasetSchema, error)
	Schema(ctx context.Context, userID, id string) (*domain.DatasetSchema, error)
}

// DatasetProcessor is the inbound contract for asynchronous schema analysis.
type DatasetProcessor interface {
	ProcessByID(ctx context.Context, datasetID string) error
}

// Recommender never fails: provider errors degrade to the heuristic path.
type Recommender interface {
	GenerateQuestions(ctx context.Context, query string, schema domain.SchemaSummary) []domain.ClarifyingQuestion
	Refine(ctx context.Context, query string, candidates []domain.Candidate) domain.RefinementResult
}

// QueryHistoryService is the inbound contract for query history CRUD.
type QueryHistoryService interface {
	Create(ctx context.Context, userID string, req domain.NewQueryRequest) (*domain.QueryHistoryEntry, error)
	Update(ctx context.Context, userID, id string, update domain.QueryUpdate) (*domain.QueryHistoryEntry, error)
	Get(ctx context.Context, userID, id string) (*domain.QueryHistoryEntry, error)
	List(ctx context.Context, userID string) ([]domain.QueryHistoryEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// SearchRunner executes the full match + refine pipeline for one query.
type SearchRunner interface {
	Search(ctx context.Context, userID string, req domain.SearchRequest) (*domain.QueryHistoryEntry, error)
}

// UsageReader exposes the caller's daily quota.
type UsageReader interface {
	Status(ctx context.Context, userID string) (domain.Usage, error)
}
