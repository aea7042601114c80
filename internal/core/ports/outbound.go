package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

// DatasetRepository persists uploaded dataset metadata and inferred schemas.
type DatasetRepository interface {
	Create(ctx context.Context, ds *domain.Dataset) error
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Dataset, error)
	UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error
	SaveSchema(ctx context.Context, id string, schema domain.DatasetSchema) error
	Delete(ctx context.Context, id string) error
}

// QueryHistoryRepository persists query snapshots per user.
type QueryHistoryRepository interface {
	Create(ctx context.Context, entry *domain.QueryHistoryEntry) error
	Update(ctx context.Context, userID, id string, update domain.QueryUpdate) (*domain.QueryHistoryEntry, error)
	GetByID(ctx context.Context, userID, id string) (*domain.QueryHistoryEntry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.QueryHistoryEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// ObjectStorage stores raw uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes dataset upload events.
type MessageQueue interface {
	PublishDatasetUploaded(ctx context.Context, datasetID string) error
	SubscribeDatasetUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TabularParser converts uploaded file bytes into a 2-D array of strings.
type TabularParser interface {
	ReadRows(ctx context.Context, r io.Reader, fileType string) ([][]string, error)
	Preview(ctx context.Context, r io.Reader, fileType string, maxLines int) ([]string, error)
}

// LLMAdvisor talks to the hosted language model. Implementations return typed
// domain errors (ErrQuotaExceeded, ErrTemporary, ErrMalformedResponse).
type LLMAdvisor interface {
	SuggestQuestions(ctx context.Context, query string, schema domain.SchemaSummary) ([]domain.ClarifyingQuestion, error)
	RankCandidates(ctx context.Context, query string, candidates []domain.Candidate) (domain.LLMRanking, error)
}

// SchemaCache keeps inferred schemas close to the API.
type SchemaCache interface {
	Get(ctx context.Context, datasetID string) (*domain.DatasetSchema, bool)
	Set(ctx context.Context, datasetID string, schema domain.DatasetSchema) error
	Invalidate(ctx context.Context, datasetID string) error
}

// UsageLimiter tracks daily search quota per user.
type UsageLimiter interface {
	Status(ctx context.Context, userID string) (domain.Usage, error)
	Increment(ctx context.Context, userID string) error
}

// RecommendationMetrics observes which strategy answered and why it degraded.
type RecommendationMetrics interface {
	RecordStrategyOutcome(operation, strategy string, reason domain.FallbackReason)
}

// SearchMetrics observes end-to-end search latency by outcome.
type SearchMetrics interface {
	ObserveSearch(outcome string, duration time.Duration)
}

// DatasetProcessMetrics observes the worker's schema analysis runs.
type DatasetProcessMetrics interface {
	StartDataset()
	FinishDataset(duration time.Duration, err error)
	ObserveQueueLag(lag time.Duration)
}
