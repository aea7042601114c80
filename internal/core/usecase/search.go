package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

type datasetLoader interface {
	Get(ctx context.Context, userID, id string) (*domain.Dataset, error)
	Rows(ctx context.Context, ds *domain.Dataset) ([][]string, error)
}

type candidateRefiner interface {
	RefineWithReason(ctx context.Context, query string, candidates []domain.Candidate) (domain.RefinementResult, domain.FallbackReason)
}

// SearchService runs one search end to end and records it in query history.
type SearchService struct {
	datasets datasetLoader
	history  ports.QueryHistoryService
	refiner  candidateRefiner
	usage    ports.UsageLimiter
	metrics  ports.SearchMetrics
	logger   *slog.Logger
	topK     int
}

func NewSearchService(
	datasets datasetLoader,
	history ports.QueryHistoryService,
	refiner candidateRefiner,
	usage ports.UsageLimiter,
	metrics ports.SearchMetrics,
	logger *slog.Logger,
	topK int,
) *SearchService {
	if topK <= 0 {
		topK = DefaultMatchTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopSearchMetrics{}
	}
	return &SearchService{
		datasets: datasets,
		history:  history,
		refiner:  refiner,
		usage:    usage,
		metrics:  metrics,
		logger:   logger,
		topK:     topK,
	}
}

func (s *SearchService) Search(ctx context.Context, userID string, req domain.SearchRequest) (*domain.QueryHistoryEntry, error) {
	started := time.Now()
	entry, err := s.search(ctx, userID, req, started)
	outcome := "completed"
	if err != nil {
		outcome = "error"
		if domain.IsKind(err, domain.ErrUsageLimit) {
			outcome = "limited"
		}
	}
	s.metrics.ObserveSearch(outcome, time.Since(started))
	return entry, err
}

func (s *SearchService) search(ctx context.Context, userID string, req domain.SearchRequest, started time.Time) (*domain.QueryHistoryEntry, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" || strings.TrimSpace(req.DatasetID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query and datasetId are required"))
	}

	usage, err := s.usage.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check usage: %w", err)
	}
	if usage.HasReachedLimit {
		return nil, domain.WrapError(
			domain.ErrUsageLimit,
			"search",
			fmt.Errorf("%d of %d daily searches used", usage.SearchCount, usage.Limit),
		)
	}

	ds, err := s.datasets.Get(ctx, userID, req.DatasetID)
	if err != nil {
		return nil, err
	}

	stages := []domain.ProcessingStage{newStage("matching", "Matching candidates against dataset", 10)}
	entry, err := s.history.Create(ctx, userID, domain.NewQueryRequest{
		Query:            query,
		DatasetID:        ds.ID,
		DatasetName:      ds.Name,
		ProcessingStages: stages,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.datasets.Rows(ctx, ds)
	if err != nil {
		return nil, s.fail(ctx, userID, entry, stages, err)
	}

	topK := s.topK
	if req.Limit > 0 && req.Limit < topK {
		topK = req.Limit
	}
	candidates := MatchCandidates(query, req.Answers, rows, topK)

	stages = append(stages, newStage("refining", "Refining candidates", 60))
	result, reason := s.refiner.RefineWithReason(ctx, query, candidates)

	strategy := StrategyLLM
	if reason != domain.FallbackNone {
		strategy = StrategyHeuristic
	}
	stages = append(stages, newStage("completed", "Search completed", 100))
	status := domain.QueryCompleted
	updated, err := s.history.Update(ctx, userID, entry.ID, domain.QueryUpdate{
		Status:  &status,
		Results: &result,
		Metadata: map[string]any{
			"strategy":         strategy,
			"fallback_reason":  string(reason),
			"total_candidates": len(candidates),
			"duration_ms":      time.Since(started).Milliseconds(),
		},
		ProcessingStages: stages,
	})
	if err != nil {
		s.logger.Error("save search results failed", "query_id", entry.ID, "error", err)
		return nil, s.fail(ctx, userID, entry, stages[:len(stages)-1], fmt.Errorf("save search results: %w", err))
	}

	if err := s.usage.Increment(ctx, userID); err != nil {
		s.logger.Warn("usage increment failed", "user_id", userID, "error", err)
	}
	return updated, nil
}

func (s *SearchService) fail(ctx context.Context, userID string, entry *domain.QueryHistoryEntry, stages []domain.ProcessingStage, cause error) error {
	status := domain.QueryError
	stages = append(stages, newStage("error", cause.Error(), 100))
	if _, err := s.history.Update(ctx, userID, entry.ID, domain.QueryUpdate{
		Status:           &status,
		Metadata:         map[string]any{"error": cause.Error()},
		ProcessingStages: stages,
	}); err != nil {
		return fmt.Errorf("%w; mark query failed: %v", cause, err)
	}
	return cause
}

func newStage(stage, message string, progress int) domain.ProcessingStage {
	return domain.ProcessingStage{
		Stage:     stage,
		Message:   message,
		Progress:  progress,
		Timestamp: time.Now().UTC(),
	}
}

type noopSearchMetrics struct{}

func (noopSearchMetrics) ObserveSearch(string, time.Duration) {}
