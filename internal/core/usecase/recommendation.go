package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

const (
	StrategyLLM       = "llm"
	StrategyHeuristic = "heuristic"

	operationQuestions = "questions"
	operationRefine    = "refine"
)

// Attempt is the outcome of one strategy call. A non-empty Fallback means the
// heuristic produced Value; Err keeps the provider failure for logging.
type Attempt[T any] struct {
	Value    T
	Fallback domain.FallbackReason
	Err      error
}

// RecommendationStrategy produces clarifying questions and refinements.
// Implementations always return a usable value.
type RecommendationStrategy interface {
	Name() string
	Questions(ctx context.Context, query string, schema domain.SchemaSummary) Attempt[[]domain.ClarifyingQuestion]
	Refine(ctx context.Context, query string, candidates []domain.Candidate) Attempt[domain.RefinementResult]
}

// NewRecommendationStrategy picks the LLM-backed strategy only when an advisor
// is configured.
func NewRecommendationStrategy(advisor ports.LLMAdvisor, heuristic *HeuristicStrategy) RecommendationStrategy {
	if heuristic == nil {
		heuristic = NewHeuristicStrategy(nil)
	}
	if advisor == nil {
		return heuristic
	}
	return NewLLMBackedStrategy(advisor, heuristic)
}

type RecommendationService struct {
	strategy RecommendationStrategy
	logger   *slog.Logger
	metrics  ports.RecommendationMetrics
}

func NewRecommendationService(
	strategy RecommendationStrategy,
	logger *slog.Logger,
	metrics ports.RecommendationMetrics,
) *RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopRecommendationMetrics{}
	}
	return &RecommendationService{
		strategy: strategy,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *RecommendationService) GenerateQuestions(
	ctx context.Context,
	query string,
	schema domain.SchemaSummary,
) []domain.ClarifyingQuestion {
	res := s.strategy.Questions(ctx, query, schema)
	s.observe(operationQuestions, res.Fallback, res.Err)
	return res.Value
}

func (s *RecommendationService) Refine(
	ctx context.Context,
	query string,
	candidates []domain.Candidate,
) domain.RefinementResult {
	res := s.strategy.Refine(ctx, query, candidates)
	s.observe(operationRefine, res.Fallback, res.Err)
	return res.Value
}

// RefineWithReason exposes the fallback reason so the search pipeline can store
// it alongside the results.
func (s *RecommendationService) RefineWithReason(
	ctx context.Context,
	query string,
	candidates []domain.Candidate,
) (domain.RefinementResult, domain.FallbackReason) {
	res := s.strategy.Refine(ctx, query, candidates)
	s.observe(operationRefine, res.Fallback, res.Err)
	return res.Value, res.Fallback
}

func (s *RecommendationService) observe(operation string, reason domain.FallbackReason, err error) {
	strategy := StrategyLLM
	if reason != domain.FallbackNone {
		strategy = StrategyHeuristic
	}
	s.metrics.RecordStrategyOutcome(operation, strategy, reason)

	switch reason {
	case domain.FallbackNone, domain.FallbackNoCredential:
		return
	case domain.FallbackQuota:
		s.logger.Warn("llm quota exceeded, serving heuristic recommendations",
			"operation", operation,
			"error", errString(err),
		)
	default:
		s.logger.Error("llm recommendation failed, serving heuristic recommendations",
			"operation", operation,
			"fallback_reason", string(reason),
			"error", errString(err),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type noopRecommendationMetrics struct{}

func (noopRecommendationMetrics) RecordStrategyOutcome(string, string, domain.FallbackReason) {}
