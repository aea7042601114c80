package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

const (
	maxLLMQuestions      = 5
	maxLLMRankCandidates = 10
	defaultLLMConfidence = 0.8
)

// LLMBackedStrategy asks the provider first and degrades to the heuristic on
// any failure or unusable answer.
type LLMBackedStrategy struct {
	advisor   ports.LLMAdvisor
	heuristic *HeuristicStrategy
}

func NewLLMBackedStrategy(advisor ports.LLMAdvisor, heuristic *HeuristicStrategy) *LLMBackedStrategy {
	if heuristic == nil {
		heuristic = NewHeuristicStrategy(nil)
	}
	return &LLMBackedStrategy{advisor: advisor, heuristic: heuristic}
}

func (s *LLMBackedStrategy) Name() string { return StrategyLLM }

func (s *LLMBackedStrategy) Questions(ctx context.Context, query string, schema domain.SchemaSummary) Attempt[[]domain.ClarifyingQuestion] {
	questions, err := s.advisor.SuggestQuestions(ctx, query, schema)
	if err != nil {
		return Attempt[[]domain.ClarifyingQuestion]{
			Value:    s.heuristic.SuggestQuestions(query, schema),
			Fallback: domain.FallbackReasonFor(err),
			Err:      err,
		}
	}

	usable := sanitizeQuestions(questions)
	if len(usable) == 0 {
		return Attempt[[]domain.ClarifyingQuestion]{
			Value:    s.heuristic.SuggestQuestions(query, schema),
			Fallback: domain.FallbackEmptyResponse,
		}
	}
	return Attempt[[]domain.ClarifyingQuestion]{Value: usable}
}

func (s *LLMBackedStrategy) Refine(ctx context.Context, query string, candidates []domain.Candidate) Attempt[domain.RefinementResult] {
	if len(candidates) == 0 {
		return Attempt[domain.RefinementResult]{Value: domain.RefinementResult{
			RefinedCandidates: []domain.Candidate{},
			Explanations:      []string{},
		}}
	}

	head := candidates[:min(len(candidates), maxLLMRankCandidates)]
	ranking, err := s.advisor.RankCandidates(ctx, query, head)
	if err != nil {
		return Attempt[domain.RefinementResult]{
			Value:    s.heuristic.Rank(query, candidates),
			Fallback: domain.FallbackReasonFor(err),
			Err:      err,
		}
	}

	return Attempt[domain.RefinementResult]{Value: applyRanking(head, candidates, ranking)}
}

// applyRanking maps provider indexes back onto the ranked head. Unresolved and
// repeated indexes are skipped; with nothing usable the original list is kept.
func applyRanking(head, all []domain.Candidate, ranking domain.LLMRanking) domain.RefinementResult {
	refined := make([]domain.Candidate, 0, len(ranking.RefinedCandidates))
	explanations := make([]string, 0, len(ranking.RefinedCandidates))
	seen := make(map[int]struct{}, len(ranking.RefinedCandidates))

	for _, item := range ranking.RefinedCandidates {
		if item.OriginalIndex < 0 || item.OriginalIndex >= len(head) {
			continue
		}
		if _, dup := seen[item.OriginalIndex]; dup {
			continue
		}
		seen[item.OriginalIndex] = struct{}{}
		refined = append(refined, head[item.OriginalIndex])
		explanations = append(explanations, strings.TrimSpace(item.Explanation))
	}

	if len(refined) == 0 {
		refined = make([]domain.Candidate, len(all))
		copy(refined, all)
		explanations = []string{}
	}

	return domain.RefinementResult{
		RefinedCandidates: refined,
		Explanations:      explanations,
		Confidence:        normalizeConfidence(ranking.Confidence),
	}
}

func normalizeConfidence(v float64) float64 {
	switch {
	case v <= 0:
		return defaultLLMConfidence
	case v > 1:
		return 1
	default:
		return v
	}
}

func sanitizeQuestions(in []domain.ClarifyingQuestion) []domain.ClarifyingQuestion {
	out := make([]domain.ClarifyingQuestion, 0, min(len(in), maxLLMQuestions))
	seen := make(map[string]struct{}, len(in))
	for _, q := range in {
		if len(out) == maxLLMQuestions {
			break
		}
		q.ID = strings.TrimSpace(q.ID)
		q.Question = strings.TrimSpace(q.Question)
		if q.ID == "" || q.Question == "" || !q.Type.Valid() {
			continue
		}
		if q.Type == domain.QuestionMultipleChoice && len(q.Options) == 0 {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
