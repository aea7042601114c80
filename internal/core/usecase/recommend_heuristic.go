package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	heuristicBaseConfidence = 0.87
	heuristicJitterSpan     = 0.1

	healthBonus  = 0.1
	founderBonus = 0.15

	minHighlightedExperience = 8
)

var firstIntegerPattern = regexp.MustCompile(`\d+`)

// HeuristicStrategy is the deterministic rule set used without a provider
// credential and whenever the provider fails. Confidence carries a random
// jitter in [0, 0.1); tests inject a fixed source.
type HeuristicStrategy struct {
	jitter func() float64
}

func NewHeuristicStrategy(jitter func() float64) *HeuristicStrategy {
	if jitter == nil {
		jitter = rand.Float64
	}
	return &HeuristicStrategy{jitter: jitter}
}

func (h *HeuristicStrategy) Name() string { return StrategyHeuristic }

func (h *HeuristicStrategy) Questions(_ context.Context, query string, schema domain.SchemaSummary) Attempt[[]domain.ClarifyingQuestion] {
	return Attempt[[]domain.ClarifyingQuestion]{
		Value:    h.SuggestQuestions(query, schema),
		Fallback: domain.FallbackNoCredential,
	}
}

func (h *HeuristicStrategy) Refine(_ context.Context, query string, candidates []domain.Candidate) Attempt[domain.RefinementResult] {
	return Attempt[domain.RefinementResult]{
		Value:    h.Rank(query, candidates),
		Fallback: domain.FallbackNoCredential,
	}
}

func (h *HeuristicStrategy) SuggestQuestions(query string, schema domain.SchemaSummary) []domain.ClarifyingQuestion {
	questions := []domain.ClarifyingQuestion{{
		ID:       "experience_level",
		Type:     domain.QuestionMultipleChoice,
		Question: "What experience level are you looking for?",
		Options: []string{
			"Entry Level (0-3 years)",
			"Mid Level (4-7 years)",
			"Senior Level (8-12 years)",
			"Executive (13+ years)",
		},
		Multiple: boolPtr(false),
	}}

	if schema.HasField("location") {
		questions = append(questions, domain.ClarifyingQuestion{
			ID:          "location_preference",
			Type:        domain.QuestionText,
			Question:    "Any specific location or region preference?",
			Placeholder: "e.g., San Francisco, Remote, Boston",
		})
	}

	if schema.HasField("industry") {
		questions = append(questions, domain.ClarifyingQuestion{
			ID:       "industry_focus",
			Type:     domain.QuestionMultipleChoice,
			Question: "Which industries are most relevant?",
			Options:  []string{"Healthcare", "Biotech", "FinTech", "AI/ML", "Enterprise Software", "Consumer"},
			Multiple: boolPtr(true),
		})
	}

	lowered := strings.ToLower(query)
	if strings.Contains(lowered, "startup") || strings.Contains(lowered, "founder") {
		questions = append(questions, domain.ClarifyingQuestion{
			ID:       "company_stage",
			Type:     domain.QuestionMultipleChoice,
			Question: "What company stage interests you most?",
			Options:  []string{"Pre-seed", "Seed", "Series A", "Series B+", "Public Company"},
			Multiple: boolPtr(true),
		})
	}

	return questions
}

// Rank reorders candidates by score plus query bonuses and explains each one.
// The output is always a permutation of the input.
func (h *HeuristicStrategy) Rank(query string, candidates []domain.Candidate) domain.RefinementResult {
	lowered := strings.ToLower(query)

	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return adjustedScore(lowered, ranked[i]) > adjustedScore(lowered, ranked[j])
	})

	explanations := make([]string, 0, len(ranked))
	for _, c := range ranked {
		explanations = append(explanations, explainCandidate(lowered, c))
	}

	return domain.RefinementResult{
		RefinedCandidates: ranked,
		Explanations:      explanations,
		Confidence:        heuristicBaseConfidence + h.jitter()*heuristicJitterSpan,
	}
}

func adjustedScore(loweredQuery string, c domain.Candidate) float64 {
	score := c.Score
	if strings.Contains(loweredQuery, "health") && isHealthcare(c) {
		score += healthBonus
	}
	if strings.Contains(loweredQuery, "founder") {
		if title, ok := textField(c.Data, "title"); ok && strings.Contains(strings.ToLower(title), "founder") {
			score += founderBonus
		}
	}
	return score
}

func explainCandidate(loweredQuery string, c domain.Candidate) string {
	reasons := make([]string, 0, 4)

	if isHealthcare(c) && strings.Contains(loweredQuery, "health") {
		reasons = append(reasons, fmt.Sprintf("Strong healthcare industry background at %s", displayField(c.Data, "company")))
	}

	if title, ok := textField(c.Data, "title"); ok {
		t := strings.ToLower(title)
		if strings.Contains(t, "founder") || strings.Contains(t, "ceo") {
			reasons = append(reasons, fmt.Sprintf("Leadership experience as %s", title))
		}
	}

	if loc, ok := textField(c.Data, "location"); ok && strings.Contains(loc, "San Francisco") && strings.Contains(loweredQuery, "sf") {
		reasons = append(reasons, "Located in San Francisco for easy networking")
	}

	if years := experienceYears(c.Data); years >= minHighlightedExperience {
		reasons = append(reasons, fmt.Sprintf("%d years of relevant experience", years))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Good overall match based on profile and experience")
	}

	return fmt.Sprintf(
		"%s is an excellent match because: %s. Their role as %s at %s aligns well with your search criteria.",
		displayField(c.Data, "name"),
		strings.Join(reasons, ", "),
		displayField(c.Data, "title"),
		displayField(c.Data, "company"),
	)
}

func isHealthcare(c domain.Candidate) bool {
	industry, ok := c.Data["industry"].(string)
	return ok && industry == "Healthcare"
}

func experienceYears(data map[string]any) int {
	text, ok := textField(data, "experience")
	if !ok {
		return 0
	}
	match := firstIntegerPattern.FindString(text)
	if match == "" {
		return 0
	}
	years, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return years
}

func textField(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func displayField(data map[string]any, key string) string {
	if s, ok := textField(data, key); ok && s != "" {
		return s
	}
	return "Unknown"
}

func boolPtr(v bool) *bool { return &v }
