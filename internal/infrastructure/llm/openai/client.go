package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/resilience"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   cfg.Executor,
	}
}

// Advisor implements the recommendation provider port on top of Client.
type Advisor struct {
	client *Client
}

func NewAdvisor(client *Client) *Advisor {
	return &Advisor{client: client}
}

func (a *Advisor) SuggestQuestions(ctx context.Context, query string, schema domain.SchemaSummary) ([]domain.ClarifyingQuestion, error) {
	text, err := a.client.complete(ctx, "questions", buildQuestionsPrompt(query, schema))
	if err != nil {
		return nil, err
	}
	questions, err := parseQuestions(text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "parse questions", err)
	}
	return questions, nil
}

func (a *Advisor) RankCandidates(ctx context.Context, query string, candidates []domain.Candidate) (domain.LLMRanking, error) {
	text, err := a.client.complete(ctx, "rank", buildRankingPrompt(query, candidates))
	if err != nil {
		return domain.LLMRanking{}, err
	}
	ranking, err := parseRanking(text)
	if err != nil {
		return domain.LLMRanking{}, domain.WrapError(domain.ErrMalformedResponse, "parse ranking", err)
	}
	return ranking, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, operation, prompt string) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	var response chatResponse
	call := func(callCtx context.Context) error {
		response = chatResponse{}
		return c.postJSON(callCtx, "/chat/completions", request, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm."+operation, call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapProviderError("llm "+operation, err)
	}

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrMalformedResponse, "llm "+operation, errors.New("no choices in response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func parseQuestions(raw string) ([]domain.ClarifyingQuestion, error) {
	var questions []domain.ClarifyingQuestion
	if arr := extractJSONArray(raw); arr != "" {
		if err := json.Unmarshal([]byte(arr), &questions); err == nil {
			return questions, nil
		}
	}

	var wrapped struct {
		Questions []domain.ClarifyingQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wrapped); err != nil {
		return nil, fmt.Errorf("decode questions json: %w", err)
	}
	if wrapped.Questions == nil {
		return nil, errors.New("response has no question array")
	}
	return wrapped.Questions, nil
}

type rankingPayload struct {
	RefinedCandidates []struct {
		OriginalIndex  float64 `json:"originalIndex"`
		RelevanceScore float64 `json:"relevanceScore"`
		Explanation    string  `json:"explanation"`
	} `json:"refinedCandidates"`
	Confidence float64 `json:"confidence"`
}

func parseRanking(raw string) (domain.LLMRanking, error) {
	var payload rankingPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.LLMRanking{}, fmt.Errorf("decode ranking json: %w", err)
	}
	if payload.RefinedCandidates == nil {
		return domain.LLMRanking{}, errors.New("response has no refinedCandidates")
	}

	out := domain.LLMRanking{
		RefinedCandidates: make([]domain.LLMRankedItem, 0, len(payload.RefinedCandidates)),
		Confidence:        payload.Confidence,
	}
	for _, item := range payload.RefinedCandidates {
		idx := item.OriginalIndex
		if idx != math.Trunc(idx) {
			continue
		}
		out.RefinedCandidates = append(out.RefinedCandidates, domain.LLMRankedItem{
			OriginalIndex:  int(idx),
			RelevanceScore: item.RelevanceScore,
			Explanation:    item.Explanation,
		})
	}
	return out, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}
