package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
	"github.com/kirillkom/dataset-recommender/internal/core/usecase"
	"github.com/kirillkom/dataset-recommender/internal/infrastructure/tabular"
)

type toolset struct {
	recommender ports.Recommender
	parser      *tabular.Parser
}

func newToolset(recommender ports.Recommender) *toolset {
	return &toolset{recommender: recommender, parser: tabular.NewParser()}
}

func (t *toolset) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("analyze_schema",
		mcp.WithDescription("Infer field types, sample values and row count from CSV text with a header row."),
		mcp.WithString("csv", mcp.Required(), mcp.Description("CSV content, first line is the header")),
	), t.analyzeSchema)

	s.AddTool(mcp.NewTool("clarifying_questions",
		mcp.WithDescription("Suggest clarifying questions for a search query over a dataset."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
		mcp.WithString("fields", mcp.Description("Comma separated dataset field names")),
	), t.clarifyingQuestions)

	s.AddTool(mcp.NewTool("refine_candidates",
		mcp.WithDescription("Re-rank matched candidates for a query and explain the ranking."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
		mcp.WithString("candidates", mcp.Required(), mcp.Description("JSON array of {id, data, score, matchReasons}")),
	), t.refineCandidates)
}

func (t *toolset) analyzeSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("csv")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := t.parser.ReadRows(ctx, strings.NewReader(text), tabular.FileTypeCSV)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	schema, err := usecase.AnalyzeSchema(rows)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(schema)
}

func (t *toolset) clarifyingQuestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	var summary domain.SchemaSummary
	for _, name := range strings.Split(req.GetString("fields", ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			summary.Fields = append(summary.Fields, domain.SummaryField{Name: name})
		}
	}

	questions := t.recommender.GenerateQuestions(ctx, strings.TrimSpace(query), summary)
	return jsonResult(map[string]any{"questions": questions})
}

func (t *toolset) refineCandidates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	raw, err := req.RequireString("candidates")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var candidates []domain.Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return mcp.NewToolResultError("candidates must be a JSON array: " + err.Error()), nil
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}

	return jsonResult(t.recommender.Refine(ctx, strings.TrimSpace(query), candidates))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
