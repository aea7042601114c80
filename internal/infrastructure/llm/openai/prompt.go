package openai

import (
	"fmt"
	"strings"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const systemPrompt = "You help people search tabular datasets of professionals. Reply with JSON only, no markdown."

func buildQuestionsPrompt(query string, schema domain.SchemaSummary) string {
	var fields strings.Builder
	for _, f := range schema.Fields {
		typ := f.Type
		if typ == "" {
			typ = "text"
		}
		desc := f.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&fields, "- %s (%s): %s\n", f.Name, typ, desc)
	}
	fieldList := strings.TrimSpace(fields.String())
	if fieldList == "" {
		fieldList = "No field information available"
	}

	return fmt.Sprintf(`You are generating clarifying questions for a people search system.

User's search query: %q

Available data fields:
%s

Generate 3-5 clarifying questions that would narrow down the search results. Each question must be relevant to the query and the available data fields.

Return a JSON array of questions in this exact format:
[
  {
    "id": "unique_id",
    "type": "multiple_choice" | "text" | "slider" | "checkbox",
    "question": "Question text",
    "options": ["Option 1", "Option 2"] (only for multiple_choice),
    "multiple": true/false (only for multiple_choice),
    "placeholder": "Placeholder text" (only for text type)
  }
]

Focus on experience level or seniority, location preferences, industry focus, company size or stage, and specific skills or background.
`, query, fieldList)
}

func buildRankingPrompt(query string, candidates []domain.Candidate) string {
	var blocks strings.Builder
	for idx, c := range candidates {
		if idx > 0 {
			blocks.WriteString("\n\n")
		}
		fmt.Fprintf(&blocks, "%d. %s - %s at %s\n   Location: %s\n   Experience: %s\n   Industry: %s\n   Current Score: %.1f%%",
			idx+1,
			field(c.Data, "name", "Unknown"),
			field(c.Data, "title", "No title"),
			field(c.Data, "company", "Unknown company"),
			field(c.Data, "location", "Unknown"),
			field(c.Data, "experience", "Unknown"),
			field(c.Data, "industry", "Unknown"),
			c.Score*100,
		)
	}

	return fmt.Sprintf(`You are refining and re-ranking people search results by relevance to a query.

Original query: %q

Current top candidates:
%s

Re-rank these candidates by relevance to the query, explain for each why they match, and give an overall confidence for the quality of the matches.
originalIndex is the zero-based position of the candidate in the list above.

Return a JSON object in this exact format:
{
  "refinedCandidates": [
    {"originalIndex": 0, "relevanceScore": 0.95, "explanation": "Why this person is relevant"}
  ],
  "confidence": 0.85
}
`, query, blocks.String())
}

func field(data map[string]any, key, fallback string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}
