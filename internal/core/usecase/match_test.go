package usecase

import (
	"testing"
)

func TestMatchCandidatesRanksBestMatchFirst(t *testing.T) {
	rows := [][]string{
		{"name", "title", "industry", "location"},
		{"Ann", "Engineer", "Retail", "Boston"},
		{"Ben", "Founder", "Healthcare", "San Francisco"},
		{"Cat", "Founder", "FinTech", "New York"},
		{"broken"},
	}

	out := MatchCandidates("healthcare founder", nil, rows, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 matching candidates, got %d", len(out))
	}
	if out[0].ID != "row-2" {
		t.Fatalf("expected row-2 first, got %s", out[0].ID)
	}
	if out[0].Data["name"] != "Ben" {
		t.Fatalf("expected Ben data, got %+v", out[0].Data)
	}
	if len(out[0].MatchReasons) != 2 {
		t.Fatalf("expected two matched fields, got %v", out[0].MatchReasons)
	}
	if out[0].Score <= out[1].Score {
		t.Fatalf("expected strictly better first score: %v vs %v", out[0].Score, out[1].Score)
	}
}

func TestMatchCandidatesUsesAnswers(t *testing.T) {
	rows := [][]string{
		{"name", "location"},
		{"Ann", "Boston"},
		{"Ben", "Remote"},
	}

	out := MatchCandidates("engineers", map[string]any{"location_preference": "Remote"}, rows, 10)
	if len(out) != 1 || out[0].Data["name"] != "Ben" {
		t.Fatalf("expected only Ben from answer match, got %+v", out)
	}
}

func TestMatchCandidatesTopK(t *testing.T) {
	rows := [][]string{{"skill"}}
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"go"})
	}

	out := MatchCandidates("go", nil, rows, 5)
	if len(out) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(out))
	}
	if out[0].ID != "row-1" {
		t.Fatalf("expected stable order on ties, got %s", out[0].ID)
	}
}

func TestMatchCandidatesHandlesEmptyInput(t *testing.T) {
	if out := MatchCandidates("anything", nil, nil, 5); len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
	if out := MatchCandidates("", nil, [][]string{{"a"}, {"b"}}, 5); len(out) != 0 {
		t.Fatalf("expected empty output for empty query, got %d", len(out))
	}
}

func TestMatchCandidatesWeightsRareTermsHigher(t *testing.T) {
	rows := [][]string{
		{"name", "title", "industry"},
		{"Ann", "Founder", ""},
		{"Bob", "Founder", ""},
		{"Cat", "", "Healthcare"},
	}

	out := MatchCandidates("healthcare founder", nil, rows, 10)
	if len(out) != 3 {
		t.Fatalf("expected all three rows to match, got %d", len(out))
	}
	if out[0].Data["name"] != "Cat" {
		t.Fatalf("expected the rare healthcare match first, got %+v", out[0].Data)
	}
	if out[0].Score != 1 {
		t.Fatalf("expected best score scaled to 1, got %v", out[0].Score)
	}
	if out[1].Score >= out[0].Score || out[1].Score != out[2].Score {
		t.Fatalf("expected equal lower scores for the common term, got %v %v", out[1].Score, out[2].Score)
	}
}

func TestMatchCandidatesTermInEveryRowStillCounts(t *testing.T) {
	rows := [][]string{
		{"title"},
		{"Engineer"},
		{"Engineer"},
	}

	out := MatchCandidates("engineer", nil, rows, 10)
	if len(out) != 2 {
		t.Fatalf("expected both rows, got %d", len(out))
	}
}

func TestMatchCandidatesDropsExcludedKeywords(t *testing.T) {
	rows := [][]string{
		{"name", "title", "industry"},
		{"Ann", "Founder", "Retail"},
		{"Ben", "Founder", "Healthcare"},
	}

	out := MatchCandidates("founder", map[string]any{"excluded": []any{"retail"}}, rows, 10)
	if len(out) != 1 || out[0].Data["name"] != "Ben" {
		t.Fatalf("expected only Ben after exclusion, got %+v", out)
	}
}

func TestMatchCandidatesFintechRequiresIndustryAndExpandsRoles(t *testing.T) {
	rows := [][]string{
		{"name", "title", "industry"},
		{"Ben", "Founder", "Healthcare"},
		{"Cat", "Founder", "FinTech"},
		{"Dan", "CEO", "Banking"},
	}

	out := MatchCandidates("fintech founder", nil, rows, 10)
	if len(out) != 2 {
		t.Fatalf("expected healthcare row filtered out, got %+v", out)
	}
	names := map[any]bool{out[0].Data["name"]: true, out[1].Data["name"]: true}
	if !names["Cat"] || !names["Dan"] {
		t.Fatalf("expected Cat and Dan, got %+v", out)
	}
}

func TestMatchCandidatesIndustryFocusAnswerFilters(t *testing.T) {
	rows := [][]string{
		{"name", "industry"},
		{"Ann", "Retail"},
		{"Ben", "Healthcare"},
	}

	out := MatchCandidates("retail people", map[string]any{"industry_focus": []any{"Healthcare", "Biotech"}}, rows, 10)
	if len(out) != 1 || out[0].Data["name"] != "Ben" {
		t.Fatalf("expected only the healthcare row, got %+v", out)
	}
}
