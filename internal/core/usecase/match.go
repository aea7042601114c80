package usecase

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	DefaultMatchTopK = 50

	bm25K1     = 1.2
	bm25B      = 0.75
	queryTermK = 1.2
)

// Answer keys with filter semantics. Every other answer only adds terms.
const (
	answerIndustryFocus = "industry_focus"
	answerExcluded      = "excluded"
)

type queryExpansion struct {
	triggers   []string
	preferred  []string
	field      string
	fieldTerms []string
}

// queryExpansions widen common intents when no structured criteria exist.
// Field terms under "industries" also become a required-industry filter.
var queryExpansions = []queryExpansion{
	{
		triggers:   []string{"founder"},
		preferred:  []string{"founder", "co-founder", "startup", "entrepreneur"},
		field:      "roles",
		fieldTerms: []string{"founder", "co-founder", "ceo"},
	},
	{
		triggers:   []string{"fintech"},
		preferred:  []string{"fintech", "financial", "finance", "banking"},
		field:      "industries",
		fieldTerms: []string{"fintech", "financial services", "banking"},
	},
	{
		triggers:   []string{"raised", "funding"},
		preferred:  []string{"raised", "funding", "investment", "series", "seed"},
		field:      "experience",
		fieldTerms: []string{"fundraising", "investment", "venture capital"},
	},
}

type matchCriteria struct {
	terms      map[string]float64
	excluded   []string
	industries []string
}

type rowDocument struct {
	index  int
	row    []string
	tf     map[string]float64
	length float64
	text   string
}

// MatchCandidates ranks data rows against the query and clarifying answers
// with BM25. IDF is computed over the dataset's rows. Rows that score zero,
// contain an excluded keyword, or miss every required industry are dropped.
// At most topK candidates are returned, best first, with scores scaled so the
// best match is 1.
func MatchCandidates(query string, answers map[string]any, rows [][]string, topK int) []domain.Candidate {
	if len(rows) < 2 {
		return []domain.Candidate{}
	}
	if topK <= 0 {
		topK = DefaultMatchTopK
	}

	criteria := buildMatchCriteria(query, answers)
	if len(criteria.terms) == 0 {
		return []domain.Candidate{}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	docs := make([]rowDocument, 0, len(rows)-1)
	docFreq := make(map[string]int, 64)
	totalLength := 0.0
	for n, row := range rows[1:] {
		if len(row) != len(headers) {
			continue
		}
		doc := newRowDocument(n+1, headers, row)
		for term := range doc.tf {
			docFreq[term]++
		}
		totalLength += doc.length
		docs = append(docs, doc)
	}
	if len(docs) == 0 || totalLength == 0 {
		return []domain.Candidate{}
	}
	avgLength := totalLength / float64(len(docs))

	type scored struct {
		doc   rowDocument
		score float64
	}
	hits := make([]scored, 0, len(docs))
	for _, doc := range docs {
		score := bm25Score(criteria.terms, doc, docFreq, len(docs), avgLength)
		if score <= 0 || !criteria.passes(doc.text) {
			continue
		}
		hits = append(hits, scored{doc: doc, score: score})
	}
	if len(hits) == 0 {
		return []domain.Candidate{}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	best := hits[0].score
	out := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Candidate{
			ID:           "row-" + strconv.Itoa(h.doc.index),
			Data:         rowRecord(headers, h.doc.row),
			Score:        h.score / best,
			MatchReasons: matchedFields(criteria.terms, headers, h.doc.row),
		})
	}
	return out
}

// newRowDocument indexes a row as "header: value" plus the bare value, so a
// value counts twice and a header counts once when its value is present.
func newRowDocument(index int, headers, row []string) rowDocument {
	doc := rowDocument{index: index, row: row, tf: make(map[string]float64, len(row)*3)}
	var text strings.Builder
	for i, value := range row {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		tokens := splitAlphaNumLower(value)
		for _, t := range splitAlphaNumLower(headers[i]) {
			doc.tf[t]++
			doc.length++
		}
		for _, t := range tokens {
			doc.tf[t] += 2
			doc.length += 2
		}
		text.WriteString(strings.ToLower(headers[i]))
		text.WriteString(": ")
		text.WriteString(strings.ToLower(value))
		text.WriteByte('\n')
	}
	doc.text = text.String()
	return doc
}

func bm25Score(terms map[string]float64, doc rowDocument, docFreq map[string]int, docs int, avgLength float64) float64 {
	norm := bm25K1 * (1 - bm25B + bm25B*doc.length/avgLength)
	score := 0.0
	for term, weight := range terms {
		tf := doc.tf[term]
		if tf == 0 {
			continue
		}
		score += weight * inverseDocFreq(docFreq[term], docs) * tf * (bm25K1 + 1) / (tf + norm)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// inverseDocFreq never goes negative, so a term present in every row still
// counts a little.
func inverseDocFreq(df, docs int) float64 {
	return math.Log(1 + (float64(docs-df)+0.5)/(float64(df)+0.5))
}

func buildMatchCriteria(query string, answers map[string]any) matchCriteria {
	freq := make(map[string]float64, 16)
	add := func(s string, n float64) {
		for _, t := range splitAlphaNumLower(s) {
			freq[t] += n
		}
	}

	var c matchCriteria
	add(query, 1)

	lowered := strings.ToLower(query)
	for _, exp := range queryExpansions {
		if !containsAny(lowered, exp.triggers) {
			continue
		}
		for _, p := range exp.preferred {
			add(p, 1)
		}
		for _, ft := range exp.fieldTerms {
			add(exp.field, 1)
			add(ft, 2)
		}
		if exp.field == "industries" {
			c.industries = append(c.industries, exp.fieldTerms...)
		}
	}

	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values := answerValues(answers[k])
		switch k {
		case answerExcluded:
			c.excluded = append(c.excluded, values...)
			continue
		case answerIndustryFocus:
			c.industries = append(c.industries, values...)
		}
		for _, v := range values {
			add(v, 1)
		}
	}

	// Repeated terms saturate instead of growing linearly.
	c.terms = make(map[string]float64, len(freq))
	for t, qtf := range freq {
		c.terms[t] = qtf * (queryTermK + 1) / (qtf + queryTermK)
	}
	return c
}

func (c matchCriteria) passes(text string) bool {
	for _, ex := range c.excluded {
		if ex = strings.ToLower(strings.TrimSpace(ex)); ex != "" && strings.Contains(text, ex) {
			return false
		}
	}
	if len(c.industries) == 0 {
		return true
	}
	for _, ind := range c.industries {
		if ind = strings.ToLower(strings.TrimSpace(ind)); ind != "" && strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

func matchedFields(terms map[string]float64, headers, row []string) []string {
	matched := make([]string, 0, len(headers))
	for i, value := range row {
		for _, t := range splitAlphaNumLower(value) {
			if _, ok := terms[t]; ok {
				matched = append(matched, headers[i])
				break
			}
		}
	}
	return matched
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func answerValues(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
