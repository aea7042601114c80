package domain

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSlider         QuestionType = "slider"
	QuestionCheckbox       QuestionType = "checkbox"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionMultipleChoice, QuestionSlider, QuestionCheckbox:
		return true
	default:
		return false
	}
}

type ClarifyingQuestion struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Question    string       `json:"question"`
	Options     []string     `json:"options,omitempty"`
	Multiple    *bool        `json:"multiple,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// Candidate is one scored record produced by the matcher. Refinement may reorder
// or truncate candidates but never creates new ones.
type Candidate struct {
	ID           string         `json:"id"`
	Data         map[string]any `json:"data"`
	Score        float64        `json:"score"`
	MatchReasons []string       `json:"matchReasons"`
}

type RefinementResult struct {
	RefinedCandidates []Candidate `json:"refinedCandidates"`
	Explanations      []string    `json:"explanations"`
	Confidence        float64     `json:"confidence"`
}

// FallbackReason records why the heuristic path produced an answer.
// The empty value means the LLM answer was used.
type FallbackReason string

const (
	FallbackNone              FallbackReason = ""
	FallbackNoCredential      FallbackReason = "no_credential"
	FallbackQuota             FallbackReason = "quota"
	FallbackTransport         FallbackReason = "transport"
	FallbackMalformedResponse FallbackReason = "malformed_response"
	FallbackEmptyResponse     FallbackReason = "empty_response"
)

// LLMRankedItem is one entry of a provider re-ranking answer.
type LLMRankedItem struct {
	OriginalIndex  int     `json:"originalIndex"`
	RelevanceScore float64 `json:"relevanceScore"`
	Explanation    string  `json:"explanation"`
}

type LLMRanking struct {
	RefinedCandidates []LLMRankedItem `json:"refinedCandidates"`
	Confidence        float64         `json:"confidence"`
}
