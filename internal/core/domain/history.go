package domain

import "time"

type QueryStatus string

const (
	QueryProcessing QueryStatus = "processing"
	QueryCompleted  QueryStatus = "completed"
	QueryError      QueryStatus = "error"
)

func (s QueryStatus) Valid() bool {
	switch s {
	case QueryProcessing, QueryCompleted, QueryError:
		return true
	default:
		return false
	}
}

type ProcessingStage struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Progress  int       `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryHistoryEntry is owned by a single user account.
type QueryHistoryEntry struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Query            string            `json:"query"`
	DatasetID        string            `json:"dataset_id"`
	DatasetName      string            `json:"dataset_name"`
	Status           QueryStatus       `json:"status"`
	Results          *RefinementResult `json:"results,omitempty"`
	Metadata         map[string]any    `json:"metadata"`
	ProcessingStages []ProcessingStage `json:"processing_stages"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// QueryUpdate carries the optional fields of a history update; nil means unchanged.
type QueryUpdate struct {
	Status           *QueryStatus
	Results          *RefinementResult
	Metadata         map[string]any
	ProcessingStages []ProcessingStage
}

type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

type Usage struct {
	SearchCount     int      `json:"searchCount"`
	PlanType        PlanType `json:"planType"`
	Limit           int      `json:"limit"`
	HasReachedLimit bool     `json:"hasReachedLimit"`
}

type NewQueryRequest struct {
	Query            string            `json:"query"`
	DatasetID        string            `json:"datasetId"`
	DatasetName      string            `json:"datasetName"`
	ProcessingStages []ProcessingStage `json:"processingStages,omitempty"`
	CustomID         string            `json:"customId,omitempty"`
}

type SearchRequest struct {
	Query     string         `json:"query"`
	DatasetID string         `json:"datasetId"`
	Answers   map[string]any `json:"answers,omitempty"`
	Limit     int            `json:"limit,omitempty"`
}
