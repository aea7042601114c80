package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const historyColumns = `id, user_id, query, dataset_id, dataset_name, status, results, metadata, processing_stages, created_at, updated_at`

type QueryHistoryRepository struct {
	db *sql.DB
}

func NewQueryHistoryRepository(db *sql.DB) *QueryHistoryRepository {
	return &QueryHistoryRepository{db: db}
}

func (r *QueryHistoryRepository) Create(ctx context.Context, entry *domain.QueryHistoryEntry) error {
	metadata, err := marshalOrDefault(entry.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	stages, err := marshalOrDefault(entry.ProcessingStages, "[]")
	if err != nil {
		return fmt.Errorf("marshal processing stages: %w", err)
	}
	results, err := marshalNullable(entry.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_history (
	id, user_id, query, dataset_id, dataset_name, status, results, metadata, processing_stages, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		entry.ID, entry.UserID, entry.Query, entry.DatasetID, entry.DatasetName, string(entry.Status),
		results, metadata, stages, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	return nil
}

// Update applies only the fields present in update. Metadata keys are merged
// into the stored object.
func (r *QueryHistoryRepository) Update(ctx context.Context, userID, id string, update domain.QueryUpdate) (*domain.QueryHistoryEntry, error) {
	var status any
	if update.Status != nil {
		status = string(*update.Status)
	}
	results, err := marshalNullable(update.Results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	metadata, err := marshalOrDefault(update.Metadata, "{}")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var stages any
	if update.ProcessingStages != nil {
		raw, err := json.Marshal(update.ProcessingStages)
		if err != nil {
			return nil, fmt.Errorf("marshal processing stages: %w", err)
		}
		stages = raw
	}

	row := r.db.QueryRowContext(ctx, `
UPDATE query_history
SET status = COALESCE($3, status),
	results = COALESCE($4::jsonb, results),
	metadata = metadata || $5::jsonb,
	processing_stages = COALESCE($6::jsonb, processing_stages),
	updated_at = $7
WHERE user_id = $1 AND id = $2
RETURNING `+historyColumns,
		userID, id, status, results, metadata, stages, time.Now().UTC(),
	)

	entry, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "update query history", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("update query history: %w", err)
	}
	return &entry, nil
}

func (r *QueryHistoryRepository) GetByID(ctx context.Context, userID, id string) (*domain.QueryHistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+historyColumns+`
FROM query_history
WHERE user_id = $1 AND id = $2
`, userID, id)

	entry, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get query history", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan query history: %w", err)
	}
	return &entry, nil
}

func (r *QueryHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+historyColumns+`
FROM query_history
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QueryHistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query history: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query history: %w", err)
	}
	return out, nil
}

func (r *QueryHistoryRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM query_history WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete query history: %w", err)
	}
	return expectAffected(result, "delete query history", id)
}

func scanHistory(row rowScanner) (domain.QueryHistoryEntry, error) {
	var entry domain.QueryHistoryEntry
	var status string
	var resultsRaw, metadataRaw, stagesRaw []byte
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Query, &entry.DatasetID, &entry.DatasetName, &status,
		&resultsRaw, &metadataRaw, &stagesRaw, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return domain.QueryHistoryEntry{}, err
	}
	entry.Status = domain.QueryStatus(status)

	if len(resultsRaw) > 0 {
		var results domain.RefinementResult
		if err := json.Unmarshal(resultsRaw, &results); err != nil {
			return domain.QueryHistoryEntry{}, fmt.Errorf("unmarshal results: %w", err)
		}
		entry.Results = &results
	}
	entry.Metadata = map[string]any{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &entry.Metadata); err != nil {
			return domain.QueryHistoryEntry{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	entry.ProcessingStages = []domain.ProcessingStage{}
	if len(stagesRaw) > 0 {
		if err := json.Unmarshal(stagesRaw, &entry.ProcessingStages); err != nil {
			return domain.QueryHistoryEntry{}, fmt.Errorf("unmarshal processing stages: %w", err)
		}
	}
	return entry, nil
}

func marshalOrDefault[T any](v T, empty string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return []byte(empty), nil
	}
	return raw, nil
}

func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
