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

const datasetColumns = `id, user_id, name, original_name, storage_path, file_type, file_size, status, schema, error_message, created_at, updated_at`

type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Create(ctx context.Context, ds *domain.Dataset) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO datasets (
	id, user_id, name, original_name, storage_path, file_type, file_size, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		ds.ID, ds.UserID, ds.Name, ds.OriginalName, ds.StoragePath, ds.FileType, ds.FileSize,
		string(ds.Status), ds.Error, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+datasetColumns+`
FROM datasets
WHERE id = $1
`, id)

	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get dataset", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	return &ds, nil
}

func (r *DatasetRepository) ListByUser(ctx context.Context, userID string) ([]domain.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+datasetColumns+`
FROM datasets
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Dataset, 0)
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

func (r *DatasetRepository) UpdateStatus(ctx context.Context, id string, status domain.DatasetStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE datasets
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update dataset status: %w", err)
	}
	return expectAffected(result, "update dataset status", id)
}

func (r *DatasetRepository) SaveSchema(ctx context.Context, id string, schema domain.DatasetSchema) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE datasets
SET schema = $2, updated_at = $3
WHERE id = $1
`, id, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save dataset schema: %w", err)
	}
	return expectAffected(result, "save dataset schema", id)
}

func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return expectAffected(result, "delete dataset", id)
}

func scanDataset(row rowScanner) (domain.Dataset, error) {
	var ds domain.Dataset
	var status string
	var schemaRaw []byte
	err := row.Scan(
		&ds.ID, &ds.UserID, &ds.Name, &ds.OriginalName, &ds.StoragePath, &ds.FileType, &ds.FileSize,
		&status, &schemaRaw, &ds.Error, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds.Status = domain.DatasetStatus(status)
	if len(schemaRaw) > 0 {
		var schema domain.DatasetSchema
		if err := json.Unmarshal(schemaRaw, &schema); err != nil {
			return domain.Dataset{}, fmt.Errorf("unmarshal schema: %w", err)
		}
		ds.Schema = &schema
	}
	return ds, nil
}

func expectAffected(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
