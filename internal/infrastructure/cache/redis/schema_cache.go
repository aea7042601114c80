package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	schemaKeyFormat       = "dataset:schema:%s"
	DefaultSchemaCacheTTL = 24 * time.Hour
)

// SchemaCache stores inferred dataset schemas as JSON. Read failures are
// treated as misses.
type SchemaCache struct {
	client commander
	ttl    time.Duration
	logger *slog.Logger
}

func NewSchemaCache(client commander, ttl time.Duration, logger *slog.Logger) *SchemaCache {
	if ttl <= 0 {
		ttl = DefaultSchemaCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaCache{client: client, ttl: ttl, logger: logger}
}

func (c *SchemaCache) Get(ctx context.Context, datasetID string) (*domain.DatasetSchema, bool) {
	data, err := c.client.Get(ctx, schemaKey(datasetID)).Bytes()
	if err != nil {
		return nil, false
	}
	var schema domain.DatasetSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		c.logger.Warn("drop undecodable cached schema", "dataset_id", datasetID, "error", err)
		_ = c.Invalidate(ctx, datasetID)
		return nil, false
	}
	return &schema, true
}

func (c *SchemaCache) Set(ctx context.Context, datasetID string, schema domain.DatasetSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := c.client.Set(ctx, schemaKey(datasetID), data, c.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "cache schema", err)
	}
	return nil
}

func (c *SchemaCache) Invalidate(ctx context.Context, datasetID string) error {
	if err := c.client.Del(ctx, schemaKey(datasetID)).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "invalidate schema", err)
	}
	return nil
}

func schemaKey(datasetID string) string {
	return fmt.Sprintf(schemaKeyFormat, datasetID)
}
