package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

// ProcessDatasetUseCase runs schema analysis for an uploaded dataset.
type ProcessDatasetUseCase struct {
	repo    ports.DatasetRepository
	storage ports.ObjectStorage
	parser  ports.TabularParser
	cache   ports.SchemaCache
	metrics ports.DatasetProcessMetrics
}

func NewProcessDatasetUseCase(
	repo ports.DatasetRepository,
	storage ports.ObjectStorage,
	parser ports.TabularParser,
	cache ports.SchemaCache,
	metrics ports.DatasetProcessMetrics,
) *ProcessDatasetUseCase {
	if cache == nil {
		cache = noopSchemaCache{}
	}
	if metrics == nil {
		metrics = noopProcessMetrics{}
	}
	return &ProcessDatasetUseCase{
		repo:    repo,
		storage: storage,
		parser:  parser,
		cache:   cache,
		metrics: metrics,
	}
}

func (uc *ProcessDatasetUseCase) ProcessByID(ctx context.Context, datasetID string) (err error) {
	started := time.Now()
	uc.metrics.StartDataset()
	defer func() {
		uc.metrics.FinishDataset(time.Since(started), err)
	}()

	if err := uc.markStatus(ctx, datasetID, domain.DatasetProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	schema, err := uc.analyze(ctx, datasetID)
	if err != nil {
		if failErr := uc.markFailed(ctx, datasetID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveSchema(ctx, datasetID, schema); err != nil {
		err = fmt.Errorf("save schema: %w", err)
		if failErr := uc.markFailed(ctx, datasetID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}
	_ = uc.cache.Set(ctx, datasetID, schema)

	if err := uc.markStatus(ctx, datasetID, domain.DatasetProcessed, ""); err != nil {
		return fmt.Errorf("set status=processed: %w", err)
	}
	return nil
}

func (uc *ProcessDatasetUseCase) analyze(ctx context.Context, datasetID string) (domain.DatasetSchema, error) {
	ds, err := uc.repo.GetByID(ctx, datasetID)
	if err != nil {
		return domain.DatasetSchema{}, fmt.Errorf("fetch dataset by id: %w", err)
	}
	if !ds.CreatedAt.IsZero() {
		uc.metrics.ObserveQueueLag(time.Since(ds.CreatedAt))
	}

	rc, err := uc.storage.Open(ctx, ds.StoragePath)
	if err != nil {
		return domain.DatasetSchema{}, fmt.Errorf("open dataset object: %w", err)
	}
	defer rc.Close()

	rows, err := uc.parser.ReadRows(ctx, rc, ds.FileType)
	if err != nil {
		return domain.DatasetSchema{}, fmt.Errorf("parse dataset: %w", err)
	}

	return AnalyzeSchema(rows)
}

func (uc *ProcessDatasetUseCase) markStatus(ctx context.Context, datasetID string, status domain.DatasetStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, datasetID, status, errMessage)
}

func (uc *ProcessDatasetUseCase) markFailed(ctx context.Context, datasetID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, datasetID, domain.DatasetError, processErr.Error())
}

type noopProcessMetrics struct{}

func (noopProcessMetrics) StartDataset()                      {}
func (noopProcessMetrics) FinishDataset(time.Duration, error) {}
func (noopProcessMetrics) ObserveQueueLag(time.Duration)      {}
