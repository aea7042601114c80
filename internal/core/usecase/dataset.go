package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

const (
	DefaultMaxUploadBytes int64 = 100 << 20
	previewLines                = 10
	rawDatasetPrefix            = "raw_datasets/"

	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

type DatasetService struct {
	repo           ports.DatasetRepository
	storage        ports.ObjectStorage
	queue          ports.MessageQueue
	parser         ports.TabularParser
	cache          ports.SchemaCache
	maxUploadBytes int64
}

func NewDatasetService(
	repo ports.DatasetRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	parser ports.TabularParser,
	cache ports.SchemaCache,
	maxUploadBytes int64,
) *DatasetService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if cache == nil {
		cache = noopSchemaCache{}
	}
	return &DatasetService{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		parser:         parser,
		cache:          cache,
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *DatasetService) Upload(
	ctx context.Context,
	userID, name, filename string,
	size int64,
	body io.Reader,
) (*domain.Dataset, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}
	if size > s.maxUploadBytes {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"upload dataset",
			fmt.Errorf("file size %d exceeds limit %d", size, s.maxUploadBytes),
		)
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s%s_%s", rawDatasetPrefix, id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := s.storage.Save(ctx, storageKey, io.LimitReader(body, s.maxUploadBytes)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	ds := &domain.Dataset{
		ID:           id,
		UserID:       userID,
		Name:         strings.TrimSpace(name),
		OriginalName: filename,
		StoragePath:  storageKey,
		FileType:     fileType,
		FileSize:     size,
		Status:       domain.DatasetUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, ds); err != nil {
		err = fmt.Errorf("create dataset metadata: %w", err)
		if delErr := s.storage.Delete(ctx, storageKey); delErr != nil {
			return nil, fmt.Errorf("%w; remove stored object: %v", err, delErr)
		}
		return nil, err
	}

	// Without the event no worker picks the dataset up, so it is marked failed
	// instead of staying uploaded.
	if err := s.queue.PublishDatasetUploaded(ctx, ds.ID); err != nil {
		err = fmt.Errorf("publish upload event: %w", err)
		if statusErr := s.repo.UpdateStatus(ctx, ds.ID, domain.DatasetError, err.Error()); statusErr != nil {
			return nil, fmt.Errorf("%w; mark dataset failed: %v", err, statusErr)
		}
		return nil, err
	}

	return ds, nil
}

func (s *DatasetService) List(ctx context.Context, userID string) ([]domain.Dataset, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return items, nil
}

// Get returns the dataset only to its owner; other callers see not found.
func (s *DatasetService) Get(ctx context.Context, userID, id string) (*domain.Dataset, error) {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset by id: %w", err)
	}
	if ds.UserID != userID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch dataset by id", fmt.Errorf("dataset %s", id))
	}
	return ds, nil
}

func (s *DatasetService) Preview(ctx context.Context, userID, id string) (*domain.DatasetPreview, error) {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rc, err := s.storage.Open(ctx, ds.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open dataset object: %w", err)
	}
	defer rc.Close()

	lines, err := s.parser.Preview(ctx, rc, ds.FileType, previewLines)
	if err != nil {
		return nil, fmt.Errorf("preview dataset: %w", err)
	}

	rowCount := max(len(lines)-1, 0)
	if ds.Schema != nil {
		rowCount = ds.Schema.TotalRows
	}
	return &domain.DatasetPreview{Lines: lines, RowCount: rowCount}, nil
}

func (s *DatasetService) Delete(ctx context.Context, userID, id string) error {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, ds.StoragePath); err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		return fmt.Errorf("delete dataset object: %w", err)
	}
	if err := s.repo.Delete(ctx, ds.ID); err != nil {
		return fmt.Errorf("delete dataset metadata: %w", err)
	}
	_ = s.cache.Invalidate(ctx, ds.ID)
	return nil
}

// AnalyzeUpload infers a schema without storing anything.
func (s *DatasetService) AnalyzeUpload(ctx context.Context, filename string, body io.Reader) (*domain.DatasetSchema, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}
	rows, err := s.parser.ReadRows(ctx, io.LimitReader(body, s.maxUploadBytes), fileType)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	schema, err := AnalyzeSchema(rows)
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

func (s *DatasetService) Schema(ctx context.Context, userID, id string) (*domain.DatasetSchema, error) {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(ctx, ds.ID); ok {
		return cached, nil
	}
	if ds.Schema == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "dataset schema", fmt.Errorf("dataset %s is %s", ds.ID, ds.Status))
	}
	_ = s.cache.Set(ctx, ds.ID, *ds.Schema)
	return ds.Schema, nil
}

// Rows loads and parses the stored file of an owned dataset.
func (s *DatasetService) Rows(ctx context.Context, ds *domain.Dataset) ([][]string, error) {
	rc, err := s.storage.Open(ctx, ds.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open dataset object: %w", err)
	}
	defer rc.Close()

	rows, err := s.parser.ReadRows(ctx, rc, ds.FileType)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return rows, nil
}

// DetectFileType accepts CSV and XLSX uploads; legacy .xls workbooks are rejected.
func DetectFileType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx":
		return FileTypeXLSX, nil
	case ".xls":
		return "", domain.WrapError(domain.ErrInvalidFormat, "detect file type", errors.New("legacy .xls workbooks are not supported, save as .xlsx"))
	default:
		return "", domain.WrapError(domain.ErrInvalidFormat, "detect file type", fmt.Errorf("unsupported file %q, expected .csv or .xlsx", filename))
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "dataset.csv"
	}
	return base
}

type noopSchemaCache struct{}

func (noopSchemaCache) Get(context.Context, string) (*domain.DatasetSchema, bool) { return nil, false }
func (noopSchemaCache) Set(context.Context, string, domain.DatasetSchema) error   { return nil }
func (noopSchemaCache) Invalidate(context.Context, string) error                  { return nil }
