package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

type statusCall struct {
	status domain.DatasetStatus
	errMsg string
}

type datasetRepoFake struct {
	items       map[string]*domain.Dataset
	createErr   error
	saveErr     error
	deleted     []string
	statusCalls []statusCall
	savedSchema *domain.DatasetSchema
}

func newDatasetRepoFake(items ...*domain.Dataset) *datasetRepoFake {
	f := &datasetRepoFake{items: map[string]*domain.Dataset{}}
	for _, ds := range items {
		f.items[ds.ID] = ds
	}
	return f
}

func (f *datasetRepoFake) Create(_ context.Context, ds *domain.Dataset) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDS := *ds
	f.items[ds.ID] = &copyDS
	return nil
}

func (f *datasetRepoFake) GetByID(_ context.Context, id string) (*domain.Dataset, error) {
	ds, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get dataset", fmt.Errorf("id=%s", id))
	}
	copyDS := *ds
	return &copyDS, nil
}

func (f *datasetRepoFake) ListByUser(_ context.Context, userID string) ([]domain.Dataset, error) {
	out := []domain.Dataset{}
	for _, ds := range f.items {
		if ds.UserID == userID {
			out = append(out, *ds)
		}
	}
	return out, nil
}

func (f *datasetRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DatasetStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *datasetRepoFake) SaveSchema(_ context.Context, _ string, schema domain.DatasetSchema) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedSchema = &schema
	return nil
}

func (f *datasetRepoFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.items, id)
	return nil
}

type storageFake struct {
	objects map[string]string
	deleted []string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", fmt.Errorf("key=%s", key))
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDatasetUploaded(_ context.Context, datasetID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, datasetID)
	return nil
}

func (f *queueFake) SubscribeDatasetUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// lineParserFake splits on newlines and commas; enough for usecase tests.
type lineParserFake struct {
	err error
}

func (f *lineParserFake) ReadRows(_ context.Context, r io.Reader, _ string) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rows := [][]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, ","))
	}
	return rows, nil
}

func (f *lineParserFake) Preview(_ context.Context, r io.Reader, _ string, maxLines int) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines, nil
}

type schemaCacheFake struct {
	items       map[string]domain.DatasetSchema
	invalidated []string
}

func newSchemaCacheFake() *schemaCacheFake {
	return &schemaCacheFake{items: map[string]domain.DatasetSchema{}}
}

func (f *schemaCacheFake) Get(_ context.Context, id string) (*domain.DatasetSchema, bool) {
	s, ok := f.items[id]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (f *schemaCacheFake) Set(_ context.Context, id string, schema domain.DatasetSchema) error {
	f.items[id] = schema
	return nil
}

func (f *schemaCacheFake) Invalidate(_ context.Context, id string) error {
	f.invalidated = append(f.invalidated, id)
	delete(f.items, id)
	return nil
}

const peopleCSV = "name,title,industry\nAnn,Founder,Healthcare\nBen,Engineer,Retail\n"

func TestDatasetUploadSuccess(t *testing.T) {
	repo := newDatasetRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}
	svc := NewDatasetService(repo, storage, queue, &lineParserFake{}, nil, 0)

	ds, err := svc.Upload(context.Background(), "user-1", "", "people list.csv", int64(len(peopleCSV)), bytes.NewBufferString(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if ds.Status != domain.DatasetUploaded || ds.FileType != FileTypeCSV {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if ds.Name != "people list" {
		t.Fatalf("expected name from filename, got %q", ds.Name)
	}
	if !strings.HasPrefix(ds.StoragePath, "raw_datasets/") || !strings.HasSuffix(ds.StoragePath, "_people_list.csv") {
		t.Fatalf("unexpected storage key %s", ds.StoragePath)
	}
	if storage.objects[ds.StoragePath] != peopleCSV {
		t.Fatalf("expected stored body")
	}
	if len(queue.published) != 1 || queue.published[0] != ds.ID {
		t.Fatalf("expected upload event for %s, got %v", ds.ID, queue.published)
	}
}

func TestDatasetUploadRejections(t *testing.T) {
	svc := NewDatasetService(newDatasetRepoFake(), newStorageFake(), &queueFake{}, &lineParserFake{}, nil, 10)

	_, err := svc.Upload(context.Background(), "u", "n", "legacy.xls", 1, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected invalid format for .xls, got %v", err)
	}
	_, err = svc.Upload(context.Background(), "u", "n", "notes.txt", 1, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected invalid format for .txt, got %v", err)
	}
	_, err = svc.Upload(context.Background(), "u", "n", "big.csv", 11, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized file, got %v", err)
	}
}

func TestDatasetUploadQueueErrorMarksDatasetFailed(t *testing.T) {
	repo := newDatasetRepoFake()
	svc := NewDatasetService(repo, newStorageFake(), &queueFake{err: errors.New("queue down")}, &lineParserFake{}, nil, 0)

	_, err := svc.Upload(context.Background(), "u", "n", "a.csv", 1, strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "publish upload event") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.DatasetError {
		t.Fatalf("expected dataset marked error, got %+v", repo.statusCalls)
	}
	if !strings.Contains(repo.statusCalls[0].errMsg, "queue down") {
		t.Fatalf("expected publish cause in status message, got %q", repo.statusCalls[0].errMsg)
	}
}

func TestDatasetUploadCreateErrorRemovesStoredObject(t *testing.T) {
	repo := newDatasetRepoFake()
	repo.createErr = errors.New("db down")
	storage := newStorageFake()
	queue := &queueFake{}
	svc := NewDatasetService(repo, storage, queue, &lineParserFake{}, nil, 0)

	_, err := svc.Upload(context.Background(), "u", "n", "a.csv", 1, strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "create dataset metadata") {
		t.Fatalf("expected create error, got %v", err)
	}
	if len(storage.objects) != 0 || len(storage.deleted) != 1 {
		t.Fatalf("expected stored object removed, objects=%v deleted=%v", storage.objects, storage.deleted)
	}
	if len(queue.published) != 0 {
		t.Fatalf("nothing must be published when metadata is missing")
	}
}

func TestDetectFileType(t *testing.T) {
	if ft, err := DetectFileType("Report.XLSX"); err != nil || ft != FileTypeXLSX {
		t.Fatalf("DetectFileType() = %s, %v", ft, err)
	}
}

func TestDatasetGetHidesForeignDatasets(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", UserID: "owner"})
	svc := NewDatasetService(repo, newStorageFake(), &queueFake{}, &lineParserFake{}, nil, 0)

	if _, err := svc.Get(context.Background(), "intruder", "ds-1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "owner", "ds-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestDatasetDeleteRemovesObjectRowAndCache(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", UserID: "owner", StoragePath: "raw_datasets/k.csv"})
	storage := newStorageFake()
	storage.objects["raw_datasets/k.csv"] = peopleCSV
	cache := newSchemaCacheFake()
	svc := NewDatasetService(repo, storage, &queueFake{}, &lineParserFake{}, cache, 0)

	if err := svc.Delete(context.Background(), "owner", "ds-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(storage.deleted) != 1 || len(repo.deleted) != 1 || len(cache.invalidated) != 1 {
		t.Fatalf("expected object, row and cache removal: %v %v %v", storage.deleted, repo.deleted, cache.invalidated)
	}
}

func TestDatasetPreview(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", UserID: "owner", StoragePath: "k", FileType: FileTypeCSV})
	storage := newStorageFake()
	storage.objects["k"] = peopleCSV
	svc := NewDatasetService(repo, storage, &queueFake{}, &lineParserFake{}, nil, 0)

	preview, err := svc.Preview(context.Background(), "owner", "ds-1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(preview.Lines) != 3 || preview.RowCount != 2 {
		t.Fatalf("unexpected preview %+v", preview)
	}
}

func TestDatasetAnalyzeUpload(t *testing.T) {
	svc := NewDatasetService(newDatasetRepoFake(), newStorageFake(), &queueFake{}, &lineParserFake{}, nil, 0)

	schema, err := svc.AnalyzeUpload(context.Background(), "people.csv", strings.NewReader(peopleCSV))
	if err != nil {
		t.Fatalf("AnalyzeUpload() error = %v", err)
	}
	if len(schema.Fields) != 3 || schema.TotalRows != 2 {
		t.Fatalf("unexpected schema %+v", schema)
	}

	_, err = svc.AnalyzeUpload(context.Background(), "people.csv", strings.NewReader("name,title\n"))
	if !domain.IsKind(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected invalid format for header-only file, got %v", err)
	}
}

func TestDatasetSchemaPrefersCache(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", UserID: "owner", Status: domain.DatasetUploaded})
	cache := newSchemaCacheFake()
	svc := NewDatasetService(repo, newStorageFake(), &queueFake{}, &lineParserFake{}, cache, 0)

	if _, err := svc.Schema(context.Background(), "owner", "ds-1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found before processing, got %v", err)
	}

	cache.items["ds-1"] = domain.DatasetSchema{TotalRows: 7}
	schema, err := svc.Schema(context.Background(), "owner", "ds-1")
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if schema.TotalRows != 7 {
		t.Fatalf("expected cached schema, got %+v", schema)
	}
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", StoragePath: "k", FileType: FileTypeCSV})
	storage := newStorageFake()
	storage.objects["k"] = peopleCSV
	cache := newSchemaCacheFake()
	uc := NewProcessDatasetUseCase(repo, storage, &lineParserFake{}, cache, nil)

	if err := uc.ProcessByID(context.Background(), "ds-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.DatasetProcessing || repo.statusCalls[1].status != domain.DatasetProcessed {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.savedSchema == nil || repo.savedSchema.TotalRows != 2 {
		t.Fatalf("expected saved schema, got %+v", repo.savedSchema)
	}
	if _, ok := cache.items["ds-1"]; !ok {
		t.Fatalf("expected schema cached")
	}
}

func TestProcessByIDMarksFailedOnParseError(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", StoragePath: "k"})
	storage := newStorageFake()
	storage.objects["k"] = "x"
	uc := NewProcessDatasetUseCase(repo, storage, &lineParserFake{err: errors.New("bad sheet")}, nil, nil)

	err := uc.ProcessByID(context.Background(), "ds-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.DatasetError {
		t.Fatalf("expected processing + error status updates, got %+v", repo.statusCalls)
	}
	if !strings.Contains(repo.statusCalls[1].errMsg, "bad sheet") {
		t.Fatalf("expected error message persisted, got %q", repo.statusCalls[1].errMsg)
	}
}

func TestProcessByIDMarksFailedOnSchemaSaveError(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", StoragePath: "k"})
	repo.saveErr = errors.New("db down")
	storage := newStorageFake()
	storage.objects["k"] = peopleCSV
	uc := NewProcessDatasetUseCase(repo, storage, &lineParserFake{}, nil, nil)

	if err := uc.ProcessByID(context.Background(), "ds-1"); err == nil {
		t.Fatalf("expected error")
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.DatasetError {
		t.Fatalf("expected final error status, got %+v", repo.statusCalls)
	}
}

type processMetricsFake struct {
	started  int
	finished []error
	lags     int
}

func (f *processMetricsFake) StartDataset() { f.started++ }
func (f *processMetricsFake) FinishDataset(_ time.Duration, err error) {
	f.finished = append(f.finished, err)
}
func (f *processMetricsFake) ObserveQueueLag(time.Duration) { f.lags++ }

func TestProcessByIDReportsMetrics(t *testing.T) {
	repo := newDatasetRepoFake(&domain.Dataset{ID: "ds-1", StoragePath: "k", CreatedAt: time.Now().Add(-time.Second)})
	storage := newStorageFake()
	storage.objects["k"] = peopleCSV
	metrics := &processMetricsFake{}
	uc := NewProcessDatasetUseCase(repo, storage, &lineParserFake{}, nil, metrics)

	if err := uc.ProcessByID(context.Background(), "ds-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if metrics.started != 1 || len(metrics.finished) != 1 || metrics.finished[0] != nil {
		t.Fatalf("unexpected process metrics: %+v", metrics)
	}
	if metrics.lags != 1 {
		t.Fatalf("expected queue lag observed once, got %d", metrics.lags)
	}
}
