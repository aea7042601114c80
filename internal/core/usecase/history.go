package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
)

const historyListLimit = 50

type HistoryService struct {
	repo ports.QueryHistoryRepository
}

func NewHistoryService(repo ports.QueryHistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) Create(ctx context.Context, userID string, req domain.NewQueryRequest) (*domain.QueryHistoryEntry, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create query history", errors.New("query is required"))
	}

	now := time.Now().UTC()
	metadata := map[string]any{}
	if req.CustomID != "" {
		metadata["customId"] = req.CustomID
	}
	stages := req.ProcessingStages
	if stages == nil {
		stages = []domain.ProcessingStage{}
	}

	entry := &domain.QueryHistoryEntry{
		ID:               uuid.NewString(),
		UserID:           userID,
		Query:            query,
		DatasetID:        req.DatasetID,
		DatasetName:      req.DatasetName,
		Status:           domain.QueryProcessing,
		Metadata:         metadata,
		ProcessingStages: stages,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create query history: %w", err)
	}
	return entry, nil
}

func (s *HistoryService) Update(ctx context.Context, userID, id string, update domain.QueryUpdate) (*domain.QueryHistoryEntry, error) {
	if err := validateEntryID(id); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update query history", fmt.Errorf("unknown status %q", *update.Status))
	}
	entry, err := s.repo.Update(ctx, userID, id, update)
	if err != nil {
		return nil, fmt.Errorf("update query history: %w", err)
	}
	return entry, nil
}

func (s *HistoryService) Get(ctx context.Context, userID, id string) (*domain.QueryHistoryEntry, error) {
	if err := validateEntryID(id); err != nil {
		return nil, err
	}
	entry, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("fetch query history: %w", err)
	}
	return entry, nil
}

func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.QueryHistoryEntry, error) {
	items, err := s.repo.ListByUser(ctx, userID, historyListLimit)
	if err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	return items, nil
}

func (s *HistoryService) Delete(ctx context.Context, userID, id string) error {
	if err := validateEntryID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete query history: %w", err)
	}
	return nil
}

func validateEntryID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate query id", err)
	}
	return nil
}
