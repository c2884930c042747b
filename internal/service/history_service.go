package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/repository"
)

// HistoryService keeps one row per dispatch attempt.
type HistoryService interface {
	Record(ctx context.Context, postID int64, platform string, err error, d time.Duration) error
	ListByPost(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
}

type historyService struct {
	ph repository.PostingHistoryRepository
}

func NewHistoryService(ph repository.PostingHistoryRepository) HistoryService {
	return &historyService{ph: ph}
}

func (s *historyService) Record(ctx context.Context, postID int64, platform string, err error, d time.Duration) error {
	entry := &models.PostingHistory{
		PostID:     postID,
		Platform:   platform,
		Success:    err == nil,
		DurationMS: d.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	if _, err := s.ph.Create(ctx, entry); err != nil {
		return fmt.Errorf("error saving posting history for post %d: %w", postID, err)
	}
	return nil
}

func (s *historyService) ListByPost(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	return s.ph.ListByPostID(ctx, postID)
}
