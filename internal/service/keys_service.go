package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/pkg/utils"
)

const maxApiKeys = 5

var (
	ErrApiKeyLimit   = errors.New("only 5 API keys can be created")
	ErrInvalidApiKey = errors.New("invalid API key")
)

type ApiKeyService interface {
	Create(ctx context.Context, label string) (string, *models.ApiKey, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Authenticate(ctx context.Context, apiKey string) (*models.ApiKey, error)
	Remove(ctx context.Context, id int64) (bool, error)
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

// Create returns the plain key. It is never shown again.
func (s *apiKeyService) Create(ctx context.Context, label string) (string, *models.ApiKey, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "automation"
	}

	n, err := s.k.Count(ctx)
	if err != nil {
		return "", nil, err
	}
	if n >= maxApiKeys {
		slog.Info(ErrApiKeyLimit.Error())
		return "", nil, ErrApiKeyLimit
	}

	key, err := utils.GenerateRandomKey(24)
	if err != nil {
		slog.Info(err.Error())
		return "", nil, fmt.Errorf("error generating API key: %w", err)
	}

	apiKey := &models.ApiKey{
		Label:   label,
		Prefix:  key[:8],
		KeyHash: utils.HashKey(key),
	}
	id, err := s.k.Create(ctx, apiKey)
	if err != nil {
		return "", nil, fmt.Errorf("error saving API key: %w", err)
	}
	apiKey.ID = id
	return key, apiKey, nil
}

func (s *apiKeyService) List(ctx context.Context) ([]*models.ApiKey, error) {
	keys, err := s.k.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys: %w", err)
	}
	return keys, nil
}

func (s *apiKeyService) Authenticate(ctx context.Context, apiKey string) (*models.ApiKey, error) {
	if apiKey == "" {
		return nil, ErrInvalidApiKey
	}
	key, err := s.k.GetByHash(ctx, utils.HashKey(apiKey))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrInvalidApiKey
	}

	if err := s.k.Touch(ctx, key.ID, time.Now()); err != nil {
		slog.Info(err.Error())
	}
	return key, nil
}

func (s *apiKeyService) Remove(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.k.Remove(ctx, id)
}
