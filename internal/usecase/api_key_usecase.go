package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// maxAPIKeysPerUser caps custom providers a user can add.
const maxAPIKeysPerUser = 20

type apiKeyUsecase struct {
	repo     domain.APIKeyRepository
	validate *validator.Validate
}

func NewAPIKeyUsecase(repo domain.APIKeyRepository, validate *validator.Validate) domain.APIKeyUsecase {
	return &apiKeyUsecase{repo: repo, validate: validate}
}

func (u *apiKeyUsecase) List(ctx context.Context, userID string) ([]domain.APIKeySummary, error) {
	keys, err := u.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load API keys", err)
	}
	summaries := make([]domain.APIKeySummary, 0, len(keys))
	for i := range keys {
		summaries = append(summaries, keys[i].Summary())
	}
	return summaries, nil
}

func (u *apiKeyUsecase) Save(ctx context.Context, userID string, req *domain.SaveAPIKeyRequest) (*domain.APIKeySummary, error) {
	req.Provider = strings.TrimSpace(req.Provider)
	req.Key = strings.TrimSpace(req.Key)
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	existing, err := u.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load API keys", err)
	}
	if len(existing) >= maxAPIKeysPerUser && !hasProvider(existing, req.Provider) {
		return nil, apperror.Validation(fmt.Sprintf("You can store at most %d API keys", maxAPIKeysPerUser), nil)
	}

	saved, err := u.repo.Upsert(ctx, &domain.APIKey{UserID: userID, Provider: req.Provider, Key: req.Key})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.NotFound("Profile not found")
	}
	if err != nil {
		return nil, apperror.StoreFailure("Failed to save API key", err)
	}
	summary := saved.Summary()
	return &summary, nil
}

func (u *apiKeyUsecase) Delete(ctx context.Context, userID, provider string) error {
	err := u.repo.Delete(ctx, userID, strings.TrimSpace(provider))
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound("No API key saved for this provider")
	}
	if err != nil {
		return apperror.StoreFailure("Failed to delete API key", err)
	}
	return nil
}

func hasProvider(keys []domain.APIKey, provider string) bool {
	for i := range keys {
		if keys[i].Provider == provider {
			return true
		}
	}
	return false
}
