package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/storage"
	"ura-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	avatarMaxDimension = 512
	avatarJPEGQuality  = 85
)

type profileUsecase struct {
	profileRepo    domain.ProfileRepository
	objects        domain.ObjectStorage
	validate       *validator.Validate
	maxAvatarBytes int64
	now            func() time.Time
}

// NewProfileUsecase builds the account settings usecase. objects may be nil
// when storage is not configured; avatar operations then fail with 503.
func NewProfileUsecase(profileRepo domain.ProfileRepository, objects domain.ObjectStorage, validate *validator.Validate, maxAvatarBytes int64) domain.ProfileUsecase {
	return &profileUsecase{
		profileRepo:    profileRepo,
		objects:        objects,
		validate:       validate,
		maxAvatarBytes: maxAvatarBytes,
		now:            time.Now,
	}
}

func (u *profileUsecase) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := u.profileRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.NotFound("Profile not found")
	}
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load profile", err)
	}
	return p, nil
}

func (u *profileUsecase) UpdateSettings(ctx context.Context, userID string, req *domain.UpdateSettingsRequest) (*domain.Profile, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	current, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Settings are mirrored into the onboarding payload so both views agree.
	patch := domain.OnboardingData{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		PhoneNumber:       req.PhoneNumber,
		CountryCode:       req.CountryCode,
		PostalCode:        req.PostalCode,
		ResearchInterests: req.ResearchInterests,
		ResearchGoals:     req.ResearchGoals,
		OneThingToFind:    req.OneThingToFind,
		PreferredTools:    req.PreferredTools,
	}
	merged := current.OnboardingData.Merge(patch)
	if merged.FirstName == nil {
		merged.FirstName = current.FirstName
	}
	if merged.LastName == nil {
		merged.LastName = current.LastName
	}
	cols := projectColumns(merged)
	cols.Username = nil

	updated, err := u.profileRepo.UpdateSettings(ctx, userID, cols, patch)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to save settings", err)
	}
	return updated, nil
}

func (u *profileUsecase) CheckUsername(ctx context.Context, userID, username string) (*domain.UsernameCheck, error) {
	check := &domain.UsernameCheck{Username: username}
	if problem := validation.UsernameProblem(username); problem != "" {
		check.Reason = problem
		return check, nil
	}

	taken, err := u.profileRepo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to check username", err)
	}
	if taken {
		check.Reason = "Username is already taken"
		return check, nil
	}
	check.Available = true
	return check, nil
}

func (u *profileUsecase) ChangeUsername(ctx context.Context, userID string, req *domain.ChangeUsernameRequest) (*domain.Profile, error) {
	username := strings.TrimSpace(req.Username)
	if problem := validation.UsernameProblem(username); problem != "" {
		return nil, apperror.Validation(problem, nil)
	}
	req.Username = username
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	p, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Username != nil && *p.Username == username {
		return p, nil
	}

	now := u.now().UTC()
	if p.UsernameChangedAt != nil {
		next := p.UsernameChangedAt.Add(domain.UsernameChangeCooldown)
		if now.Before(next) {
			return nil, apperror.Validation(
				fmt.Sprintf("You can change your username again on %s", next.Format("January 2, 2006")),
				map[string]interface{}{"next_change_at": next},
			)
		}
	}

	if err := checkUsernameAvailable(ctx, u.profileRepo, userID, username); err != nil {
		return nil, err
	}

	err = u.profileRepo.UpdateUsername(ctx, userID, username, now)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return nil, apperror.Conflict("Username is already taken")
	case errors.Is(err, domain.ErrNotFound):
		return nil, apperror.NotFound("Profile not found")
	case err != nil:
		return nil, apperror.StoreFailure("Failed to change username", err)
	}
	return u.GetProfile(ctx, userID)
}

// UploadAvatar stores a resized JPEG under a fresh key, points the profile at
// it and only then removes the previous object.
func (u *profileUsecase) UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64) (*domain.Profile, error) {
	if u.objects == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Avatar uploads are not available", nil)
	}
	if size > u.maxAvatarBytes {
		return nil, apperror.Validation(avatarTooLargeMessage(u.maxAvatarBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(body, u.maxAvatarBytes+1))
	if err != nil {
		return nil, apperror.BadRequest("Failed to read upload")
	}
	if _, err := storage.ValidateImage(data, u.maxAvatarBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperror.Validation(avatarTooLargeMessage(u.maxAvatarBytes), nil)
		}
		return nil, apperror.Validation("Avatar must be a JPEG, PNG, GIF or WebP image", nil)
	}
	resized, err := storage.ResizeImage(data, avatarMaxDimension, avatarJPEGQuality)
	if err != nil {
		return nil, apperror.Validation("Could not read the image", nil)
	}

	current, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%s.jpg", userID, uuid.NewString())
	if err := u.objects.Upload(ctx, path, "image/jpeg", bytes.NewReader(resized), int64(len(resized))); err != nil {
		return nil, apperror.StoreFailure("Failed to upload avatar", err)
	}

	url := u.objects.PublicURL(path)
	if err := u.profileRepo.UpdateAvatar(ctx, userID, &url, &path); err != nil {
		u.removeQuietly(ctx, path)
		return nil, apperror.StoreFailure("Failed to save avatar", err)
	}

	if current.AvatarPath != nil && *current.AvatarPath != path {
		u.removeQuietly(ctx, *current.AvatarPath)
	}
	return u.GetProfile(ctx, userID)
}

func (u *profileUsecase) RemoveAvatar(ctx context.Context, userID string) (*domain.Profile, error) {
	current, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.AvatarURL == nil && current.AvatarPath == nil {
		return current, nil
	}

	if err := u.profileRepo.UpdateAvatar(ctx, userID, nil, nil); err != nil {
		return nil, apperror.StoreFailure("Failed to remove avatar", err)
	}
	if current.AvatarPath != nil && u.objects != nil {
		u.removeQuietly(ctx, *current.AvatarPath)
	}
	return u.GetProfile(ctx, userID)
}

// removeQuietly leaves orphaned objects behind rather than failing the request.
func (u *profileUsecase) removeQuietly(ctx context.Context, path string) {
	if err := u.objects.Remove(ctx, path); err != nil {
		logger.Log.Warn("Failed to remove avatar object", "path", path, "error", err)
	}
}

func avatarTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Avatar must be %dMB or smaller", maxBytes/(1024*1024))
}

// checkUsernameAvailable applies the static username rules and then checks
// that no other profile holds it.
func checkUsernameAvailable(ctx context.Context, repo domain.ProfileRepository, userID, username string) error {
	username = strings.TrimSpace(username)
	if problem := validation.UsernameProblem(username); problem != "" {
		return apperror.Validation(problem, nil)
	}
	taken, err := repo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return apperror.StoreFailure("Failed to check username", err)
	}
	if taken {
		return apperror.Conflict("Username is already taken")
	}
	return nil
}
