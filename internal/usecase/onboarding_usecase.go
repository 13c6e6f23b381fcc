package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

const provisionTimeout = 10 * time.Second

type onboardingUsecase struct {
	profileRepo domain.ProfileRepository
	bus         domain.CompletionBus
	validate    *validator.Validate
	provision   singleflight.Group
	now         func() time.Time
}

func NewOnboardingUsecase(profileRepo domain.ProfileRepository, bus domain.CompletionBus, validate *validator.Validate) domain.OnboardingUsecase {
	return &onboardingUsecase{
		profileRepo: profileRepo,
		bus:         bus,
		validate:    validate,
		now:         time.Now,
	}
}

// EnsureProfile collapses concurrent first reads for the same user within
// this process; across processes the insert is ON CONFLICT DO NOTHING and a
// lost race simply re-reads. The shared load is detached from the caller that
// started it, so one cancelled request never fails the others waiting on it.
func (u *onboardingUsecase) EnsureProfile(ctx context.Context, userID, email string) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	shared := context.WithoutCancel(ctx)
	ch := u.provision.DoChan(userID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(shared, provisionTimeout)
		defer cancel()
		return u.loadOrCreate(loadCtx, userID, email)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Profile), nil
	}
}

func (u *onboardingUsecase) loadOrCreate(ctx context.Context, userID, email string) (*domain.Profile, error) {
	p, err := u.profileRepo.GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.StoreFailure("Failed to load onboarding status", err)
	}

	if email == "" {
		email, _ = ctx.Value(domain.KeyUserEmail).(string)
	}
	created, err := u.profileRepo.CreateIfAbsent(ctx, userID, domain.NormalizeEmail(email))
	if err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return nil, apperror.StoreFailure("Failed to create profile", err)
	}
	if created {
		logger.Log.Info("Provisioned profile", "user_id", userID)
	}

	p, err = u.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load onboarding status", err)
	}
	return p, nil
}

func (u *onboardingUsecase) GetStatus(ctx context.Context, userID, email string) (*domain.OnboardingState, error) {
	p, err := u.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	return p.OnboardingState(), nil
}

func (u *onboardingUsecase) CompleteStep(ctx context.Context, userID string, step int, data domain.OnboardingData) (*domain.OnboardingState, error) {
	if step < 1 || step > domain.OnboardingMaxStep {
		return nil, apperror.Validation("Step must be between 1 and 5", nil)
	}
	if err := u.validate.Struct(data); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	p, err := u.EnsureProfile(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if p.OnboardingStatus == domain.OnboardingCompleted {
		return nil, apperror.Conflict("Onboarding is already completed")
	}

	merged := p.OnboardingData.Merge(data)
	if step == 1 {
		if err := u.checkPersonalDetails(ctx, userID, merged); err != nil {
			return nil, err
		}
	}

	nextStep := min(step+1, domain.OnboardingMaxStep)
	updated, err := u.profileRepo.AdvanceStep(ctx, userID, nextStep, data)
	if errors.Is(err, domain.ErrNotFound) {
		// Completed by a concurrent request between the read and the write.
		return nil, apperror.Conflict("Onboarding is already completed")
	}
	if err != nil {
		return nil, apperror.StoreFailure("Failed to save onboarding step", err)
	}
	return updated.OnboardingState(), nil
}

func (u *onboardingUsecase) Complete(ctx context.Context, userID string, data domain.OnboardingData) (*domain.OnboardingState, error) {
	if err := u.validate.Struct(data); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	p, err := u.EnsureProfile(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if p.OnboardingStatus == domain.OnboardingCompleted {
		return p.OnboardingState(), nil
	}

	merged := p.OnboardingData.Merge(data)
	if err := u.checkPersonalDetails(ctx, userID, merged); err != nil {
		return nil, err
	}

	at := u.now().UTC()
	updated, transitioned, err := u.profileRepo.MarkCompleted(ctx, userID, data, projectColumns(merged), at)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return nil, apperror.Conflict("Username is already taken")
	case errors.Is(err, domain.ErrNotFound):
		return nil, apperror.NotFound("Profile not found")
	case err != nil:
		return nil, apperror.StoreFailure("Failed to complete onboarding", err)
	}

	if transitioned {
		u.bus.Emit(domain.CompletionEvent{UserID: userID, CompletedAt: at})
	}
	return updated.OnboardingState(), nil
}

func (u *onboardingUsecase) IsSetupComplete(ctx context.Context, userID string) (bool, error) {
	p, err := u.profileRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.StoreFailure("Failed to load onboarding status", err)
	}
	return p.OnboardingStatus == domain.OnboardingCompleted && p.HasCompletedSetup, nil
}

// checkPersonalDetails enforces the first wizard step: names plus a valid,
// available username.
func (u *onboardingUsecase) checkPersonalDetails(ctx context.Context, userID string, d domain.OnboardingData) error {
	var missing []string
	if blank(d.FirstName) {
		missing = append(missing, "First name is required")
	}
	if blank(d.LastName) {
		missing = append(missing, "Last name is required")
	}
	if blank(d.Username) {
		missing = append(missing, "Username is required")
	}
	if len(missing) > 0 {
		return apperror.Validation("Please complete your personal details", missing)
	}
	return checkUsernameAvailable(ctx, u.profileRepo, userID, *d.Username)
}

// projectColumns copies the payload fields that have a profile column.
func projectColumns(d domain.OnboardingData) domain.ProfileColumns {
	cols := domain.ProfileColumns{
		Username:          d.Username,
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		PhoneNumber:       d.PhoneNumber,
		CountryCode:       d.CountryCode,
		PostalCode:        d.PostalCode,
		ResearchInterests: d.ResearchInterests,
		PreferredTools:    d.PreferredTools,
	}
	if !blank(d.FirstName) && !blank(d.LastName) {
		full := strings.TrimSpace(*d.FirstName) + " " + strings.TrimSpace(*d.LastName)
		cols.FullName = &full
	}
	return cols
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
