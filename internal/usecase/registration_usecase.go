package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/audit"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type registrationUsecase struct {
	regRepo    domain.RegistrationRepository
	referralUC domain.ReferralUsecase
	validate   *validator.Validate
	audit      *audit.Logger
	now        func() time.Time
}

func NewRegistrationUsecase(
	regRepo domain.RegistrationRepository,
	referralUC domain.ReferralUsecase,
	validate *validator.Validate,
	auditLog *audit.Logger,
) domain.RegistrationUsecase {
	return &registrationUsecase{
		regRepo:    regRepo,
		referralUC: referralUC,
		validate:   validate,
		audit:      auditLog,
		now:        time.Now,
	}
}

func (u *registrationUsecase) Submit(ctx context.Context, req *domain.SubmitRegistrationRequest) (*domain.SubmitResult, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	email := domain.NormalizeEmail(req.Email)
	result := &domain.SubmitResult{
		Outcome:         domain.OutcomeWelcomeBack,
		Email:           email,
		ReferralOutcome: domain.ReferralNotAttempted,
		ReferralLink:    domain.ReferralPath(email),
	}

	_, err := u.regRepo.GetByEmail(ctx, email)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.StoreFailure("Registration is temporarily unavailable", err)
	}

	reg := &domain.Registration{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Country:      strings.TrimSpace(req.Country),
		HeardFrom:    domain.DiscoveryChannel(req.HeardFrom),
		Organization: strings.TrimSpace(req.Organization),
		Status:       domain.RegistrationPending,
		RegisteredAt: u.now().UTC(),
	}
	if err := u.regRepo.Create(ctx, reg); err != nil {
		// A concurrent submit with the same email got there first.
		if errors.Is(err, domain.ErrDuplicate) {
			return result, nil
		}
		return nil, apperror.StoreFailure("Registration is temporarily unavailable", err)
	}

	result.Outcome = domain.OutcomeRegistered
	result.ReferralOutcome = u.attributeReferral(ctx, req.Ref, email)
	return result, nil
}

// attributeReferral never fails the registration: errors are logged and
// reported as ReferralFailed.
func (u *registrationUsecase) attributeReferral(ctx context.Context, ref, referred string) domain.ReferralOutcome {
	if strings.TrimSpace(ref) == "" {
		return domain.ReferralSkippedNoReferrer
	}

	referrer, ok, err := u.referralUC.ResolveReferrer(ctx, ref)
	if err != nil {
		u.logReferralFailure(ctx, ref, referred, err)
		return domain.ReferralFailed
	}
	if !ok {
		return domain.ReferralSkippedNoReferrer
	}

	outcome, err := u.referralUC.CreateEdge(ctx, referrer, referred)
	if err != nil {
		u.logReferralFailure(ctx, referrer, referred, err)
		return domain.ReferralFailed
	}
	return outcome
}

func (u *registrationUsecase) logReferralFailure(ctx context.Context, referrer, referred string, err error) {
	logger.Log.Error("Referral attribution failed", "error", err)
	u.audit.ReferralFailed(ctx, referrer, referred, err)
}
