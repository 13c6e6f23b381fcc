package usecase

import (
	"context"
	"errors"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/validation"
)

type referralUsecase struct {
	regRepo      domain.RegistrationRepository
	referralRepo domain.ReferralRepository
}

func NewReferralUsecase(regRepo domain.RegistrationRepository, referralRepo domain.ReferralRepository) domain.ReferralUsecase {
	return &referralUsecase{regRepo: regRepo, referralRepo: referralRepo}
}

// ResolveReferrer looks the candidate up as a registered email. Unknown or
// malformed candidates are simply absent.
func (u *referralUsecase) ResolveReferrer(ctx context.Context, candidate string) (string, bool, error) {
	email := domain.NormalizeEmail(candidate)
	if email == "" || !validation.IsEmail(email) {
		return "", false, nil
	}

	reg, err := u.regRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperror.StoreFailure("Failed to look up referrer", err)
	}
	return reg.Email, true, nil
}

// CreateEdge records referrer -> referred. The first referrer of an email
// wins; repeats of the same pair are a no-op.
func (u *referralUsecase) CreateEdge(ctx context.Context, referrer, referred string) (domain.ReferralOutcome, error) {
	referrer = domain.NormalizeEmail(referrer)
	referred = domain.NormalizeEmail(referred)

	if referrer == "" {
		return domain.ReferralSkippedNoReferrer, nil
	}
	if referrer == referred {
		return domain.ReferralSkippedSelf, nil
	}

	existing, err := u.referralRepo.GetByReferred(ctx, referred)
	switch {
	case err == nil:
		return outcomeForExisting(existing, referrer), nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.ReferralFailed, apperror.StoreFailure("Failed to look up referral", err)
	}

	edge := &domain.ReferralEdge{
		ReferrerEmail: referrer,
		ReferredEmail: referred,
		Status:        domain.ReferralStatusCompleted,
	}
	err = u.referralRepo.Create(ctx, edge)
	if err == nil {
		return domain.ReferralCreated, nil
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		return domain.ReferralFailed, apperror.StoreFailure("Failed to create referral", err)
	}

	// Lost a race with a concurrent insert; report what is stored now.
	existing, err = u.referralRepo.GetByReferred(ctx, referred)
	if err != nil {
		return domain.ReferralAlreadyExists, nil
	}
	return outcomeForExisting(existing, referrer), nil
}

func outcomeForExisting(edge *domain.ReferralEdge, referrer string) domain.ReferralOutcome {
	if edge.ReferrerEmail == referrer {
		return domain.ReferralAlreadyExists
	}
	return domain.ReferralSkippedAlreadyReferred
}

func (u *referralUsecase) Stats(ctx context.Context, email string) (*domain.ReferralStats, error) {
	email = domain.NormalizeEmail(email)
	if !validation.IsEmail(email) {
		return nil, apperror.Validation("A valid email is required", nil)
	}

	stats, err := u.referralRepo.CountByReferrer(ctx, email)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load referral stats", err)
	}
	return stats, nil
}
