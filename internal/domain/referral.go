package domain

import (
	"context"
	"time"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)

// ReferralEdge records that Referrer brought Referred into the beta.
type ReferralEdge struct {
	ID            int64          `json:"id"`
	ReferrerEmail string         `json:"referrer_email"`
	ReferredEmail string         `json:"referred_email"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ReferralOutcome string

const (
	ReferralCreated                ReferralOutcome = "created"
	ReferralAlreadyExists          ReferralOutcome = "already_exists"
	ReferralSkippedNoReferrer      ReferralOutcome = "skipped_no_referrer"
	ReferralSkippedSelf            ReferralOutcome = "skipped_self_referral"
	ReferralSkippedAlreadyReferred ReferralOutcome = "skipped_already_referred"
	// ReferralFailed is reported to the caller but never fails a registration.
	ReferralFailed ReferralOutcome = "failed"
	// ReferralNotAttempted is used for returning registrants.
	ReferralNotAttempted ReferralOutcome = "not_attempted"
)

type ReferralStats struct {
	Email     string `json:"email"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
}

// ReferralRow is one completed edge joined with the referrer's registration.
type ReferralRow struct {
	ReferrerEmail string
	ReferrerName  *string
	CreatedAt     time.Time
}

// ============================================================================
// Repository Interface
// ============================================================================

type ReferralRepository interface {
	// GetByReferred returns the edge that attributed referred, or ErrNotFound.
	GetByReferred(ctx context.Context, referred string) (*ReferralEdge, error)
	// Create returns ErrDuplicate on any unique violation.
	Create(ctx context.Context, edge *ReferralEdge) error
	CountByReferrer(ctx context.Context, referrer string) (*ReferralStats, error)
	ListCompletedWithReferrer(ctx context.Context) ([]ReferralRow, error)
}

// ============================================================================
// Usecase Interface
// ============================================================================

type ReferralUsecase interface {
	// ResolveReferrer returns the registered email matching candidate, or
	// ok=false. Absence is never an error.
	ResolveReferrer(ctx context.Context, candidate string) (email string, ok bool, err error)
	// CreateEdge is idempotent per pair and per referred email.
	CreateEdge(ctx context.Context, referrer, referred string) (ReferralOutcome, error)
	Stats(ctx context.Context, email string) (*ReferralStats, error)
}
