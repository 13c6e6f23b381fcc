package domain

import (
	"context"
	"time"
)

// OnboardingMaxStep is the last step of the wizard.
const OnboardingMaxStep = 5

// OnboardingStatus is the coarse wizard progress of a profile.
type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "not_started"
	OnboardingInProgress OnboardingStatus = "in_progress"
	OnboardingCompleted  OnboardingStatus = "completed"
)

// IsValid checks if the status is one of the known values
func (s OnboardingStatus) IsValid() bool {
	switch s {
	case OnboardingNotStarted, OnboardingInProgress, OnboardingCompleted:
		return true
	}
	return false
}

// ============================================================================
// Onboarding Payload
// ============================================================================

// OnboardingData is the accumulated wizard payload. Every field is optional;
// a nil field in a step submission leaves the stored value untouched.
type OnboardingData struct {
	// Step 1: Personal details
	FirstName   *string `json:"firstName,omitempty" validate:"omitempty,trimmed_min=1,max=80,no_emoji"`
	LastName    *string `json:"lastName,omitempty" validate:"omitempty,trimmed_min=1,max=80,no_emoji"`
	Username    *string `json:"username,omitempty" validate:"omitempty,username"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	CountryCode *string `json:"countryCode,omitempty" validate:"omitempty,max=8"`
	Country     *string `json:"country,omitempty" validate:"omitempty,max=80"`
	PostalCode  *string `json:"postalCode,omitempty" validate:"omitempty,max=16"`

	// Step 2: Discovery
	Source         *string           `json:"source,omitempty" validate:"omitempty,max=80"`
	SourceDetail   *string           `json:"sourceDetail,omitempty" validate:"omitempty,max=200"`
	YoutubeChannel *string           `json:"youtubeChannel,omitempty" validate:"omitempty,max=200"`
	SocialProfiles map[string]string `json:"socialProfiles,omitempty" validate:"omitempty,max=10,dive,keys,max=40,endkeys,max=200"`

	// Step 3: Research
	Interests         []string `json:"interests,omitempty" validate:"omitempty,max=20,dive,max=80"`
	ResearchInterests []string `json:"researchInterests,omitempty" validate:"omitempty,max=20,dive,max=80"`
	ResearchGoals     *string  `json:"researchGoals,omitempty" validate:"omitempty,max=1000"`
	OneThingToFind    *string  `json:"oneThingToFind,omitempty" validate:"omitempty,max=500"`
	PreferredTools    []string `json:"preferredTools,omitempty" validate:"omitempty,max=20,dive,max=80"`
	Goals             []string `json:"goals,omitempty" validate:"omitempty,max=20,dive,max=200"`

	// Step 4: Preferences
	NotificationPreference *string `json:"notificationPreference,omitempty" validate:"omitempty,max=40"`
	Language               *string `json:"language,omitempty" validate:"omitempty,max=40"`

	// Step 5: Feedback
	FeatureSuggestions *string `json:"featureSuggestions,omitempty" validate:"omitempty,max=2000"`
	Challenges         *string `json:"challenges,omitempty" validate:"omitempty,max=2000"`
}

// Merge returns d overlaid with every non-nil field of patch.
func (d OnboardingData) Merge(patch OnboardingData) OnboardingData {
	out := d
	mergeString(&out.FirstName, patch.FirstName)
	mergeString(&out.LastName, patch.LastName)
	mergeString(&out.Username, patch.Username)
	mergeString(&out.DateOfBirth, patch.DateOfBirth)
	mergeString(&out.PhoneNumber, patch.PhoneNumber)
	mergeString(&out.CountryCode, patch.CountryCode)
	mergeString(&out.Country, patch.Country)
	mergeString(&out.PostalCode, patch.PostalCode)
	mergeString(&out.Source, patch.Source)
	mergeString(&out.SourceDetail, patch.SourceDetail)
	mergeString(&out.YoutubeChannel, patch.YoutubeChannel)
	mergeString(&out.ResearchGoals, patch.ResearchGoals)
	mergeString(&out.OneThingToFind, patch.OneThingToFind)
	mergeString(&out.NotificationPreference, patch.NotificationPreference)
	mergeString(&out.Language, patch.Language)
	mergeString(&out.FeatureSuggestions, patch.FeatureSuggestions)
	mergeString(&out.Challenges, patch.Challenges)
	if patch.SocialProfiles != nil {
		out.SocialProfiles = patch.SocialProfiles
	}
	if patch.Interests != nil {
		out.Interests = patch.Interests
	}
	if patch.ResearchInterests != nil {
		out.ResearchInterests = patch.ResearchInterests
	}
	if patch.PreferredTools != nil {
		out.PreferredTools = patch.PreferredTools
	}
	if patch.Goals != nil {
		out.Goals = patch.Goals
	}
	return out
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = src
	}
}

// OnboardingState is the wizard view of a profile.
type OnboardingState struct {
	UserID              string           `json:"user_id"`
	Step                int              `json:"step"`
	Status              OnboardingStatus `json:"status"`
	OnboardingCompleted bool             `json:"onboarding_completed"`
	HasCompletedSetup   bool             `json:"has_completed_setup"`
	Data                OnboardingData   `json:"data"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// CompletionEvent is published exactly once per profile, when onboarding
// transitions to completed.
type CompletionEvent struct {
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionBus fans completion events out to in-process subscribers.
type CompletionBus interface {
	Subscribe(fn func(CompletionEvent)) (unsubscribe func())
	Emit(evt CompletionEvent)
}

// ============================================================================
// Usecase Interface
// ============================================================================

type OnboardingUsecase interface {
	// EnsureProfile returns the profile, creating a not-started one when
	// absent. Safe under concurrent first calls.
	EnsureProfile(ctx context.Context, userID, email string) (*Profile, error)

	// GetStatus provisions a not-started profile on first access.
	GetStatus(ctx context.Context, userID, email string) (*OnboardingState, error)

	// CompleteStep merges data and advances the step; refused once completed.
	CompleteStep(ctx context.Context, userID string, step int, data OnboardingData) (*OnboardingState, error)

	// Complete marks onboarding done and emits a CompletionEvent once.
	Complete(ctx context.Context, userID string, data OnboardingData) (*OnboardingState, error)

	IsSetupComplete(ctx context.Context, userID string) (bool, error)
}
