package domain

import (
	"context"
	"io"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UsernameChangeCooldown is the minimum interval between username changes.
const UsernameChangeCooldown = 90 * 24 * time.Hour

// Profile is the account record keyed by the auth user ID.
type Profile struct {
	ID                  string           `json:"id"` // Supabase UUID
	Email               string           `json:"email"`
	Role                string           `json:"role"`
	Username            *string          `json:"username,omitempty"`
	FullName            *string          `json:"full_name,omitempty"`
	FirstName           *string          `json:"first_name,omitempty"`
	LastName            *string          `json:"last_name,omitempty"`
	PhoneNumber         *string          `json:"phone_number,omitempty"`
	CountryCode         *string          `json:"country_code,omitempty"`
	PostalCode          *string          `json:"postal_code,omitempty"`
	AvatarURL           *string          `json:"avatar_url,omitempty"`
	AvatarPath          *string          `json:"-"`
	ResearchInterests   []string         `json:"research_interests"`
	PreferredTools      []string         `json:"preferred_tools"`
	OnboardingStep      int              `json:"onboarding_step"`
	OnboardingStatus    OnboardingStatus `json:"onboarding_status"`
	OnboardingCompleted bool             `json:"onboarding_completed"`
	HasCompletedSetup   bool             `json:"has_completed_setup"`
	OnboardingData      OnboardingData   `json:"onboarding_data"`
	UsernameChangedAt   *time.Time       `json:"username_changed_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// OnboardingState projects the wizard fields of the profile.
func (p *Profile) OnboardingState() *OnboardingState {
	return &OnboardingState{
		UserID:              p.ID,
		Step:                p.OnboardingStep,
		Status:              p.OnboardingStatus,
		OnboardingCompleted: p.OnboardingCompleted,
		HasCompletedSetup:   p.HasCompletedSetup,
		Data:                p.OnboardingData,
		UpdatedAt:           p.UpdatedAt,
	}
}

// ProfileColumns are the payload fields copied onto profile columns when
// onboarding completes or settings are saved. Nil leaves the column as is.
type ProfileColumns struct {
	Username          *string
	FullName          *string
	FirstName         *string
	LastName          *string
	PhoneNumber       *string
	CountryCode       *string
	PostalCode        *string
	ResearchInterests []string
	PreferredTools    []string
}

// UpdateSettingsRequest is the account settings form.
type UpdateSettingsRequest struct {
	FirstName         *string  `json:"firstName" validate:"omitempty,trimmed_min=1,max=80,no_emoji"`
	LastName          *string  `json:"lastName" validate:"omitempty,trimmed_min=1,max=80,no_emoji"`
	PhoneNumber       *string  `json:"phoneNumber" validate:"omitempty,max=32"`
	CountryCode       *string  `json:"countryCode" validate:"omitempty,max=8"`
	PostalCode        *string  `json:"postalCode" validate:"omitempty,max=16"`
	ResearchInterests []string `json:"researchInterests" validate:"omitempty,max=20,dive,max=80"`
	ResearchGoals     *string  `json:"researchGoals" validate:"omitempty,max=1000"`
	OneThingToFind    *string  `json:"oneThingToFind" validate:"omitempty,max=500"`
	PreferredTools    []string `json:"preferredTools" validate:"omitempty,max=20,dive,max=80"`
}

type ChangeUsernameRequest struct {
	Username string `json:"username" validate:"required,username"`
}

// UsernameCheck is the availability answer shown next to the username field.
type UsernameCheck struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ============================================================================
// Repository Interface
// ============================================================================

type ProfileRepository interface {
	// GetByID returns ErrNotFound when the profile does not exist.
	GetByID(ctx context.Context, id string) (*Profile, error)
	// CreateIfAbsent inserts a not-started profile; created is false when a
	// row already existed.
	CreateIfAbsent(ctx context.Context, id, email string) (created bool, err error)
	// AdvanceStep merges data into the stored payload and raises the step to
	// nextStep unless it is already higher. Returns ErrNotFound when the
	// profile is missing or already completed.
	AdvanceStep(ctx context.Context, id string, nextStep int, data OnboardingData) (*Profile, error)
	// MarkCompleted finalizes onboarding in one statement. transitioned is
	// false when the profile was already completed. Returns ErrDuplicate
	// when the projected username is taken.
	MarkCompleted(ctx context.Context, id string, data OnboardingData, cols ProfileColumns, at time.Time) (p *Profile, transitioned bool, err error)
	// UpdateSettings writes cols and merges data into the payload.
	UpdateSettings(ctx context.Context, id string, cols ProfileColumns, data OnboardingData) (*Profile, error)
	// UsernameTaken compares case-insensitively, ignoring excludeID.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	// UpdateUsername returns ErrDuplicate when another profile holds it.
	UpdateUsername(ctx context.Context, id, username string, at time.Time) error
	UpdateAvatar(ctx context.Context, id string, url, path *string) error
}

// ============================================================================
// Usecase Interface
// ============================================================================

type ProfileUsecase interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateSettings(ctx context.Context, userID string, req *UpdateSettingsRequest) (*Profile, error)
	CheckUsername(ctx context.Context, userID, username string) (*UsernameCheck, error)
	ChangeUsername(ctx context.Context, userID string, req *ChangeUsernameRequest) (*Profile, error)
	UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64) (*Profile, error)
	RemoveAvatar(ctx context.Context, userID string) (*Profile, error)
}
