package domain

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors returned by repositories. Usecases translate them into
// apperror values; anything else from a repository is a store failure.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// NormalizeEmail is the canonical form used as the registration key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ReferralPath is the shareable link that attributes sign-ups to email.
func ReferralPath(email string) string {
	return "/join/" + url.PathEscape(NormalizeEmail(email))
}

// ============================================================================
// Beta Registration
// ============================================================================

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
)

func (s RegistrationStatus) IsValid() bool {
	return s == RegistrationPending || s == RegistrationApproved
}

// DiscoveryChannel is the "How did you find us?" answer.
type DiscoveryChannel string

const (
	ChannelInstagram    DiscoveryChannel = "Instagram"
	ChannelFacebook     DiscoveryChannel = "Facebook"
	ChannelSearchEngine DiscoveryChannel = "Search Engine"
	ChannelYouTube      DiscoveryChannel = "YouTube"
	ChannelFriend       DiscoveryChannel = "Friend"
)

// ValidDiscoveryChannels returns all valid discovery channels
func ValidDiscoveryChannels() []DiscoveryChannel {
	return []DiscoveryChannel{ChannelInstagram, ChannelFacebook, ChannelSearchEngine, ChannelYouTube, ChannelFriend}
}

// IsValid checks if the channel is one of the fixed options
func (c DiscoveryChannel) IsValid() bool {
	for _, valid := range ValidDiscoveryChannels() {
		if c == valid {
			return true
		}
	}
	return false
}

type Registration struct {
	Email        string             `json:"email"`
	FullName     string             `json:"full_name"`
	Country      string             `json:"country"`
	HeardFrom    DiscoveryChannel   `json:"heard_from"`
	Organization string             `json:"organization"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
}

// SubmitRegistrationRequest is the beta form payload. Ref is the referrer
// identifier taken from the page URL; the handler falls back to the cached
// referral cookie when it is empty.
type SubmitRegistrationRequest struct {
	FullName     string `json:"full_name" validate:"required,trimmed_min=2,max=120"`
	Country      string `json:"country" validate:"required,trimmed_min=2,max=80"`
	HeardFrom    string `json:"heard_from" validate:"required,discovery_channel"`
	Organization string `json:"organization" validate:"required,organization"`
	Email        string `json:"email" validate:"required,loose_email,max=254"`
	Ref          string `json:"ref,omitempty"`
}

type RegistrationOutcome string

const (
	OutcomeRegistered  RegistrationOutcome = "registered"
	OutcomeWelcomeBack RegistrationOutcome = "welcome_back"
)

type SubmitResult struct {
	Outcome         RegistrationOutcome `json:"outcome"`
	Email           string              `json:"email"`
	ReferralOutcome ReferralOutcome     `json:"referral_outcome"`
	ReferralLink    string              `json:"referral_link"`
}

// RegistrationFilter drives the admin listing.
type RegistrationFilter struct {
	Status RegistrationStatus
	Page   int
	Limit  int
}

// PaginatedResult for list responses
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// ============================================================================
// Repository Interface
// ============================================================================

type RegistrationRepository interface {
	// GetByEmail expects a normalized email. Returns ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*Registration, error)
	// Create returns ErrDuplicate when the email is already registered.
	Create(ctx context.Context, reg *Registration) error
	List(ctx context.Context, filter RegistrationFilter) ([]Registration, int64, error)
	ListAll(ctx context.Context, status RegistrationStatus) ([]Registration, error)
	// UpdateStatus only moves a registration forward from `from` to `to`.
	// Returns ErrNotFound when no row matched.
	UpdateStatus(ctx context.Context, email string, from, to RegistrationStatus) error
}

// ============================================================================
// Usecase Interface
// ============================================================================

type RegistrationUsecase interface {
	// Submit validates, inserts if absent and attributes the referral.
	Submit(ctx context.Context, req *SubmitRegistrationRequest) (*SubmitResult, error)
}
