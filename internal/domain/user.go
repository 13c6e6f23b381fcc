package domain

import (
	"context"
	"errors"
)

// ErrAuthRejected is returned by an AuthProvider when the identity service
// answered with a client error (bad credentials, expired code, etc).
var ErrAuthRejected = errors.New("auth provider rejected the request")

// AuthUser is the identity as reported by the auth provider.
type AuthUser struct {
	ID    string `json:"id"` // Supabase UUID
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in"`
	User         AuthUser `json:"user"`
}

// Claims are the verified claims of an access token.
type Claims struct {
	UserID string
	Email  string
}

// ErrKeysUnavailable means the token could not be checked because the signing
// keys could not be fetched. It says nothing about the token itself.
var ErrKeysUnavailable = errors.New("signing keys unavailable")

// TokenVerifier validates access tokens issued by the auth provider.
// Verify returns an error wrapping ErrKeysUnavailable when it could not decide.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// AuthProvider is the hosted identity service.
type AuthProvider interface {
	// SignUp returns a nil session when email confirmation is pending.
	SignUp(ctx context.Context, email, password, redirectTo string) (*AuthUser, *Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*AuthUser, error)
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error)
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,loose_email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,loose_email"`
	Password string `json:"password" validate:"required"`
}

// OAuthStart carries what the browser needs to begin a PKCE flow.
type OAuthStart struct {
	URL          string
	CodeVerifier string
}

// ============================================================================
// Usecase Interface
// ============================================================================

type AuthUsecase interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*Session, error)
	SignIn(ctx context.Context, req *LoginRequest) (*Session, *Profile, error)
	// SignOut revokes the session upstream on a best-effort basis.
	SignOut(ctx context.Context, accessToken string)
	BeginOAuth(provider string) (*OAuthStart, error)
	// HandleCallback exchanges the code, provisions the profile and returns
	// the path the browser should land on.
	HandleCallback(ctx context.Context, code, codeVerifier string) (*Session, string, error)
	Me(ctx context.Context, userID, email string) (*Profile, error)
}
