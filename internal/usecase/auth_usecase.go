package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/logger"
	"ura-backend/pkg/supabase"
	"ura-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const (
	// CallbackPath is where the identity service sends the browser back.
	CallbackPath = "/auth/callback"

	DashboardPath  = "/dashboard"
	OnboardingPath = "/onboarding"
)

// OAuthProviders are the identity providers the sign-in page offers.
var OAuthProviders = map[string]bool{"google": true}

type authUsecase struct {
	provider     domain.AuthProvider
	onboardingUC domain.OnboardingUsecase
	validate     *validator.Validate
	siteURL      string
}

func NewAuthUsecase(provider domain.AuthProvider, onboardingUC domain.OnboardingUsecase, validate *validator.Validate, siteURL string) domain.AuthUsecase {
	return &authUsecase{
		provider:     provider,
		onboardingUC: onboardingUC,
		validate:     validate,
		siteURL:      strings.TrimRight(siteURL, "/"),
	}
}

func (u *authUsecase) callbackURL() string {
	return u.siteURL + CallbackPath
}

// SignUp returns a nil session while the address awaits confirmation.
func (u *authUsecase) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.Session, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	email := domain.NormalizeEmail(req.Email)
	user, session, err := u.provider.SignUp(ctx, email, req.Password, u.callbackURL())
	if err != nil {
		return nil, authError("Sign up failed", err)
	}

	if session != nil {
		if _, err := u.onboardingUC.EnsureProfile(ctx, user.ID, user.Email); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (u *authUsecase) SignIn(ctx context.Context, req *domain.LoginRequest) (*domain.Session, *domain.Profile, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, nil, apperror.Validation("Please check the highlighted fields", validation.FormatValidationErrors(err))
	}

	session, err := u.provider.SignInWithPassword(ctx, domain.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			return nil, nil, apperror.AuthFailure(http.StatusUnauthorized, "Invalid email or password", err)
		}
		return nil, nil, authError("Sign in failed", err)
	}

	profile, err := u.onboardingUC.EnsureProfile(ctx, session.User.ID, session.User.Email)
	if err != nil {
		return nil, nil, err
	}
	return session, profile, nil
}

func (u *authUsecase) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	// A session that fails to revoke still expires on its own.
	if err := u.provider.SignOut(ctx, accessToken); err != nil {
		logger.Log.Warn("Failed to revoke session", "error", err)
	}
}

func (u *authUsecase) BeginOAuth(provider string) (*domain.OAuthStart, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !OAuthProviders[provider] {
		return nil, apperror.BadRequest("Unsupported sign-in provider")
	}

	verifier, err := supabase.NewCodeVerifier()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &domain.OAuthStart{
		URL:          u.provider.AuthorizeURL(provider, u.callbackURL(), supabase.CodeChallenge(verifier)),
		CodeVerifier: verifier,
	}, nil
}

func (u *authUsecase) HandleCallback(ctx context.Context, code, codeVerifier string) (*domain.Session, string, error) {
	if code == "" {
		return nil, "", apperror.BadRequest("No code provided")
	}

	session, err := u.provider.ExchangeCodeForSession(ctx, code, codeVerifier)
	if err != nil {
		return nil, "", authError("Failed to exchange code for session", err)
	}

	profile, err := u.onboardingUC.EnsureProfile(ctx, session.User.ID, session.User.Email)
	if err != nil {
		return nil, "", err
	}

	if profile.HasCompletedSetup {
		return session, DashboardPath, nil
	}
	return session, OnboardingPath, nil
}

func (u *authUsecase) Me(ctx context.Context, userID, email string) (*domain.Profile, error) {
	return u.onboardingUC.EnsureProfile(ctx, userID, email)
}

// authError maps provider rejections to 400 and transport failures to 502.
func authError(message string, err error) error {
	if errors.Is(err, domain.ErrAuthRejected) {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			message = apiErr.Message
		}
		return apperror.AuthFailure(http.StatusBadRequest, message, err)
	}
	return apperror.AuthFailure(http.StatusBadGateway, "Authentication service is unavailable", err)
}
