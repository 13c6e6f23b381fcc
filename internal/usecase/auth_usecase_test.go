package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"ura-backend/internal/domain"
	"ura-backend/internal/usecase"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/supabase"
	"ura-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSession(id string) *domain.Session {
	return &domain.Session{
		AccessToken: "access-" + id,
		ExpiresIn:   3600,
		User:        domain.AuthUser{ID: id, Email: "ada@example.com"},
	}
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("Should send a finished account to the dashboard", func(t *testing.T) {
		provider := new(MockAuthProvider)
		onboarding := new(MockOnboardingUsecase)
		uc := usecase.NewAuthUsecase(provider, onboarding, validation.New(), "https://ura.example.com/")

		provider.On("ExchangeCodeForSession", mock.Anything, "code-1", "verifier-1").Return(testSession("u1"), nil)
		onboarding.On("EnsureProfile", mock.Anything, "u1", "ada@example.com").Return(&domain.Profile{ID: "u1", HasCompletedSetup: true}, nil)

		session, location, err := uc.HandleCallback(ctx, "code-1", "verifier-1")
		require.NoError(t, err)
		assert.Equal(t, "access-u1", session.AccessToken)
		assert.Equal(t, usecase.DashboardPath, location)
	})

	t.Run("Should send a new account to onboarding", func(t *testing.T) {
		provider := new(MockAuthProvider)
		onboarding := new(MockOnboardingUsecase)
		uc := usecase.NewAuthUsecase(provider, onboarding, validation.New(), "https://ura.example.com")

		provider.On("ExchangeCodeForSession", mock.Anything, "code-1", "").Return(testSession("u1"), nil)
		onboarding.On("EnsureProfile", mock.Anything, "u1", "ada@example.com").Return(&domain.Profile{ID: "u1"}, nil)

		_, location, err := uc.HandleCallback(ctx, "code-1", "")
		require.NoError(t, err)
		assert.Equal(t, usecase.OnboardingPath, location)
	})

	t.Run("Should reject a missing code", func(t *testing.T) {
		provider := new(MockAuthProvider)
		uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

		_, _, err := uc.HandleCallback(ctx, "", "")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		provider.AssertNotCalled(t, "ExchangeCodeForSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should report a rejected exchange as an auth failure", func(t *testing.T) {
		provider := new(MockAuthProvider)
		uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

		rejected := fmt.Errorf("exchange: %w", &supabase.APIError{Status: 400, Message: "invalid flow state"})
		provider.On("ExchangeCodeForSession", mock.Anything, "stale", "v").Return(nil, rejected)

		_, _, err := uc.HandleCallback(ctx, "stale", "v")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.KindAuthFailure, appErr.Kind)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, "invalid flow state", appErr.Message)
	})

	t.Run("Should report an unreachable provider as bad gateway", func(t *testing.T) {
		provider := new(MockAuthProvider)
		uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

		provider.On("ExchangeCodeForSession", mock.Anything, "c", "v").Return(nil, errors.New("dial tcp: timeout"))

		_, _, err := uc.HandleCallback(ctx, "c", "v")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadGateway, appErr.Code)
	})
}

func TestBeginOAuth(t *testing.T) {
	provider := new(MockAuthProvider)
	uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

	t.Run("Should refuse unknown providers", func(t *testing.T) {
		_, err := uc.BeginOAuth("myspace")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("Should build a PKCE authorize URL", func(t *testing.T) {
		provider.On("AuthorizeURL", "google", "https://ura.example.com/auth/callback", mock.AnythingOfType("string")).
			Return("https://project.supabase.co/auth/v1/authorize?provider=google")

		start, err := uc.BeginOAuth("Google")
		require.NoError(t, err)
		assert.NotEmpty(t, start.CodeVerifier)
		assert.Contains(t, start.URL, "provider=google")

		challenge := provider.Calls[0].Arguments.String(2)
		assert.Equal(t, supabase.CodeChallenge(start.CodeVerifier), challenge)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Should map bad credentials to 401", func(t *testing.T) {
		provider := new(MockAuthProvider)
		uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

		provider.On("SignInWithPassword", mock.Anything, "ada@example.com", "wrong").
			Return(nil, &supabase.APIError{Status: 400, Message: "Invalid login credentials"})

		_, _, err := uc.SignIn(ctx, &domain.LoginRequest{Email: "Ada@example.com", Password: "wrong"})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.Code)
		assert.Equal(t, apperror.KindAuthFailure, appErr.Kind)
	})

	t.Run("Should provision the profile on success", func(t *testing.T) {
		provider := new(MockAuthProvider)
		onboarding := new(MockOnboardingUsecase)
		uc := usecase.NewAuthUsecase(provider, onboarding, validation.New(), "https://ura.example.com")

		provider.On("SignInWithPassword", mock.Anything, "ada@example.com", "secret1").Return(testSession("u1"), nil)
		onboarding.On("EnsureProfile", mock.Anything, "u1", "ada@example.com").Return(&domain.Profile{ID: "u1"}, nil)

		session, profile, err := uc.SignIn(ctx, &domain.LoginRequest{Email: "ada@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "u1", session.User.ID)
		assert.Equal(t, "u1", profile.ID)
	})
}

func TestSignUp(t *testing.T) {
	provider := new(MockAuthProvider)
	onboarding := new(MockOnboardingUsecase)
	uc := usecase.NewAuthUsecase(provider, onboarding, validation.New(), "https://ura.example.com")

	provider.On("SignUp", mock.Anything, "ada@example.com", "secret1", "https://ura.example.com/auth/callback").
		Return(&domain.AuthUser{ID: "u1", Email: "ada@example.com"}, nil, nil)

	session, err := uc.SignUp(context.Background(), &domain.SignUpRequest{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Nil(t, session)
	onboarding.AssertNotCalled(t, "EnsureProfile", mock.Anything, mock.Anything, mock.Anything)

	_, err = uc.SignUp(context.Background(), &domain.SignUpRequest{Email: "ada@example.com", Password: "123"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestSignOut(t *testing.T) {
	provider := new(MockAuthProvider)
	uc := usecase.NewAuthUsecase(provider, new(MockOnboardingUsecase), validation.New(), "https://ura.example.com")

	provider.On("SignOut", mock.Anything, "tok").Return(errors.New("network"))

	assert.NotPanics(t, func() { uc.SignOut(context.Background(), "tok") })
	uc.SignOut(context.Background(), "")
	provider.AssertNumberOfCalls(t, "SignOut", 1)
}
