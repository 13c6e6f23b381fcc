package usecase_test

import (
	"context"
	"io"
	"time"
	"ura-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockRegistrationRepo struct {
	mock.Mock
}

func (m *MockRegistrationRepo) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

func (m *MockRegistrationRepo) List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Registration), args.Get(1).(int64), args.Error(2)
}

func (m *MockRegistrationRepo) ListAll(ctx context.Context, status domain.RegistrationStatus) ([]domain.Registration, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Registration), args.Error(1)
}

func (m *MockRegistrationRepo) UpdateStatus(ctx context.Context, email string, from, to domain.RegistrationStatus) error {
	return m.Called(ctx, email, from, to).Error(0)
}

type MockReferralRepo struct {
	mock.Mock
}

func (m *MockReferralRepo) GetByReferred(ctx context.Context, referred string) (*domain.ReferralEdge, error) {
	args := m.Called(ctx, referred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferralEdge), args.Error(1)
}

func (m *MockReferralRepo) Create(ctx context.Context, edge *domain.ReferralEdge) error {
	return m.Called(ctx, edge).Error(0)
}

func (m *MockReferralRepo) CountByReferrer(ctx context.Context, referrer string) (*domain.ReferralStats, error) {
	args := m.Called(ctx, referrer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReferralStats), args.Error(1)
}

func (m *MockReferralRepo) ListCompletedWithReferrer(ctx context.Context) ([]domain.ReferralRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReferralRow), args.Error(1)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) CreateIfAbsent(ctx context.Context, id, email string) (bool, error) {
	args := m.Called(ctx, id, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepo) AdvanceStep(ctx context.Context, id string, nextStep int, data domain.OnboardingData) (*domain.Profile, error) {
	args := m.Called(ctx, id, nextStep, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) MarkCompleted(ctx context.Context, id string, data domain.OnboardingData, cols domain.ProfileColumns, at time.Time) (*domain.Profile, bool, error) {
	args := m.Called(ctx, id, data, cols, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Profile), args.Bool(1), args.Error(2)
}

func (m *MockProfileRepo) UpdateSettings(ctx context.Context, id string, cols domain.ProfileColumns, data domain.OnboardingData) (*domain.Profile, error) {
	args := m.Called(ctx, id, cols, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepo) UpdateUsername(ctx context.Context, id, username string, at time.Time) error {
	return m.Called(ctx, id, username, at).Error(0)
}

func (m *MockProfileRepo) UpdateAvatar(ctx context.Context, id string, url, path *string) error {
	return m.Called(ctx, id, url, path).Error(0)
}

// Mock collaborators
type MockAuthProvider struct {
	mock.Mock
}

func (m *MockAuthProvider) SignUp(ctx context.Context, email, password, redirectTo string) (*domain.AuthUser, *domain.Session, error) {
	args := m.Called(ctx, email, password, redirectTo)
	var user *domain.AuthUser
	var session *domain.Session
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.AuthUser)
	}
	if args.Get(1) != nil {
		session = args.Get(1).(*domain.Session)
	}
	return user, session, args.Error(2)
}

func (m *MockAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *MockAuthProvider) GetUser(ctx context.Context, accessToken string) (*domain.AuthUser, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthUser), args.Error(1)
}

func (m *MockAuthProvider) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	return m.Called(provider, redirectTo, codeChallenge).String(0)
}

func (m *MockAuthProvider) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*domain.Session, error) {
	args := m.Called(ctx, code, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type MockOnboardingUsecase struct {
	mock.Mock
}

func (m *MockOnboardingUsecase) EnsureProfile(ctx context.Context, userID, email string) (*domain.Profile, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockOnboardingUsecase) GetStatus(ctx context.Context, userID, email string) (*domain.OnboardingState, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingState), args.Error(1)
}

func (m *MockOnboardingUsecase) CompleteStep(ctx context.Context, userID string, step int, data domain.OnboardingData) (*domain.OnboardingState, error) {
	args := m.Called(ctx, userID, step, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingState), args.Error(1)
}

func (m *MockOnboardingUsecase) Complete(ctx context.Context, userID string, data domain.OnboardingData) (*domain.OnboardingState, error) {
	args := m.Called(ctx, userID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingState), args.Error(1)
}

func (m *MockOnboardingUsecase) IsSetupComplete(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) error {
	return m.Called(ctx, path, contentType, body, size).Error(0)
}

func (m *MockObjectStorage) Remove(ctx context.Context, paths ...string) error {
	return m.Called(ctx, paths).Error(0)
}

func (m *MockObjectStorage) PublicURL(path string) string {
	return m.Called(path).String(0)
}

func strPtr(s string) *string {
	return &s
}

type MockAPIKeyRepo struct {
	mock.Mock
}

func (m *MockAPIKeyRepo) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepo) Upsert(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepo) Delete(ctx context.Context, userID, provider string) error {
	return m.Called(ctx, userID, provider).Error(0)
}
