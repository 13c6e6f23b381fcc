package usecase_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/internal/usecase"
	"ura-backend/pkg/apperror"
	"ura-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAvatarMax = 5 * 1024 * 1024

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestChangeUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("Should enforce the cooldown", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		changed := time.Now().Add(-24 * time.Hour)
		p := notStarted("u1")
		p.Username = strPtr("ada_l")
		p.UsernameChangedAt = &changed
		repo.On("GetByID", mock.Anything, "u1").Return(p, nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "ada_lovelace"})
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Contains(t, err.Error(), "You can change your username again on")
		repo.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should allow a change after the cooldown", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		changed := time.Now().Add(-domain.UsernameChangeCooldown - time.Hour)
		p := notStarted("u1")
		p.Username = strPtr("ada_l")
		p.UsernameChangedAt = &changed
		repo.On("GetByID", mock.Anything, "u1").Return(p, nil)
		repo.On("UsernameTaken", mock.Anything, "ada_lovelace", "u1").Return(false, nil)
		repo.On("UpdateUsername", mock.Anything, "u1", "ada_lovelace", mock.AnythingOfType("time.Time")).Return(nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "ada_lovelace"})
		require.NoError(t, err)
		repo.AssertCalled(t, "UpdateUsername", mock.Anything, "u1", "ada_lovelace", mock.Anything)
	})

	t.Run("Should allow the first change right away", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		p := notStarted("u1")
		p.Username = strPtr("ada_l")
		repo.On("GetByID", mock.Anything, "u1").Return(p, nil)
		repo.On("UsernameTaken", mock.Anything, "ada_lovelace", "u1").Return(false, nil)
		repo.On("UpdateUsername", mock.Anything, "u1", "ada_lovelace", mock.Anything).Return(nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "ada_lovelace"})
		require.NoError(t, err)
	})

	t.Run("Should reject a taken username", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		repo.On("GetByID", mock.Anything, "u1").Return(notStarted("u1"), nil)
		repo.On("UsernameTaken", mock.Anything, "grace", "u1").Return(true, nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "grace"})
		assert.Equal(t, apperror.KindDuplicate, apperror.KindOf(err))
	})

	t.Run("Should map a unique violation on write to conflict", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		repo.On("GetByID", mock.Anything, "u1").Return(notStarted("u1"), nil)
		repo.On("UsernameTaken", mock.Anything, "grace", "u1").Return(false, nil)
		repo.On("UpdateUsername", mock.Anything, "u1", "grace", mock.Anything).Return(domain.ErrDuplicate)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "grace"})
		assert.Equal(t, apperror.KindDuplicate, apperror.KindOf(err))
	})

	t.Run("Should store the trimmed username", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		repo.On("GetByID", mock.Anything, "u1").Return(notStarted("u1"), nil)
		repo.On("UsernameTaken", mock.Anything, "grace", "u1").Return(false, nil)
		repo.On("UpdateUsername", mock.Anything, "u1", "grace", mock.Anything).Return(nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "  grace "})
		require.NoError(t, err)
		repo.AssertCalled(t, "UpdateUsername", mock.Anything, "u1", "grace", mock.Anything)
	})

	t.Run("Should reject a blank username before touching the store", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "   "})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject profanity", func(t *testing.T) {
		repo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

		repo.On("GetByID", mock.Anything, "u1").Return(notStarted("u1"), nil)

		_, err := uc.ChangeUsername(ctx, "u1", &domain.ChangeUsernameRequest{Username: "sh1tlord"})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})
}

func TestCheckUsername(t *testing.T) {
	repo := new(MockProfileRepo)
	uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)
	ctx := context.Background()

	repo.On("UsernameTaken", mock.Anything, "grace", "u1").Return(true, nil)
	repo.On("UsernameTaken", mock.Anything, "ada_l", "u1").Return(false, nil)

	tests := []struct {
		name      string
		username  string
		available bool
		reason    string
	}{
		{"too short", "ab", false, "Username must be at least 3 characters"},
		{"bad charset", "ada l", false, "Username may only contain letters, numbers, - and _"},
		{"taken", "grace", false, "Username is already taken"},
		{"available", "ada_l", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := uc.CheckUsername(ctx, "u1", tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.available, check.Available)
			assert.Equal(t, tt.reason, check.Reason)
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	repo := new(MockProfileRepo)
	uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

	p := notStarted("u1")
	p.FirstName = strPtr("Ada")
	p.LastName = strPtr("Lovelace")
	repo.On("GetByID", mock.Anything, "u1").Return(p, nil)
	repo.On("UpdateSettings", mock.Anything, "u1", mock.AnythingOfType("domain.ProfileColumns"), mock.AnythingOfType("domain.OnboardingData")).
		Return(p, nil).
		Run(func(args mock.Arguments) {
			cols := args.Get(2).(domain.ProfileColumns)
			data := args.Get(3).(domain.OnboardingData)
			require.NotNil(t, cols.FullName)
			assert.Equal(t, "Augusta Lovelace", *cols.FullName)
			assert.Nil(t, cols.Username)
			assert.Equal(t, "Augusta", *data.FirstName)
			assert.Nil(t, data.LastName)
		})

	_, err := uc.UpdateSettings(context.Background(), "u1", &domain.UpdateSettingsRequest{FirstName: strPtr("Augusta")})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateSettingsRejectsEmojiNames(t *testing.T) {
	repo := new(MockProfileRepo)
	uc := usecase.NewProfileUsecase(repo, nil, validation.New(), testAvatarMax)

	_, err := uc.UpdateSettings(context.Background(), "u1", &domain.UpdateSettingsRequest{FirstName: strPtr("Ada \U0001F680")})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	repo.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()

	t.Run("Should upload, point the profile at it and drop the old object", func(t *testing.T) {
		repo := new(MockProfileRepo)
		objects := new(MockObjectStorage)
		uc := usecase.NewProfileUsecase(repo, objects, validation.New(), testAvatarMax)

		p := notStarted("u1")
		p.AvatarPath = strPtr("u1/old.jpg")
		repo.On("GetByID", mock.Anything, "u1").Return(p, nil)

		var uploaded string
		objects.On("Upload", mock.Anything, mock.AnythingOfType("string"), "image/jpeg", mock.Anything, mock.AnythingOfType("int64")).
			Return(nil).
			Run(func(args mock.Arguments) { uploaded = args.String(1) })
		objects.On("PublicURL", mock.Anything).Return("https://cdn.example.com/avatars/new.jpg")
		repo.On("UpdateAvatar", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
		objects.On("Remove", mock.Anything, []string{"u1/old.jpg"}).Return(nil)

		data := pngBytes(t, 1024, 256)
		_, err := uc.UploadAvatar(ctx, "u1", bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)

		assert.Regexp(t, `^u1/[0-9a-f-]{36}\.jpg$`, uploaded)
		objects.AssertCalled(t, "Remove", mock.Anything, []string{"u1/old.jpg"})
	})

	t.Run("Should reject oversized uploads", func(t *testing.T) {
		objects := new(MockObjectStorage)
		uc := usecase.NewProfileUsecase(new(MockProfileRepo), objects, validation.New(), 1024)

		data := pngBytes(t, 256, 256)
		_, err := uc.UploadAvatar(ctx, "u1", bytes.NewReader(data), 4096)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject non images", func(t *testing.T) {
		objects := new(MockObjectStorage)
		uc := usecase.NewProfileUsecase(new(MockProfileRepo), objects, validation.New(), testAvatarMax)

		body := []byte("%PDF-1.4 not an image")
		_, err := uc.UploadAvatar(ctx, "u1", bytes.NewReader(body), int64(len(body)))
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("Should report storage as unavailable when not configured", func(t *testing.T) {
		uc := usecase.NewProfileUsecase(new(MockProfileRepo), nil, validation.New(), testAvatarMax)

		_, err := uc.UploadAvatar(ctx, "u1", bytes.NewReader(nil), 0)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 503, appErr.Code)
	})
}

func TestRemoveAvatar(t *testing.T) {
	repo := new(MockProfileRepo)
	objects := new(MockObjectStorage)
	uc := usecase.NewProfileUsecase(repo, objects, validation.New(), testAvatarMax)

	p := notStarted("u1")
	p.AvatarURL = strPtr("https://cdn.example.com/avatars/u1/a.jpg")
	p.AvatarPath = strPtr("u1/a.jpg")
	repo.On("GetByID", mock.Anything, "u1").Return(p, nil)
	repo.On("UpdateAvatar", mock.Anything, "u1", (*string)(nil), (*string)(nil)).Return(nil)
	objects.On("Remove", mock.Anything, []string{"u1/a.jpg"}).Return(nil)

	_, err := uc.RemoveAvatar(context.Background(), "u1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
	objects.AssertExpectations(t)
}
