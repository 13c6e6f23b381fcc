package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/internal/usecase"
	"ura-backend/pkg/apperror"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRankReferrers(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	row := func(email, name string, offset time.Duration) domain.ReferralRow {
		r := domain.ReferralRow{ReferrerEmail: email, CreatedAt: base.Add(offset)}
		if name != "" {
			r.ReferrerName = &name
		}
		return r
	}

	rows := []domain.ReferralRow{
		row("carol@example.com", "Carol", 3*time.Hour),
		row("bob@example.com", "Bob", 2*time.Hour),
		row("ada@example.com", "Ada", time.Hour),
		row("bob@example.com", "Bob", 5*time.Hour),
		row("dan@example.com", "", 4*time.Hour),
		row("ada@example.com", "Ada", 6*time.Hour),
		row("carol@example.com", "Carol", 7*time.Hour),
		row("carol@example.com", "Carol", 8*time.Hour),
	}

	t.Run("Should order by count then earliest first referral", func(t *testing.T) {
		want := []domain.LeaderboardEntry{
			{Rank: 1, FullName: "Carol", Email: "carol@example.com", ReferralCount: 3},
			{Rank: 2, FullName: "Ada", Email: "ada@example.com", ReferralCount: 2},
			{Rank: 3, FullName: "Bob", Email: "bob@example.com", ReferralCount: 2},
			{Rank: 4, FullName: "Unknown", Email: "dan@example.com", ReferralCount: 1},
		}
		if diff := cmp.Diff(want, usecase.RankReferrers(rows, 0)); diff != "" {
			t.Errorf("RankReferrers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Should break exact ties by email", func(t *testing.T) {
		tied := []domain.ReferralRow{
			row("zed@example.com", "Zed", 0),
			row("amy@example.com", "Amy", 0),
		}
		got := usecase.RankReferrers(tied, 0)
		require.Len(t, got, 2)
		assert.Equal(t, "amy@example.com", got[0].Email)
		assert.Equal(t, 2, got[1].Rank)
	})

	t.Run("Should truncate to the limit", func(t *testing.T) {
		got := usecase.RankReferrers(rows, 2)
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[1].Rank)
	})

	t.Run("Should return an empty board for no edges", func(t *testing.T) {
		got := usecase.RankReferrers(nil, 10)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestLeaderboardCompute(t *testing.T) {
	refRepo := new(MockReferralRepo)
	uc := usecase.NewLeaderboardUsecase(refRepo, 0)

	refRepo.On("ListCompletedWithReferrer", mock.Anything).Return(nil, errors.New("db down")).Once()
	_, err := uc.Compute(context.Background())
	assert.Equal(t, apperror.KindStoreFailure, apperror.KindOf(err))

	refRepo.On("ListCompletedWithReferrer", mock.Anything).Return([]domain.ReferralRow{
		{ReferrerEmail: "bob@example.com", CreatedAt: time.Now()},
	}, nil)
	got, err := uc.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].FullName)
}
