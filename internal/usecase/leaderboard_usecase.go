package usecase

import (
	"context"
	"sort"
	"strings"
	"time"
	"ura-backend/internal/domain"
	"ura-backend/pkg/apperror"
)

// DefaultLeaderboardLimit is the number of entries shown on the board.
const DefaultLeaderboardLimit = 100

const unknownReferrerName = "Unknown"

type leaderboardUsecase struct {
	referralRepo domain.ReferralRepository
	limit        int
}

func NewLeaderboardUsecase(referralRepo domain.ReferralRepository, limit int) domain.LeaderboardUsecase {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return &leaderboardUsecase{referralRepo: referralRepo, limit: limit}
}

// Compute recomputes the board from every completed edge on each call.
func (u *leaderboardUsecase) Compute(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := u.referralRepo.ListCompletedWithReferrer(ctx)
	if err != nil {
		return nil, apperror.StoreFailure("Failed to load leaderboard", err)
	}
	return RankReferrers(rows, u.limit), nil
}

type referrerTally struct {
	email string
	name  string
	count int
	first time.Time
}

// RankReferrers groups rows by referrer and orders them by count descending.
// Ties go to the referrer whose first referral is earliest, then to the
// lexically smaller email. Ranks run 1..k without gaps.
func RankReferrers(rows []domain.ReferralRow, limit int) []domain.LeaderboardEntry {
	byEmail := make(map[string]*referrerTally)
	for _, row := range rows {
		t, ok := byEmail[row.ReferrerEmail]
		if !ok {
			t = &referrerTally{email: row.ReferrerEmail, name: unknownReferrerName, first: row.CreatedAt}
			byEmail[row.ReferrerEmail] = t
		}
		t.count++
		if row.CreatedAt.Before(t.first) {
			t.first = row.CreatedAt
		}
		if row.ReferrerName != nil && strings.TrimSpace(*row.ReferrerName) != "" {
			t.name = *row.ReferrerName
		}
	}

	tallies := make([]*referrerTally, 0, len(byEmail))
	for _, t := range byEmail {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if !a.first.Equal(b.first) {
			return a.first.Before(b.first)
		}
		return a.email < b.email
	})

	if limit > 0 && len(tallies) > limit {
		tallies = tallies[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(tallies))
	for i, t := range tallies {
		entries[i] = domain.LeaderboardEntry{
			Rank:          i + 1,
			FullName:      t.name,
			Email:         t.email,
			ReferralCount: t.count,
		}
	}
	return entries
}
