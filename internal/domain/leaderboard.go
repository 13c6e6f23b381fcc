package domain

import "context"

// LeaderboardEntry is derived on every request and never stored.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ReferralCount int    `json:"referral_count"`
}

type LeaderboardUsecase interface {
	Compute(ctx context.Context) ([]LeaderboardEntry, error)
}
