package postgres

import (
	"context"
	"ura-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type referralRepo struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) domain.ReferralRepository {
	return &referralRepo{db: db}
}

const referralColumns = `id, referrer_email, referred_email, status, created_at`

func (r *referralRepo) GetByReferred(ctx context.Context, referred string) (*domain.ReferralEdge, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referred_email = $1`
	var e domain.ReferralEdge
	err := r.db.QueryRow(ctx, query, referred).Scan(
		&e.ID, &e.ReferrerEmail, &e.ReferredEmail, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, mapError("get referral by referred", err)
	}
	return &e, nil
}

func (r *referralRepo) Create(ctx context.Context, edge *domain.ReferralEdge) error {
	query := `INSERT INTO referrals (referrer_email, referred_email, status)
              VALUES ($1, $2, $3)
              RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, edge.ReferrerEmail, edge.ReferredEmail, string(edge.Status)).
		Scan(&edge.ID, &edge.CreatedAt)
	return mapError("create referral", err)
}

func (r *referralRepo) CountByReferrer(ctx context.Context, referrer string) (*domain.ReferralStats, error) {
	stats := &domain.ReferralStats{Email: referrer}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
		FROM referrals
		WHERE referrer_email = $1
	`, referrer).Scan(&stats.Total, &stats.Completed)
	if err != nil {
		return nil, mapError("count referrals", err)
	}
	return stats, nil
}

// ListCompletedWithReferrer returns one row per completed edge. Ordering is
// left to the caller.
func (r *referralRepo) ListCompletedWithReferrer(ctx context.Context) ([]domain.ReferralRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.referrer_email, b.full_name, r.created_at
		FROM referrals r
		LEFT JOIN beta_registrations b ON b.email = r.referrer_email
		WHERE r.status = 'completed'
	`)
	if err != nil {
		return nil, mapError("list completed referrals", err)
	}
	defer rows.Close()

	var out []domain.ReferralRow
	for rows.Next() {
		var row domain.ReferralRow
		if err := rows.Scan(&row.ReferrerEmail, &row.ReferrerName, &row.CreatedAt); err != nil {
			return nil, mapError("scan referral row", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate referral rows", err)
	}
	return out, nil
}
