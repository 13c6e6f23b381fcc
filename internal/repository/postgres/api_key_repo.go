package postgres

import (
	"context"
	"ura-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type apiKeyRepo struct {
	db *pgxpool.Pool
}

func NewAPIKeyRepository(db *pgxpool.Pool) domain.APIKeyRepository {
	return &apiKeyRepo{db: db}
}

func (r *apiKeyRepo) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	query := `SELECT user_id::text, provider, api_key, created_at, updated_at
		FROM api_keys WHERE user_id = $1::uuid ORDER BY provider`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError("list api keys", err)
	}
	defer rows.Close()

	keys := []domain.APIKey{}
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.UserID, &k.Provider, &k.Key, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, mapError("scan api key", err)
		}
		keys = append(keys, k)
	}
	return keys, mapError("list api keys", rows.Err())
}

func (r *apiKeyRepo) Upsert(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	query := `INSERT INTO api_keys (user_id, provider, api_key)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (user_id, provider) DO UPDATE
			SET api_key = EXCLUDED.api_key, updated_at = now()
		RETURNING user_id::text, provider, api_key, created_at, updated_at`
	var k domain.APIKey
	err := r.db.QueryRow(ctx, query, key.UserID, key.Provider, key.Key).Scan(
		&k.UserID, &k.Provider, &k.Key, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return nil, mapError("upsert api key", err)
	}
	return &k, nil
}

func (r *apiKeyRepo) Delete(ctx context.Context, userID, provider string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE user_id = $1::uuid AND provider = $2`, userID, provider)
	if err != nil {
		return mapError("delete api key", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
