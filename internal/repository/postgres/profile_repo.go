package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"ura-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id::text, email, role, username, full_name, first_name, last_name,
	phone_number, country_code, postal_code, avatar_url, avatar_path,
	research_interests, preferred_tools, onboarding_step, onboarding_status,
	onboarding_completed, has_completed_setup, onboarding_data,
	username_changed_at, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p        domain.Profile
		dataJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.Role, &p.Username, &p.FullName, &p.FirstName, &p.LastName,
		&p.PhoneNumber, &p.CountryCode, &p.PostalCode, &p.AvatarURL, &p.AvatarPath,
		pq.Array(&p.ResearchInterests), pq.Array(&p.PreferredTools), &p.OnboardingStep, &p.OnboardingStatus,
		&p.OnboardingCompleted, &p.HasCompletedSetup, &dataJSON,
		&p.UsernameChangedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &p.OnboardingData); err != nil {
			return nil, fmt.Errorf("decode onboarding_data: %w", err)
		}
	}
	if p.ResearchInterests == nil {
		p.ResearchInterests = []string{}
	}
	if p.PreferredTools == nil {
		p.PreferredTools = []string{}
	}
	return &p, nil
}

// encodeData returns the payload as a JSON string. Strings rather than bytes
// because the simple protocol would send []byte as bytea.
func encodeData(data domain.OnboardingData) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode onboarding_data: %w", err)
	}
	return string(b), nil
}

// textArray maps nil to SQL NULL so COALESCE keeps the stored value.
func textArray(values []string) interface{} {
	if values == nil {
		return nil
	}
	return pq.Array(values)
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1::uuid`
	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get profile", err)
	}
	return p, nil
}

func (r *profileRepo) CreateIfAbsent(ctx context.Context, id, email string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, email, onboarding_step, onboarding_status)
		VALUES ($1::uuid, $2, 1, 'not_started')
		ON CONFLICT (id) DO NOTHING
	`, id, email)
	if err != nil {
		return false, mapError("create profile", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *profileRepo) AdvanceStep(ctx context.Context, id string, nextStep int, data domain.OnboardingData) (*domain.Profile, error) {
	dataJSON, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	// jsonb || keeps stored keys the patch omits, so nil fields never erase.
	query := `UPDATE profiles SET
			onboarding_status = 'in_progress',
			onboarding_step = GREATEST(onboarding_step, $2::int),
			onboarding_data = onboarding_data || $3::jsonb,
			updated_at = now()
		WHERE id = $1::uuid AND onboarding_status <> 'completed'
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query, id, nextStep, dataJSON))
	if err != nil {
		return nil, mapError("advance onboarding step", err)
	}
	return p, nil
}

func (r *profileRepo) MarkCompleted(ctx context.Context, id string, data domain.OnboardingData, cols domain.ProfileColumns, at time.Time) (*domain.Profile, bool, error) {
	dataJSON, err := encodeData(data)
	if err != nil {
		return nil, false, err
	}

	query := `UPDATE profiles SET
			onboarding_status = 'completed',
			onboarding_completed = true,
			has_completed_setup = true,
			onboarding_step = 5,
			onboarding_data = onboarding_data || $2::jsonb,
			username = COALESCE($3::text, username),
			full_name = COALESCE($4::text, full_name),
			first_name = COALESCE($5::text, first_name),
			last_name = COALESCE($6::text, last_name),
			phone_number = COALESCE($7::text, phone_number),
			country_code = COALESCE($8::text, country_code),
			postal_code = COALESCE($9::text, postal_code),
			research_interests = COALESCE($10::text[], research_interests),
			preferred_tools = COALESCE($11::text[], preferred_tools),
			updated_at = $12
		WHERE id = $1::uuid AND onboarding_status <> 'completed'
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query,
		id, dataJSON,
		cols.Username, cols.FullName, cols.FirstName, cols.LastName,
		cols.PhoneNumber, cols.CountryCode, cols.PostalCode,
		textArray(cols.ResearchInterests), textArray(cols.PreferredTools),
		at,
	))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapError("complete onboarding", err)
	}

	// Nothing updated: either missing or already completed.
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *profileRepo) UpdateSettings(ctx context.Context, id string, cols domain.ProfileColumns, data domain.OnboardingData) (*domain.Profile, error) {
	dataJSON, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	query := `UPDATE profiles SET
			first_name = COALESCE($2::text, first_name),
			last_name = COALESCE($3::text, last_name),
			full_name = COALESCE($4::text, full_name),
			phone_number = COALESCE($5::text, phone_number),
			country_code = COALESCE($6::text, country_code),
			postal_code = COALESCE($7::text, postal_code),
			research_interests = COALESCE($8::text[], research_interests),
			preferred_tools = COALESCE($9::text[], preferred_tools),
			onboarding_data = onboarding_data || $10::jsonb,
			updated_at = now()
		WHERE id = $1::uuid
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query,
		id, cols.FirstName, cols.LastName, cols.FullName,
		cols.PhoneNumber, cols.CountryCode, cols.PostalCode,
		textArray(cols.ResearchInterests), textArray(cols.PreferredTools),
		dataJSON,
	))
	if err != nil {
		return nil, mapError("update profile settings", err)
	}
	return p, nil
}

func (r *profileRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM profiles
			WHERE lower(username) = lower($1) AND ($2 = '' OR id::text <> $2)
		)
	`, username, excludeID).Scan(&taken)
	if err != nil {
		return false, mapError("check username", err)
	}
	return taken, nil
}

func (r *profileRepo) UpdateUsername(ctx context.Context, id, username string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET username = $2, username_changed_at = $3, updated_at = $3,
			onboarding_data = jsonb_set(onboarding_data, '{username}', to_jsonb($2::text))
		WHERE id = $1::uuid
	`, id, username, at)
	if err != nil {
		return mapError("update username", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepo) UpdateAvatar(ctx context.Context, id string, url, path *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles SET avatar_url = $2, avatar_path = $3, updated_at = now()
		WHERE id = $1::uuid
	`, id, url, path)
	if err != nil {
		return mapError("update avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
