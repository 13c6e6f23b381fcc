package postgres

import (
	"context"
	"ura-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type registrationRepo struct {
	db *pgxpool.Pool
}

func NewRegistrationRepository(db *pgxpool.Pool) domain.RegistrationRepository {
	return &registrationRepo{db: db}
}

const registrationColumns = `email, full_name, country, heard_from, organization, status, registered_at`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var reg domain.Registration
	err := row.Scan(
		&reg.Email, &reg.FullName, &reg.Country, &reg.HeardFrom,
		&reg.Organization, &reg.Status, &reg.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM beta_registrations WHERE email = $1`
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError("get registration", err)
	}
	return reg, nil
}

func (r *registrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	query := `INSERT INTO beta_registrations (email, full_name, country, heard_from, organization, status, registered_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		reg.Email, reg.FullName, reg.Country, string(reg.HeardFrom),
		reg.Organization, string(reg.Status), reg.RegisteredAt,
	)
	return mapError("create registration", err)
}

func (r *registrationRepo) List(ctx context.Context, filter domain.RegistrationFilter) ([]domain.Registration, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM beta_registrations WHERE ($1 = '' OR status = $1)`,
		string(filter.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, mapError("count registrations", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `SELECT ` + registrationColumns + ` FROM beta_registrations
		WHERE ($1 = '' OR status = $1)
		ORDER BY registered_at DESC, email ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, string(filter.Status), filter.Limit, offset)
	if err != nil {
		return nil, 0, mapError("list registrations", err)
	}
	defer rows.Close()

	regs, err := collectRegistrations(rows)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepo) ListAll(ctx context.Context, status domain.RegistrationStatus) ([]domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM beta_registrations
		WHERE ($1 = '' OR status = $1)
		ORDER BY registered_at ASC, email ASC`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, mapError("list all registrations", err)
	}
	defer rows.Close()

	return collectRegistrations(rows)
}

func (r *registrationRepo) UpdateStatus(ctx context.Context, email string, from, to domain.RegistrationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE beta_registrations SET status = $3 WHERE email = $1 AND status = $2`,
		email, string(from), string(to),
	)
	if err != nil {
		return mapError("update registration status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectRegistrations(rows pgx.Rows) ([]domain.Registration, error) {
	regs := []domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, mapError("scan registration", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate registrations", err)
	}
	return regs, nil
}
