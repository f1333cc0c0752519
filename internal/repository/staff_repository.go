package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/reception-service/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	GetByShortCode(ctx context.Context, code string) (*domain.StaffMember, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.StaffMember, error)
	ListActive(ctx context.Context) ([]domain.StaffMember, error)
}

const staffColumns = `id, name, email, short_code, password_hash, department, active_flag, created_at, updated_at`

type staffRepository struct {
	db DBTX
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DBTX) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, email, short_code, password_hash, department, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.ShortCode,
		staff.PasswordHash,
		staff.Department,
		staff.Active,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff_members WHERE id::text=$1`
	return scanStaff(r.db.QueryRow(ctx, query, id))
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff_members WHERE LOWER(email)=LOWER($1)`
	return scanStaff(r.db.QueryRow(ctx, query, email))
}

func (r *staffRepository) GetByShortCode(ctx context.Context, code string) (*domain.StaffMember, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff_members WHERE short_code <> '' AND LOWER(short_code)=LOWER($1)`
	return scanStaff(r.db.QueryRow(ctx, query, code))
}

// FindByIdentifier matches an active member by id, email, short code or exact
// display name. It returns nil without error when nothing matches.
func (r *staffRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.StaffMember, error) {
	const query = `
        SELECT ` + staffColumns + `
        FROM staff_members
        WHERE active_flag
          AND (id::text=$1 OR LOWER(email)=LOWER($1) OR (short_code <> '' AND LOWER(short_code)=LOWER($1)) OR LOWER(name)=LOWER($1))
        ORDER BY (id::text=$1) DESC, created_at ASC
        LIMIT 1`

	staff, err := scanStaff(r.db.QueryRow(ctx, query, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return staff, err
}

func (r *staffRepository) ListActive(ctx context.Context) ([]domain.StaffMember, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff_members WHERE active_flag ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func scanStaff(row pgx.Row) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.ShortCode,
		&staff.PasswordHash,
		&staff.Department,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
