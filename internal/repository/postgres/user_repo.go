package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"clubevents/internal/domain"
)

const userColumns = `
	id, username, email, first_name, family_name, role,
	password_salt, password_hash,
	password_reset_token, password_reset_requested,
	email_change_request, email_change_token, email_change_requested,
	created_at, updated_at
`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) scan(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.FamilyName, &u.Role,
		&u.PasswordSalt, &u.PasswordHash,
		&u.PasswordResetToken, &u.PasswordResetRequested,
		&u.EmailChangeRequest, &u.EmailChangeToken, &u.EmailChangeRequested,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, first_name, family_name, role, password_salt, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		u.Username, u.Email, u.FirstName, u.FamilyName, u.Role,
		u.PasswordSalt, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	return mapUserConstraintError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, username))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, email))
}

func (r *userRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, token))
}

func (r *userRepository) GetByEmailChangeToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_change_token = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, token))
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, family_name = $5,
			password_salt = $6, password_hash = $7,
			password_reset_token = $8, password_reset_requested = $9,
			email_change_request = $10, email_change_token = $11, email_change_requested = $12,
			updated_at = $13
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.FirstName, u.FamilyName,
		u.PasswordSalt, u.PasswordHash,
		u.PasswordResetToken, u.PasswordResetRequested,
		u.EmailChangeRequest, u.EmailChangeToken, u.EmailChangeRequested,
		u.UpdatedAt,
	)
	if err != nil {
		return mapUserConstraintError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	query := `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, role)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	// Memberships and invitations cascade via foreign keys.
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, roleFilter *domain.Role, search string, params domain.PaginationParams) ([]*domain.User, int, error) {
	where := `WHERE ($1::int IS NULL OR role = $1)
		AND ($2 = '' OR username ILIKE '%' || $2 || '%' OR first_name ILIKE '%' || $2 || '%' OR family_name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')`

	var role any
	if roleFilter != nil {
		role = int(*roleFilter)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, role, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ` + where + `
		ORDER BY username ASC
		LIMIT $3 OFFSET $4`
	rows, err := r.DB.QueryContext(ctx, query, role, search, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// mapUserConstraintError maps unique-violation errors to domain sentinels.
func mapUserConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_username_key":
			return domain.ErrDuplicateUsername
		default:
			return domain.ErrDuplicateEmail
		}
	}
	return err
}
