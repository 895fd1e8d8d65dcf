package postgres

import (
	"context"
	"database/sql"
	"errors"

	"clubevents/internal/domain"
)

type groupRepository struct {
	DB *sql.DB
}

func NewGroupRepository(db *sql.DB) domain.GroupRepository {
	return &groupRepository{DB: db}
}

func (r *groupRepository) Create(ctx context.Context, g *domain.Group) error {
	query := `
		INSERT INTO groups (name, slug, description, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, g.Name, g.Slug, g.Description, g.LogoURL, g.CreatedAt, g.UpdatedAt).
		Scan(&g.ID)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	query := `
		SELECT id, name, slug, description, logo_url, created_at, updated_at
		FROM groups
		WHERE id = $1
	`
	return r.scan(r.DB.QueryRowContext(ctx, query, id))
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	query := `
		SELECT id, name, slug, description, logo_url, created_at, updated_at
		FROM groups
		WHERE slug = $1
	`
	return r.scan(r.DB.QueryRowContext(ctx, query, slug))
}

func (r *groupRepository) scan(row interface{ Scan(...any) error }) (*domain.Group, error) {
	g := &domain.Group{}
	err := row.Scan(&g.ID, &g.Name, &g.Slug, &g.Description, &g.LogoURL, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) Update(ctx context.Context, g *domain.Group) error {
	query := `
		UPDATE groups
		SET name = $2, slug = $3, description = $4, logo_url = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, g.ID, g.Name, g.Slug, g.Description, g.LogoURL, g.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *groupRepository) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Group, int, error) {
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')`

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups `+where, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, slug, description, logo_url, created_at, updated_at
		FROM groups ` + where + `
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, search, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	groups := []*domain.Group{}
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}
