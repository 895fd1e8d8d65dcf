package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"clubevents/internal/domain"
)

type groupMemberRepository struct {
	DB *sql.DB
}

func NewGroupMemberRepository(db *sql.DB) domain.GroupMemberRepository {
	return &groupMemberRepository{DB: db}
}

func (r *groupMemberRepository) Add(ctx context.Context, m *domain.GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, m.GroupID, m.UserID, m.Role, m.JoinedAt).Scan(&m.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrAlreadyMember
	}
	return err
}

func (r *groupMemberRepository) GetByID(ctx context.Context, id string) (*domain.GroupMember, error) {
	query := `
		SELECT id, group_id, user_id, role, joined_at
		FROM group_members
		WHERE id = $1
	`
	m := &domain.GroupMember{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *groupMemberRepository) GetByGroupAndUser(ctx context.Context, groupID, userID string) (*domain.GroupMember, error) {
	query := `
		SELECT id, group_id, user_id, role, joined_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`
	m := &domain.GroupMember{}
	err := r.DB.QueryRowContext(ctx, query, groupID, userID).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *groupMemberRepository) UpdateRole(ctx context.Context, id string, role domain.MemberRole) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE group_members SET role = $2 WHERE id = $1`, id, role)
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

func (r *groupMemberRepository) Remove(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM group_members WHERE id = $1`, id)
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

func (r *groupMemberRepository) ListByGroupID(ctx context.Context, groupID string, roleFilter *domain.MemberRole, params domain.PaginationParams) ([]*domain.GroupMember, int, error) {
	where := `WHERE m.group_id = $1 AND ($2::int IS NULL OR m.role = $2)`

	var role any
	if roleFilter != nil {
		role = int(*roleFilter)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members m `+where, groupID, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.group_id, m.user_id, m.role, m.joined_at,
			u.username, u.first_name, u.family_name
		FROM group_members m
		INNER JOIN users u ON u.id = m.user_id
		` + where + `
		ORDER BY m.role DESC, u.username ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, groupID, role, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	members := []*domain.GroupMember{}
	for rows.Next() {
		m := &domain.GroupMember{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&m.Username, &m.FirstName, &m.FamilyName); err != nil {
			return nil, 0, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (r *groupMemberRepository) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.MembershipWithGroup, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.group_id, m.user_id, m.role, m.joined_at,
			g.name, g.slug
		FROM group_members m
		INNER JOIN groups g ON g.id = m.group_id
		WHERE m.user_id = $1
		ORDER BY g.name ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*domain.MembershipWithGroup{}
	for rows.Next() {
		m := &domain.GroupMember{}
		item := &domain.MembershipWithGroup{Membership: m}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&item.GroupName, &item.GroupSlug); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
