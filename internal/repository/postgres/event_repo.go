package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clubevents/internal/domain"
)

const eventColumns = `
	id, name, description, location, equipment, cost,
	start_utc, end_utc, deadline_utc, send_invitations,
	created_at, updated_at
`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Create(ctx context.Context, ev *domain.Event) error {
	query := `
		INSERT INTO events (name, description, location, equipment, cost, start_utc, end_utc, deadline_utc, send_invitations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		ev.Name, ev.Description, ev.Location, ev.Equipment, ev.Cost,
		ev.StartUTC, ev.EndUTC, ev.DeadlineUTC, ev.SendInvitations,
		ev.CreatedAt, ev.UpdatedAt,
	).Scan(&ev.ID)
	if err != nil {
		return err
	}
	return r.replaceGroups(ctx, ev.ID, ev.GroupIDs)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	ev, err := r.scan(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	groupIDs, err := r.groupIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	ev.GroupIDs = groupIDs
	return ev, nil
}

func (r *eventRepository) scan(row interface{ Scan(...any) error }) (*domain.Event, error) {
	ev := &domain.Event{}
	err := row.Scan(
		&ev.ID, &ev.Name, &ev.Description, &ev.Location, &ev.Equipment, &ev.Cost,
		&ev.StartUTC, &ev.EndUTC, &ev.DeadlineUTC, &ev.SendInvitations,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (r *eventRepository) groupIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT group_id FROM event_groups WHERE event_id = $1 ORDER BY group_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *eventRepository) replaceGroups(ctx context.Context, eventID string, groupIDs []string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM event_groups WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, groupID := range groupIDs {
		if _, err := r.DB.ExecContext(ctx, `INSERT INTO event_groups (event_id, group_id) VALUES ($1, $2)`, eventID, groupID); err != nil {
			return err
		}
	}
	return nil
}

func (r *eventRepository) Update(ctx context.Context, ev *domain.Event) error {
	query := `
		UPDATE events
		SET name = $2, description = $3, location = $4, equipment = $5, cost = $6,
			start_utc = $7, end_utc = $8, deadline_utc = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		ev.ID, ev.Name, ev.Description, ev.Location, ev.Equipment, ev.Cost,
		ev.StartUTC, ev.EndUTC, ev.DeadlineUTC, ev.UpdatedAt,
	)
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
	return r.replaceGroups(ctx, ev.ID, ev.GroupIDs)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	// Group assignments and invitations cascade via foreign keys.
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
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

func (r *eventRepository) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')`

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events `+where, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events ` + where + `
		ORDER BY start_utc ASC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, total, search, params.Limit(), params.Offset())
}

func (r *eventRepository) ListUpcoming(ctx context.Context, after time.Time, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := `WHERE start_utc > $1`

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events `+where, after).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events ` + where + `
		ORDER BY start_utc ASC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, total, after, params.Limit(), params.Offset())
}

func (r *eventRepository) ListUpcomingForUser(ctx context.Context, userID string, after time.Time, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := `
		WHERE start_utc > $2
			AND EXISTS (
				SELECT 1
				FROM event_groups eg
				INNER JOIN group_members m ON m.group_id = eg.group_id
				WHERE eg.event_id = events.id AND m.user_id = $1
			)`

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events `+where, userID, after).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events ` + where + `
		ORDER BY start_utc ASC
		LIMIT $3 OFFSET $4`
	return r.list(ctx, query, total, userID, after, params.Limit(), params.Offset())
}

func (r *eventRepository) list(ctx context.Context, query string, total int, args ...any) ([]*domain.Event, int, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		ev, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) MarkSendInvitations(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE events SET send_invitations = TRUE WHERE id = $1`, id)
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

func (r *eventRepository) ListAudience(ctx context.Context, eventID string) ([]*domain.AudienceMember, error) {
	query := `
		SELECT DISTINCT u.id, u.username, u.first_name, u.family_name, u.email
		FROM users u
		INNER JOIN group_members m ON m.user_id = u.id
		INNER JOIN event_groups eg ON eg.group_id = m.group_id
		WHERE eg.event_id = $1
		ORDER BY u.family_name, u.first_name
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*domain.AudienceMember{}
	for rows.Next() {
		m := &domain.AudienceMember{}
		if err := rows.Scan(&m.UserID, &m.Username, &m.FirstName, &m.FamilyName, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
