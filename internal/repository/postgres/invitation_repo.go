package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"clubevents/internal/domain"
)

const invitationColumns = `
	id, event_id, user_id, token,
	send_email_attempt_utc, send_email_success_utc,
	reply, num_friends, num_car_seats
`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (event_id, user_id, token, reply, num_friends, num_car_seats)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		inv.EventID, inv.UserID, inv.Token, inv.Reply, inv.NumFriends, inv.NumCarSeats,
	).Scan(&inv.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrDuplicateInvitation
	}
	return err
}

func (r *invitationRepository) scan(row interface{ Scan(...any) error }) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	err := row.Scan(
		&inv.ID, &inv.EventID, &inv.UserID, &inv.Token,
		&inv.SendEmailAttemptUTC, &inv.SendEmailSuccessUTC,
		&inv.Reply, &inv.NumFriends, &inv.NumCarSeats,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, id))
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token = $1`
	return r.scan(r.DB.QueryRowContext(ctx, query, token))
}

func (r *invitationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE event_id = $1 AND user_id = $2`
	return r.scan(r.DB.QueryRowContext(ctx, query, eventID, userID))
}

func (r *invitationRepository) UpdateReply(ctx context.Context, id string, reply domain.Reply, numFriends, numCarSeats int) error {
	query := `
		UPDATE invitations
		SET reply = $2, num_friends = $3, num_car_seats = $4
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, reply, numFriends, numCarSeats)
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

func (r *invitationRepository) MarkSendAttempt(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE invitations SET send_email_attempt_utc = $2 WHERE id = $1`, id, at.UTC())
	return err
}

func (r *invitationRepository) MarkSendSuccess(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE invitations SET send_email_success_utc = $2 WHERE id = $1`, id, at.UTC())
	return err
}

// ListMissing is the SQL form of the eligibility set-difference: members of
// assigned groups, minus existing invitations, for events marked for
// distribution whose deadline has not passed.
func (r *invitationRepository) ListMissing(ctx context.Context, eventID string, now time.Time) ([]*domain.EligiblePair, error) {
	query := `
		SELECT u.id, e.id, u.email, u.first_name, e.name
		FROM users u
		INNER JOIN group_members m ON m.user_id = u.id
		INNER JOIN event_groups eg ON eg.group_id = m.group_id
		INNER JOIN events e ON e.id = eg.event_id
		LEFT JOIN invitations i ON i.user_id = u.id AND i.event_id = e.id
		WHERE e.send_invitations
			AND $2 <= e.deadline_utc
			AND i.id IS NULL
			AND ($1::text = '' OR e.id::text = $1)
		GROUP BY u.id, e.id, u.email, u.first_name, e.name
		ORDER BY u.id, e.id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []*domain.EligiblePair{}
	for rows.Next() {
		p := &domain.EligiblePair{}
		if err := rows.Scan(&p.UserID, &p.EventID, &p.Email, &p.FirstName, &p.EventName); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (r *invitationRepository) ListByEventID(ctx context.Context, eventID string, replyFilter *domain.Reply, params domain.PaginationParams) ([]*domain.InvitationWithUser, int, error) {
	where := `WHERE i.event_id = $1 AND ($2::int IS NULL OR i.reply = $2)`

	var reply any
	if replyFilter != nil {
		reply = int(*replyFilter)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations i `+where, eventID, reply).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT i.id, i.event_id, i.user_id, i.token,
			i.send_email_attempt_utc, i.send_email_success_utc,
			i.reply, i.num_friends, i.num_car_seats,
			u.username, u.first_name, u.family_name, u.email
		FROM invitations i
		INNER JOIN users u ON u.id = i.user_id
		` + where + `
		ORDER BY i.reply DESC, u.family_name ASC, u.first_name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, reply, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*domain.InvitationWithUser{}
	for rows.Next() {
		inv := &domain.Invitation{}
		item := &domain.InvitationWithUser{Invitation: inv}
		if err := rows.Scan(
			&inv.ID, &inv.EventID, &inv.UserID, &inv.Token,
			&inv.SendEmailAttemptUTC, &inv.SendEmailSuccessUTC,
			&inv.Reply, &inv.NumFriends, &inv.NumCarSeats,
			&item.Username, &item.FirstName, &item.FamilyName, &item.Email,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *invitationRepository) ListByUserID(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.InvitationWithEvent, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT i.id, i.event_id, i.user_id, i.token,
			i.send_email_attempt_utc, i.send_email_success_utc,
			i.reply, i.num_friends, i.num_car_seats,
			e.name, e.start_utc, e.deadline_utc
		FROM invitations i
		INNER JOIN events e ON e.id = i.event_id
		WHERE i.user_id = $1
		ORDER BY e.start_utc ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*domain.InvitationWithEvent{}
	for rows.Next() {
		inv := &domain.Invitation{}
		item := &domain.InvitationWithEvent{Invitation: inv}
		if err := rows.Scan(
			&inv.ID, &inv.EventID, &inv.UserID, &inv.Token,
			&inv.SendEmailAttemptUTC, &inv.SendEmailSuccessUTC,
			&inv.Reply, &inv.NumFriends, &inv.NumCarSeats,
			&item.EventName, &item.StartUTC, &item.DeadlineUTC,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *invitationRepository) StatsByEventID(ctx context.Context, eventID string) (*domain.InvitationStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(num_friends), 0), COALESCE(SUM(num_car_seats), 0)
		FROM invitations
		WHERE event_id = $1 AND reply = $2
	`
	stats := &domain.InvitationStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID, domain.ReplyAccepted).
		Scan(&stats.Accepted, &stats.TotalFriends, &stats.TotalCarSeats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
