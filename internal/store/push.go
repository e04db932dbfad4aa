package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, family_id, member_id, endpoint, p256dh, auth, user_agent, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	var created int64
	err := scanner.Scan(&sub.ID, &sub.FamilyID, &sub.MemberID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.UserAgent, &created)
	if err != nil {
		return nil, err
	}
	sub.CreatedAt = database.FromMillis(created)
	return &sub, nil
}

// CreateSubscription registers an endpoint for a member. Re-registering an
// endpoint moves it to the new member and refreshes its keys.
func (s *PushStore) CreateSubscription(ctx context.Context, familyID, memberID int64, endpoint, p256dh, auth, userAgent string) (*model.PushSubscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (family_id, member_id, endpoint, p256dh, auth, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET family_id = excluded.family_id, member_id = excluded.member_id,
		 p256dh = excluded.p256dh, auth = excluded.auth, user_agent = excluded.user_agent`,
		familyID, memberID, endpoint, p256dh, auth, userAgent, database.ToMillis(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	// LastInsertId is unreliable on conflict update; re-query by endpoint.
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint))
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return sub, nil
}

func (s *PushStore) GetByID(ctx context.Context, familyID, id int64) (*model.PushSubscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		`SELECT `+pushCols+` FROM push_subscriptions WHERE id = ? AND family_id = ?`, id, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

// ListByMembers returns the subscriptions of the given members in a family.
func (s *PushStore) ListByMembers(ctx context.Context, familyID int64, memberIDs []int64) ([]model.PushSubscription, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(memberIDs)+1)
	args = append(args, familyID)
	for _, id := range memberIDs {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pushCols+` FROM push_subscriptions
		 WHERE family_id = ? AND member_id IN (`+inClause(len(memberIDs))+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes a subscription owned by memberID.
func (s *PushStore) DeleteSubscription(ctx context.Context, familyID, memberID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE id = ? AND family_id = ? AND member_id = ?`, id, familyID, memberID)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PushStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}
