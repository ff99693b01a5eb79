package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
)

// PushSubscriptionRepository handles database operations for Web Push
// subscriptions. Registration happens in the excluded CRUD layer; the
// engine only reads subscriptions and prunes dead ones.
type PushSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPushSubscriptionRepository creates a new PushSubscriptionRepository.
func NewPushSubscriptionRepository(pool *pgxpool.Pool) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{pool: pool}
}

// ByUserID retrieves all subscriptions registered by a user.
func (r *PushSubscriptionRepository) ByUserID(ctx context.Context, userID int64) ([]*domain.PushSubscription, error) {
	query, args, err := psql.
		Select("id", "user_id", "endpoint", "p256dh", "auth", "created_at").
		From("push_subscriptions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ByUserID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.PushSubscription
	for rows.Next() {
		var sub domain.PushSubscription
		err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return subs, nil
}

// Delete removes a subscription, typically after the push service reported
// the endpoint gone.
func (r *PushSubscriptionRepository) Delete(ctx context.Context, subID int64) error {
	query, args, err := psql.
		Delete("push_subscriptions").
		Where(sq.Eq{"id": subID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for subscription %d: %w", subID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}

	return nil
}
