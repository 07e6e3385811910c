package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) GetFreeLinkByKey(key string) (*types.FreeLink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var l types.FreeLink
	err := s.pool.QueryRow(ctx, `
SELECT id, key, name, channel_id, channel_invite_link, max_uses, current_uses, duration_days, is_active, created_by, created_at
FROM free_links
WHERE key = $1
`, strings.TrimSpace(key)).Scan(&l.ID, &l.Key, &l.Name, &l.ChannelID, &l.ChannelInviteLink, &l.MaxUses, &l.CurrentUses, &l.DurationDays, &l.IsActive, &l.CreatedBy, &l.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &l, nil
}

func (s *PostgresStore) HasFreeLinkUse(linkID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var ok bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM free_link_uses WHERE free_link_id = $1 AND user_id = $2
)
`, linkID, userID).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// RedeemFreeLink re-runs the eligibility checks under a row lock at the
// moment of actual grant, so two redemptions queued behind phone capture
// cannot both pass.
func (s *PostgresStore) RedeemFreeLink(linkID, userID int64, expiresAt time.Time) (*types.FreeLinkUse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var isActive bool
	var maxUses, currentUses int
	err = tx.QueryRow(ctx, `
SELECT is_active, max_uses, current_uses
FROM free_links
WHERE id = $1
FOR UPDATE
`, linkID).Scan(&isActive, &maxUses, &currentUses)
	if err != nil {
		return nil, notFoundOr(err)
	}

	if !isActive {
		return nil, types.ErrLinkInactive
	}
	if maxUses != types.UnlimitedUses && currentUses >= maxUses {
		return nil, types.ErrLinkLimitReached
	}

	var use types.FreeLinkUse
	err = tx.QueryRow(ctx, `
INSERT INTO free_link_uses (free_link_id, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (free_link_id, user_id) DO NOTHING
RETURNING id, free_link_id, user_id, expires_at, expired, created_at
`, linkID, userID, expiresAt).Scan(&use.ID, &use.FreeLinkID, &use.UserID, &use.ExpiresAt, &use.Expired, &use.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrLinkAlreadyUsed
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
UPDATE free_links
SET current_uses = current_uses + 1
WHERE id = $1
`, linkID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &use, nil
}

func (s *PostgresStore) CreateFreeLink(link *types.FreeLink) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO free_links (key, name, channel_id, channel_invite_link, max_uses, duration_days, is_active, created_by)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
RETURNING id
`, strings.TrimSpace(link.Key), strings.TrimSpace(link.Name), link.ChannelID, strings.TrimSpace(link.ChannelInviteLink),
		link.MaxUses, link.DurationDays, link.CreatedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) ListFreeLinks() ([]types.FreeLink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, key, name, channel_id, channel_invite_link, max_uses, current_uses, duration_days, is_active, created_by, created_at
FROM free_links
ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []types.FreeLink
	for rows.Next() {
		var l types.FreeLink
		if err := rows.Scan(&l.ID, &l.Key, &l.Name, &l.ChannelID, &l.ChannelInviteLink, &l.MaxUses, &l.CurrentUses, &l.DurationDays, &l.IsActive, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *PostgresStore) SetFreeLinkActive(linkID int64, active bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE free_links
SET is_active = $2
WHERE id = $1
`, linkID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DeleteFreeLink cascades to its usage rows.
func (s *PostgresStore) DeleteFreeLink(linkID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM free_links WHERE id = $1`, linkID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExpiredFreeLinkUses() ([]types.ExpiredUse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT u.id, u.free_link_id, u.user_id, u.expires_at, u.expired, u.created_at, l.channel_id, l.name
FROM free_link_uses u
JOIN free_links l ON l.id = u.free_link_id
WHERE NOT u.expired AND u.expires_at <= NOW()
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uses []types.ExpiredUse
	for rows.Next() {
		var e types.ExpiredUse
		if err := rows.Scan(&e.Use.ID, &e.Use.FreeLinkID, &e.Use.UserID, &e.Use.ExpiresAt, &e.Use.Expired, &e.Use.CreatedAt, &e.ChannelID, &e.LinkName); err != nil {
			return nil, err
		}
		uses = append(uses, e)
	}
	return uses, rows.Err()
}

func (s *PostgresStore) MarkFreeLinkUseExpired(useID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE free_link_uses
SET expired = TRUE
WHERE id = $1
`, useID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetPlan(planID int64) (*types.SubscriptionPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var p types.SubscriptionPlan
	err := s.pool.QueryRow(ctx, `
SELECT id, name, duration_days, price_usd, price_uzs, channel_id, is_active, created_at
FROM subscription_plans
WHERE id = $1 AND is_active
`, planID).Scan(&p.ID, &p.Name, &p.DurationDays, &p.PriceUSD, &p.PriceUZS, &p.ChannelID, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

func (s *PostgresStore) ListActivePlans() ([]types.SubscriptionPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, name, duration_days, price_usd, price_uzs, channel_id, is_active, created_at
FROM subscription_plans
WHERE is_active
ORDER BY duration_days
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []types.SubscriptionPlan
	for rows.Next() {
		var p types.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationDays, &p.PriceUSD, &p.PriceUZS, &p.ChannelID, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) CreatePlan(plan *types.SubscriptionPlan) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO subscription_plans (name, duration_days, price_usd, price_uzs, channel_id, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
RETURNING id
`, strings.TrimSpace(plan.Name), plan.DurationDays, plan.PriceUSD, plan.PriceUZS, plan.ChannelID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) CreateSubscription(sub *types.Subscription) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO subscriptions (user_id, plan_id, is_active, expires_at, payment_verified)
VALUES ($1, $2, TRUE, $3, FALSE)
RETURNING id
`, sub.UserID, sub.PlanID, sub.ExpiresAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) GetSubscriptionWithPlan(subID int64) (*types.Subscription, *types.SubscriptionPlan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var sub types.Subscription
	var p types.SubscriptionPlan
	err := s.pool.QueryRow(ctx, `
SELECT s.id, s.user_id, s.plan_id, s.is_active, s.expires_at, s.invite_link, s.payment_verified, s.created_at, s.updated_at,
       p.id, p.name, p.duration_days, p.price_usd, p.price_uzs, p.channel_id, p.is_active, p.created_at
FROM subscriptions s
JOIN subscription_plans p ON p.id = s.plan_id
WHERE s.id = $1
`, subID).Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.IsActive, &sub.ExpiresAt, &sub.InviteLink, &sub.PaymentVerified, &sub.CreatedAt, &sub.UpdatedAt,
		&p.ID, &p.Name, &p.DurationDays, &p.PriceUSD, &p.PriceUZS, &p.ChannelID, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	return &sub, &p, nil
}

func (s *PostgresStore) MarkPaymentVerified(subID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE subscriptions
SET payment_verified = TRUE, updated_at = NOW()
WHERE id = $1
`, subID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetSubscriptionInvite(subID int64, invite string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE subscriptions
SET invite_link = $2, updated_at = NOW()
WHERE id = $1
`, subID, strings.TrimSpace(invite))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExpiredSubscriptions() ([]types.Subscription, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, plan_id, is_active, expires_at, invite_link, payment_verified, created_at, updated_at
FROM subscriptions
WHERE is_active AND expires_at <= NOW()
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []types.Subscription
	for rows.Next() {
		var sub types.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.IsActive, &sub.ExpiresAt, &sub.InviteLink, &sub.PaymentVerified, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PostgresStore) ExpireSubscription(subID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE subscriptions
SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active
`, subID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SubscriptionStats() (total, active, verified int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.pool.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_active),
       COUNT(*) FILTER (WHERE payment_verified)
FROM subscriptions
`).Scan(&total, &active, &verified)
	return total, active, verified, err
}
