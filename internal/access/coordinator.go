package access

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

var (
	ErrKeyUnresolved        = errors.New("key matches no free link or funnel")
	ErrPhoneRequired        = errors.New("phone number required before redemption")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// EntryKind tells the caller which flow a start key resolves to.
type EntryKind int

const (
	EntryFreeLink EntryKind = iota
	EntryFunnel
)

// Entry is the result of resolving a deep-link key. Exactly one of Link and
// Funnel is set, matching Kind.
type Entry struct {
	Kind   EntryKind
	Link   *types.FreeLink
	Funnel *types.Funnel
}

// Gateway is the slice of the Bot API the coordinator needs for invites.
type Gateway interface {
	CreateInvite(ctx context.Context, channelID int64, memberLimit int, expireAt time.Time, name string) (string, error)
}

// FunnelResolver looks up funnels for entry-key resolution.
type FunnelResolver interface {
	GetActiveFunnelByKey(key string) (*types.Funnel, error)
}

// Grant is a successful free-link redemption. Degraded is set when the
// personal invite could not be created and InviteLink is the durable
// channel link instead.
type Grant struct {
	Link       *types.FreeLink
	Use        *types.FreeLinkUse
	InviteLink string
	Degraded   bool
}

// Checkout is a pending manual-payment order.
type Checkout struct {
	SubscriptionID int64
	Plan           *types.SubscriptionPlan
}

// Verification is the outcome of an operator confirming a payment.
type Verification struct {
	Subscription *types.Subscription
	Plan         *types.SubscriptionPlan
	InviteLink   string
	InviteSent   bool
}

// Coordinator owns the grant lifecycle: free-link redemption, paid checkout
// and payment verification. It never talks to chats directly; callers turn
// its results into messages.
type Coordinator struct {
	store     types.AccessStore
	users     types.UserStore
	funnels   FunnelResolver
	gateway   Gateway
	inviteTTL time.Duration
	now       func() time.Time
}

func NewCoordinator(store types.AccessStore, users types.UserStore, funnels FunnelResolver, gateway Gateway, inviteTTL time.Duration) *Coordinator {
	return &Coordinator{
		store:     store,
		users:     users,
		funnels:   funnels,
		gateway:   gateway,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// ResolveEntryKey maps a start parameter to its flow. Free links win over
// funnels when both carry the same key.
func (c *Coordinator) ResolveEntryKey(key string) (*Entry, error) {
	link, err := c.store.GetFreeLinkByKey(key)
	if err == nil {
		return &Entry{Kind: EntryFreeLink, Link: link}, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	f, err := c.funnels.GetActiveFunnelByKey(key)
	if err == nil {
		return &Entry{Kind: EntryFunnel, Funnel: f}, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return nil, ErrKeyUnresolved
}

// CheckRedeemable runs the pre-checks a user must pass before redemption:
// link active, limit not reached, not already used, phone on file. The same
// checks are re-run atomically inside the store at grant time; this pass
// exists to give precise feedback before asking for the phone number.
func (c *Coordinator) CheckRedeemable(link *types.FreeLink, userID int64) error {
	if !link.IsActive {
		return types.ErrLinkInactive
	}
	if link.MaxUses != types.UnlimitedUses && link.CurrentUses >= link.MaxUses {
		return types.ErrLinkLimitReached
	}
	used, err := c.store.HasFreeLinkUse(link.ID, userID)
	if err != nil {
		return err
	}
	if used {
		return types.ErrLinkAlreadyUsed
	}

	u, err := c.users.GetUser(userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return ErrPhoneRequired
		}
		return err
	}
	if u.Phone == "" {
		return ErrPhoneRequired
	}
	return nil
}

// RedeemFreeLink grants trial access: it records the use atomically, then
// issues a single-use personal invite. When invite creation fails the grant
// stands and the durable channel link is handed out instead.
func (c *Coordinator) RedeemFreeLink(ctx context.Context, link *types.FreeLink, userID int64) (*Grant, error) {
	if err := c.CheckRedeemable(link, userID); err != nil {
		return nil, err
	}

	expiresAt := c.now().Add(time.Duration(link.DurationDays) * 24 * time.Hour)
	use, err := c.store.RedeemFreeLink(link.ID, userID, expiresAt)
	if err != nil {
		return nil, err
	}

	grant := &Grant{Link: link, Use: use}
	invite, err := c.gateway.CreateInvite(ctx, link.ChannelID, 1, c.now().Add(c.inviteTTL),
		fmt.Sprintf("free-%s-%d", link.Key, userID))
	if err != nil {
		log.Printf("Free link %s: invite creation failed for user %d, falling back to channel link: %v", link.Key, userID, err)
		grant.InviteLink = link.ChannelInviteLink
		grant.Degraded = true
		return grant, nil
	}
	grant.InviteLink = invite
	return grant, nil
}

// StartCheckout opens a pending subscription for a plan. Access is not
// granted until an operator verifies the payment.
func (c *Coordinator) StartCheckout(userID, planID int64) (*Checkout, error) {
	plan, err := c.store.GetPlan(planID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	sub := &types.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		ExpiresAt: c.now().Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
	}
	id, err := c.store.CreateSubscription(sub)
	if err != nil {
		return nil, err
	}
	return &Checkout{SubscriptionID: id, Plan: plan}, nil
}

// VerifyPayment marks a subscription paid and tries to issue its personal
// invite. Payment truth is persisted first: a Gateway failure leaves the
// subscription verified with InviteSent false so an operator can recover.
func (c *Coordinator) VerifyPayment(ctx context.Context, subscriptionID int64) (*Verification, error) {
	sub, plan, err := c.store.GetSubscriptionWithPlan(subscriptionID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if err := c.store.MarkPaymentVerified(sub.ID); err != nil {
		return nil, err
	}
	sub.PaymentVerified = true
	sub.IsActive = true

	v := &Verification{Subscription: sub, Plan: plan}
	invite, err := c.gateway.CreateInvite(ctx, plan.ChannelID, 1, sub.ExpiresAt,
		fmt.Sprintf("sub-%d", sub.ID))
	if err != nil {
		log.Printf("Subscription %d: invite creation failed: %v", sub.ID, err)
		return v, nil
	}
	if err := c.store.SetSubscriptionInvite(sub.ID, invite); err != nil {
		log.Printf("Subscription %d: failed to store invite link: %v", sub.ID, err)
	}
	v.InviteLink = invite
	v.InviteSent = true
	return v, nil
}
