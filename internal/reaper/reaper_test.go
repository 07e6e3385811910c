package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot/models"
)

type fakeStore struct {
	uses    []types.ExpiredUse
	usesErr error
	subs    []types.Subscription
	plans   []types.SubscriptionPlan

	markedUses  []int64
	markErr     error
	expiredSubs []int64
}

func (s *fakeStore) ExpiredFreeLinkUses() ([]types.ExpiredUse, error) {
	return s.uses, s.usesErr
}

func (s *fakeStore) MarkFreeLinkUseExpired(useID int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markedUses = append(s.markedUses, useID)
	return nil
}

func (s *fakeStore) ExpiredSubscriptions() ([]types.Subscription, error) {
	return s.subs, nil
}

func (s *fakeStore) ExpireSubscription(subID int64) error {
	s.expiredSubs = append(s.expiredSubs, subID)
	return nil
}

func (s *fakeStore) ListActivePlans() ([]types.SubscriptionPlan, error) {
	return s.plans, nil
}

type kick struct {
	channelID int64
	userID    int64
}

type fakeGateway struct {
	removeErr error
	removed   []kick
	unbanned  []kick
}

func (g *fakeGateway) RemoveMember(ctx context.Context, channelID, userID int64) error {
	if g.removeErr != nil {
		return g.removeErr
	}
	g.removed = append(g.removed, kick{channelID, userID})
	return nil
}

func (g *fakeGateway) UnbanMember(ctx context.Context, channelID, userID int64) error {
	g.unbanned = append(g.unbanned, kick{channelID, userID})
	return nil
}

type fakeNotifier struct {
	texts      []int64
	planOffers []int64
}

func (n *fakeNotifier) SendText(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	n.texts = append(n.texts, chatID)
	return nil
}

func (n *fakeNotifier) SendPlanOffer(ctx context.Context, chatID int64, plans []types.SubscriptionPlan) error {
	n.planOffers = append(n.planOffers, chatID)
	return nil
}

func expiredUse(useID, userID, channelID int64) types.ExpiredUse {
	return types.ExpiredUse{
		Use:       types.FreeLinkUse{ID: useID, FreeLinkID: 1, UserID: userID, ExpiresAt: time.Now().Add(-time.Hour)},
		ChannelID: channelID,
		LinkName:  "Promo",
	}
}

func TestSweepRevokesExpiredTrials(t *testing.T) {
	store := &fakeStore{
		uses:  []types.ExpiredUse{expiredUse(1, 100, -500), expiredUse(2, 200, -500)},
		plans: []types.SubscriptionPlan{{ID: 1, Name: "Monthly", IsActive: true}},
	}
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	r := New(store, gw, n, Config{})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(gw.removed) != 2 || len(gw.unbanned) != 2 {
		t.Errorf("removed=%d unbanned=%d, want 2 each", len(gw.removed), len(gw.unbanned))
	}
	if gw.removed[0] != (kick{-500, 100}) {
		t.Errorf("first kick = %+v, want channel -500 user 100", gw.removed[0])
	}
	if len(store.markedUses) != 2 {
		t.Errorf("marked uses = %v, want both", store.markedUses)
	}
	if len(n.texts) != 2 || len(n.planOffers) != 2 {
		t.Errorf("texts=%d offers=%d, want 2 each", len(n.texts), len(n.planOffers))
	}
}

func TestSweepMarksExpiredEvenWhenKickFails(t *testing.T) {
	store := &fakeStore{uses: []types.ExpiredUse{expiredUse(1, 100, -500)}}
	gw := &fakeGateway{removeErr: errors.New("telegram: 403")}
	r := New(store, gw, &fakeNotifier{}, Config{})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(store.markedUses) != 1 {
		t.Error("use not marked expired after a failed kick")
	}
	if len(gw.unbanned) != 0 {
		t.Error("unban attempted after a failed kick")
	}
}

func TestSweepListFailurePropagates(t *testing.T) {
	store := &fakeStore{usesErr: errors.New("pg down")}
	r := New(store, &fakeGateway{}, &fakeNotifier{}, Config{})

	if err := r.Sweep(context.Background()); err == nil {
		t.Fatal("Sweep returned nil when listing failed")
	}
}

func TestSweepExpiresSubscriptionsWithoutKicking(t *testing.T) {
	store := &fakeStore{
		subs: []types.Subscription{{ID: 9, UserID: 100, ExpiresAt: time.Now().Add(-time.Hour)}},
	}
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	r := New(store, gw, n, Config{})

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(store.expiredSubs) != 1 || store.expiredSubs[0] != 9 {
		t.Errorf("expired subs = %v, want [9]", store.expiredSubs)
	}
	if len(gw.removed) != 0 {
		t.Error("subscription expiry kicked a paid member")
	}
	if len(n.texts) != 1 || n.texts[0] != 100 {
		t.Errorf("notices = %v, want [100]", n.texts)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	store := &fakeStore{}
	r := New(store, &fakeGateway{}, &fakeNotifier{}, Config{Interval: time.Hour, Retry: time.Minute})

	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
