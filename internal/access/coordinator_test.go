package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

type fakeAccessStore struct {
	types.AccessStore

	links map[string]*types.FreeLink
	used  map[int64]map[int64]bool
	plans map[int64]*types.SubscriptionPlan

	subs      map[int64]*types.Subscription
	nextSubID int64

	redeemCalls int
	invites     map[int64]string
}

func newFakeAccessStore() *fakeAccessStore {
	return &fakeAccessStore{
		links:     map[string]*types.FreeLink{},
		used:      map[int64]map[int64]bool{},
		plans:     map[int64]*types.SubscriptionPlan{},
		subs:      map[int64]*types.Subscription{},
		invites:   map[int64]string{},
		nextSubID: 1,
	}
}

func (s *fakeAccessStore) GetFreeLinkByKey(key string) (*types.FreeLink, error) {
	link, ok := s.links[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	return link, nil
}

func (s *fakeAccessStore) HasFreeLinkUse(linkID, userID int64) (bool, error) {
	return s.used[linkID][userID], nil
}

func (s *fakeAccessStore) RedeemFreeLink(linkID, userID int64, expiresAt time.Time) (*types.FreeLinkUse, error) {
	s.redeemCalls++
	if s.used[linkID] == nil {
		s.used[linkID] = map[int64]bool{}
	}
	if s.used[linkID][userID] {
		return nil, types.ErrLinkAlreadyUsed
	}
	s.used[linkID][userID] = true
	return &types.FreeLinkUse{ID: 1, FreeLinkID: linkID, UserID: userID, ExpiresAt: expiresAt}, nil
}

func (s *fakeAccessStore) GetPlan(planID int64) (*types.SubscriptionPlan, error) {
	plan, ok := s.plans[planID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return plan, nil
}

func (s *fakeAccessStore) CreateSubscription(sub *types.Subscription) (int64, error) {
	id := s.nextSubID
	s.nextSubID++
	sub.ID = id
	s.subs[id] = sub
	return id, nil
}

func (s *fakeAccessStore) GetSubscriptionWithPlan(subID int64) (*types.Subscription, *types.SubscriptionPlan, error) {
	sub, ok := s.subs[subID]
	if !ok {
		return nil, nil, types.ErrNotFound
	}
	return sub, s.plans[sub.PlanID], nil
}

func (s *fakeAccessStore) MarkPaymentVerified(subID int64) error {
	s.subs[subID].PaymentVerified = true
	s.subs[subID].IsActive = true
	return nil
}

func (s *fakeAccessStore) SetSubscriptionInvite(subID int64, invite string) error {
	s.invites[subID] = invite
	return nil
}

type fakeUserStore struct {
	types.UserStore
	users map[int64]*types.User
}

func (s *fakeUserStore) GetUser(userID int64) (*types.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return u, nil
}

type fakeFunnelResolver struct {
	funnels map[string]*types.Funnel
}

func (r *fakeFunnelResolver) GetActiveFunnelByKey(key string) (*types.Funnel, error) {
	f, ok := r.funnels[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	return f, nil
}

type fakeGateway struct {
	invite  string
	err     error
	created int
}

func (g *fakeGateway) CreateInvite(ctx context.Context, channelID int64, memberLimit int, expireAt time.Time, name string) (string, error) {
	g.created++
	if g.err != nil {
		return "", g.err
	}
	return g.invite, nil
}

func testLink() *types.FreeLink {
	return &types.FreeLink{
		ID:                1,
		Key:               "promo",
		Name:              "Promo",
		ChannelID:         -100123,
		ChannelInviteLink: "https://t.me/+durable",
		MaxUses:           10,
		DurationDays:      3,
		IsActive:          true,
	}
}

func newTestCoordinator(store *fakeAccessStore, users *fakeUserStore, funnels *fakeFunnelResolver, gw *fakeGateway) *Coordinator {
	if users == nil {
		users = &fakeUserStore{users: map[int64]*types.User{
			100: {UserID: 100, Phone: "+998901234567"},
		}}
	}
	if funnels == nil {
		funnels = &fakeFunnelResolver{funnels: map[string]*types.Funnel{}}
	}
	return NewCoordinator(store, users, funnels, gw, time.Hour)
}

func TestResolveEntryKeyPrefersFreeLink(t *testing.T) {
	store := newFakeAccessStore()
	store.links["promo"] = testLink()
	funnels := &fakeFunnelResolver{funnels: map[string]*types.Funnel{
		"promo": {ID: 7, Key: "promo", IsActive: true},
	}}
	c := newTestCoordinator(store, nil, funnels, &fakeGateway{})

	entry, err := c.ResolveEntryKey("promo")
	if err != nil {
		t.Fatalf("ResolveEntryKey: %v", err)
	}
	if entry.Kind != EntryFreeLink || entry.Link == nil {
		t.Errorf("entry = %+v, want free link", entry)
	}
}

func TestResolveEntryKeyFallsBackToFunnel(t *testing.T) {
	store := newFakeAccessStore()
	funnels := &fakeFunnelResolver{funnels: map[string]*types.Funnel{
		"course": {ID: 7, Key: "course", IsActive: true},
	}}
	c := newTestCoordinator(store, nil, funnels, &fakeGateway{})

	entry, err := c.ResolveEntryKey("course")
	if err != nil {
		t.Fatalf("ResolveEntryKey: %v", err)
	}
	if entry.Kind != EntryFunnel || entry.Funnel == nil {
		t.Errorf("entry = %+v, want funnel", entry)
	}

	if _, err := c.ResolveEntryKey("ghost"); !errors.Is(err, ErrKeyUnresolved) {
		t.Errorf("unknown key err = %v, want ErrKeyUnresolved", err)
	}
}

func TestCheckRedeemableOrder(t *testing.T) {
	store := newFakeAccessStore()
	users := &fakeUserStore{users: map[int64]*types.User{}}
	c := newTestCoordinator(store, users, nil, &fakeGateway{})

	inactive := testLink()
	inactive.IsActive = false
	// Inactive wins even when the limit is also exhausted.
	inactive.CurrentUses = inactive.MaxUses
	if err := c.CheckRedeemable(inactive, 100); !errors.Is(err, types.ErrLinkInactive) {
		t.Errorf("inactive link err = %v, want ErrLinkInactive", err)
	}

	full := testLink()
	full.CurrentUses = full.MaxUses
	if err := c.CheckRedeemable(full, 100); !errors.Is(err, types.ErrLinkLimitReached) {
		t.Errorf("full link err = %v, want ErrLinkLimitReached", err)
	}

	link := testLink()
	store.used[link.ID] = map[int64]bool{100: true}
	if err := c.CheckRedeemable(link, 100); !errors.Is(err, types.ErrLinkAlreadyUsed) {
		t.Errorf("reused link err = %v, want ErrLinkAlreadyUsed", err)
	}

	store.used[link.ID] = nil
	if err := c.CheckRedeemable(link, 100); !errors.Is(err, ErrPhoneRequired) {
		t.Errorf("no phone err = %v, want ErrPhoneRequired", err)
	}

	users.users[100] = &types.User{UserID: 100, Phone: "+998901234567"}
	if err := c.CheckRedeemable(link, 100); err != nil {
		t.Errorf("eligible user err = %v, want nil", err)
	}
}

func TestCheckRedeemableUnlimitedUses(t *testing.T) {
	store := newFakeAccessStore()
	c := newTestCoordinator(store, nil, nil, &fakeGateway{})

	link := testLink()
	link.MaxUses = types.UnlimitedUses
	link.CurrentUses = 100000
	if err := c.CheckRedeemable(link, 100); err != nil {
		t.Errorf("unlimited link err = %v, want nil", err)
	}
}

func TestRedeemFreeLinkIssuesPersonalInvite(t *testing.T) {
	store := newFakeAccessStore()
	gw := &fakeGateway{invite: "https://t.me/+personal"}
	c := newTestCoordinator(store, nil, nil, gw)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	link := testLink()
	grant, err := c.RedeemFreeLink(context.Background(), link, 100)
	if err != nil {
		t.Fatalf("RedeemFreeLink: %v", err)
	}
	if grant.InviteLink != "https://t.me/+personal" || grant.Degraded {
		t.Errorf("grant = %+v, want personal invite", grant)
	}
	want := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	if !grant.Use.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", grant.Use.ExpiresAt, want)
	}
	if store.redeemCalls != 1 {
		t.Errorf("redeem calls = %d, want 1", store.redeemCalls)
	}
}

func TestRedeemFreeLinkFallsBackOnInviteFailure(t *testing.T) {
	store := newFakeAccessStore()
	gw := &fakeGateway{err: errors.New("telegram: 500")}
	c := newTestCoordinator(store, nil, nil, gw)

	grant, err := c.RedeemFreeLink(context.Background(), testLink(), 100)
	if err != nil {
		t.Fatalf("RedeemFreeLink: %v", err)
	}
	if !grant.Degraded {
		t.Error("grant not marked degraded")
	}
	if grant.InviteLink != "https://t.me/+durable" {
		t.Errorf("invite = %q, want durable fallback", grant.InviteLink)
	}
	if !store.used[1][100] {
		t.Error("use not recorded despite grant standing")
	}
}

func TestRedeemFreeLinkSecondAttemptRejected(t *testing.T) {
	store := newFakeAccessStore()
	c := newTestCoordinator(store, nil, nil, &fakeGateway{invite: "x"})

	if _, err := c.RedeemFreeLink(context.Background(), testLink(), 100); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	_, err := c.RedeemFreeLink(context.Background(), testLink(), 100)
	if !errors.Is(err, types.ErrLinkAlreadyUsed) {
		t.Errorf("second redemption err = %v, want ErrLinkAlreadyUsed", err)
	}
}

func TestStartCheckout(t *testing.T) {
	store := newFakeAccessStore()
	store.plans[5] = &types.SubscriptionPlan{ID: 5, Name: "Monthly", DurationDays: 30, ChannelID: -100123, IsActive: true}
	c := newTestCoordinator(store, nil, nil, &fakeGateway{})
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	out, err := c.StartCheckout(100, 5)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	sub := store.subs[out.SubscriptionID]
	if sub == nil {
		t.Fatal("no subscription stored")
	}
	if sub.PaymentVerified {
		t.Errorf("new subscription = %+v, want payment not yet verified", sub)
	}
	want := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if !sub.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", sub.ExpiresAt, want)
	}

	if _, err := c.StartCheckout(100, 99); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("unknown plan err = %v, want ErrPlanNotFound", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	store := newFakeAccessStore()
	store.plans[5] = &types.SubscriptionPlan{ID: 5, Name: "Monthly", DurationDays: 30, ChannelID: -100123, IsActive: true}
	gw := &fakeGateway{invite: "https://t.me/+sub"}
	c := newTestCoordinator(store, nil, nil, gw)

	out, err := c.StartCheckout(100, 5)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}

	v, err := c.VerifyPayment(context.Background(), out.SubscriptionID)
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if !v.InviteSent || v.InviteLink != "https://t.me/+sub" {
		t.Errorf("verification = %+v, want invite sent", v)
	}
	if !store.subs[out.SubscriptionID].PaymentVerified {
		t.Error("payment not persisted as verified")
	}
	if store.invites[out.SubscriptionID] != "https://t.me/+sub" {
		t.Error("invite link not stored on the subscription")
	}
}

func TestVerifyPaymentSurvivesGatewayFailure(t *testing.T) {
	store := newFakeAccessStore()
	store.plans[5] = &types.SubscriptionPlan{ID: 5, Name: "Monthly", DurationDays: 30, ChannelID: -100123, IsActive: true}
	gw := &fakeGateway{err: errors.New("telegram: timeout")}
	c := newTestCoordinator(store, nil, nil, gw)

	out, err := c.StartCheckout(100, 5)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}

	v, err := c.VerifyPayment(context.Background(), out.SubscriptionID)
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if v.InviteSent {
		t.Error("verification claims invite sent despite gateway failure")
	}
	if !store.subs[out.SubscriptionID].PaymentVerified {
		t.Error("payment verification lost on gateway failure")
	}

	if _, err := c.VerifyPayment(context.Background(), 999); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("unknown subscription err = %v, want ErrSubscriptionNotFound", err)
	}
}
