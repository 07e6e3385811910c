package reaper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot/models"
)

// Store is the expiry surface of the access store.
type Store interface {
	ExpiredFreeLinkUses() ([]types.ExpiredUse, error)
	MarkFreeLinkUseExpired(useID int64) error
	ExpiredSubscriptions() ([]types.Subscription, error)
	ExpireSubscription(subID int64) error
	ListActivePlans() ([]types.SubscriptionPlan, error)
}

// Gateway removes members from channels. Kick then unban so the user can
// come back later through a new invite.
type Gateway interface {
	RemoveMember(ctx context.Context, channelID, userID int64) error
	UnbanMember(ctx context.Context, channelID, userID int64) error
}

// Notifier sends the expiry notices.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error
	SendPlanOffer(ctx context.Context, chatID int64, plans []types.SubscriptionPlan) error
}

type Config struct {
	// Interval between sweeps; Retry is used instead after a sweep that
	// failed to even list its candidates.
	Interval time.Duration
	Retry    time.Duration
}

// Reaper periodically revokes expired trial access and deactivates expired
// subscriptions. Trial users are kicked from the channel; paid users only
// lose their invite link validity and get a renewal notice.
type Reaper struct {
	store    Store
	gateway  Gateway
	notifier Notifier
	interval time.Duration
	retry    time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func New(store Store, gateway Gateway, notifier Notifier, cfg Config) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reaper{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		interval: cfg.Interval,
		retry:    cfg.Retry,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *Reaper) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	log.Printf("Reaper started, interval=%s retry=%s", r.interval, r.retry)

	r.wg.Add(1)
	go r.loop()
}

func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	log.Println("Stopping reaper...")
	r.cancel()
	r.wg.Wait()
	log.Println("Reaper stopped")
}

func (r *Reaper) loop() {
	defer r.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
		}

		next := r.interval
		if err := r.Sweep(r.ctx); err != nil {
			log.Printf("Reaper sweep failed: %v", err)
			next = r.retry
		}
		timer.Reset(next)
	}
}

// Sweep processes every due trial use and subscription once. Per-item
// failures are logged and skipped; the returned error only reflects the
// inability to list candidates, which shortens the next wait.
func (r *Reaper) Sweep(ctx context.Context) error {
	if err := r.sweepFreeLinkUses(ctx); err != nil {
		return err
	}
	return r.sweepSubscriptions(ctx)
}

func (r *Reaper) sweepFreeLinkUses(ctx context.Context) error {
	uses, err := r.store.ExpiredFreeLinkUses()
	if err != nil {
		return err
	}

	for _, eu := range uses {
		// Removal first; the record is marked expired even when the kick
		// fails so the grant cannot resurrect on the next sweep.
		if err := r.gateway.RemoveMember(ctx, eu.ChannelID, eu.Use.UserID); err != nil {
			log.Printf("Reaper: failed to remove user %d from channel %d: %v", eu.Use.UserID, eu.ChannelID, err)
		} else if err := r.gateway.UnbanMember(ctx, eu.ChannelID, eu.Use.UserID); err != nil {
			log.Printf("Reaper: failed to unban user %d in channel %d: %v", eu.Use.UserID, eu.ChannelID, err)
		}

		if err := r.store.MarkFreeLinkUseExpired(eu.Use.ID); err != nil {
			log.Printf("Reaper: failed to mark use %d expired: %v", eu.Use.ID, err)
			continue
		}

		r.notifyTrialExpired(ctx, eu)
	}
	return nil
}

func (r *Reaper) notifyTrialExpired(ctx context.Context, eu types.ExpiredUse) {
	if err := r.notifier.SendText(ctx, eu.Use.UserID, messages.TrialExpired(eu.LinkName), nil); err != nil {
		log.Printf("Reaper: failed to notify user %d about trial expiry: %v", eu.Use.UserID, err)
		return
	}
	plans, err := r.store.ListActivePlans()
	if err != nil || len(plans) == 0 {
		return
	}
	if err := r.notifier.SendPlanOffer(ctx, eu.Use.UserID, plans); err != nil {
		log.Printf("Reaper: failed to send plan offer to user %d: %v", eu.Use.UserID, err)
	}
}

func (r *Reaper) sweepSubscriptions(ctx context.Context) error {
	subs, err := r.store.ExpiredSubscriptions()
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if err := r.store.ExpireSubscription(sub.ID); err != nil {
			log.Printf("Reaper: failed to expire subscription %d: %v", sub.ID, err)
			continue
		}
		// Paid members are not kicked: their personal invite carried its own
		// expiry and renewal is a new checkout.
		if err := r.notifier.SendText(ctx, sub.UserID, messages.SubscriptionExpired(), nil); err != nil {
			log.Printf("Reaper: failed to notify user %d about subscription expiry: %v", sub.UserID, err)
		}
	}
	return nil
}
