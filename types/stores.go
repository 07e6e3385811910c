package types

import "time"

type UserStore interface {
	UpsertUser(user User) error
	GetUser(userID int64) (*User, error)
	SetPhone(userID int64, phone string) error
	ListUserIDs() ([]int64, error)
	CountUsers() (int, error)
}

type FunnelStore interface {
	GetActiveFunnelByKey(key string) (*Funnel, error)
	GetFunnelSteps(funnelID int64) ([]FunnelStep, error)

	// GetOrCreateRun returns the single incomplete run for (user, funnel),
	// creating it when none exists. Uniqueness is enforced by the storage
	// layer, not by this call sequence.
	GetOrCreateRun(userID, funnelID int64) (*FunnelRun, error)
	GetIncompleteRun(userID int64) (*FunnelRun, error)
	UpdateRunProgress(runID int64, currentStep int, stats StepStats) error
	CompleteRun(runID int64, completedAt time.Time, stats StepStats) error

	CreateFunnel(funnel *Funnel, steps []DraftStep) (int64, error)
	ListFunnels() ([]Funnel, error)
	SetFunnelActive(funnelID int64, active bool) error
	DeleteFunnel(funnelID int64) error
}

type AccessStore interface {
	GetFreeLinkByKey(key string) (*FreeLink, error)
	HasFreeLinkUse(linkID, userID int64) (bool, error)

	// RedeemFreeLink re-checks eligibility under a row lock, records the use
	// and increments the redemption counter in one transaction.
	RedeemFreeLink(linkID, userID int64, expiresAt time.Time) (*FreeLinkUse, error)

	CreateFreeLink(link *FreeLink) (int64, error)
	ListFreeLinks() ([]FreeLink, error)
	SetFreeLinkActive(linkID int64, active bool) error
	DeleteFreeLink(linkID int64) error

	ExpiredFreeLinkUses() ([]ExpiredUse, error)
	MarkFreeLinkUseExpired(useID int64) error

	GetPlan(planID int64) (*SubscriptionPlan, error)
	ListActivePlans() ([]SubscriptionPlan, error)
	CreatePlan(plan *SubscriptionPlan) (int64, error)

	CreateSubscription(sub *Subscription) (int64, error)
	GetSubscriptionWithPlan(subID int64) (*Subscription, *SubscriptionPlan, error)
	MarkPaymentVerified(subID int64) error
	SetSubscriptionInvite(subID int64, invite string) error

	ExpiredSubscriptions() ([]Subscription, error)
	ExpireSubscription(subID int64) error

	SubscriptionStats() (total, active, verified int, err error)
}
