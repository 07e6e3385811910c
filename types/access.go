package types

import "time"

// UnlimitedUses is the sentinel for a free link without a redemption cap.
const UnlimitedUses = -1

type FreeLink struct {
	ID                int64
	Key               string
	Name              string
	ChannelID         int64
	ChannelInviteLink string // durable fallback invite to the channel
	MaxUses           int
	CurrentUses       int
	DurationDays      int
	IsActive          bool
	CreatedBy         int64
	CreatedAt         time.Time
}

type FreeLinkUse struct {
	ID         int64
	FreeLinkID int64
	UserID     int64
	ExpiresAt  time.Time
	Expired    bool
	CreatedAt  time.Time
}

// ExpiredUse is a free link use past its grant expiry, joined with the
// channel it granted access to.
type ExpiredUse struct {
	Use       FreeLinkUse
	ChannelID int64
	LinkName  string
}

type SubscriptionPlan struct {
	ID           int64
	Name         string
	DurationDays int
	PriceUSD     float64
	PriceUZS     int64
	ChannelID    int64
	IsActive     bool
	CreatedAt    time.Time
}

type Subscription struct {
	ID              int64
	UserID          int64
	PlanID          int64
	IsActive        bool
	ExpiresAt       time.Time
	InviteLink      string
	PaymentVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type User struct {
	UserID    int64
	ChatID    int64
	FullName  string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
