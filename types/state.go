package types

// ConvStage marks where a multi-message conversation currently is.
type ConvStage string

const (
	StageNone ConvStage = ""

	// User side: waiting for a shared contact before a free link grant.
	StageAwaitPhone ConvStage = "await_phone"

	// Operator: funnel builder.
	StageAwaitFunnelKey   ConvStage = "await_funnel_key"
	StageAwaitFunnelName  ConvStage = "await_funnel_name"
	StageAwaitFunnelSteps ConvStage = "await_funnel_steps"

	// Operator: free link creation.
	StageAwaitLinkKey      ConvStage = "await_link_key"
	StageAwaitLinkName     ConvStage = "await_link_name"
	StageAwaitLinkChannel  ConvStage = "await_link_channel"
	StageAwaitLinkInvite   ConvStage = "await_link_invite"
	StageAwaitLinkMaxUses  ConvStage = "await_link_max_uses"
	StageAwaitLinkDuration ConvStage = "await_link_duration"

	// Operator: subscription plan creation.
	StageAwaitPlanName     ConvStage = "await_plan_name"
	StageAwaitPlanDuration ConvStage = "await_plan_duration"
	StageAwaitPlanPriceUSD ConvStage = "await_plan_price_usd"
	StageAwaitPlanPriceUZS ConvStage = "await_plan_price_uzs"
	StageAwaitPlanChannel  ConvStage = "await_plan_channel"

	// Operator: next message is broadcast to all users.
	StageAwaitBroadcast ConvStage = "await_broadcast"
)

// DraftStep is one step accumulated by the funnel builder before persisting.
type DraftStep struct {
	Kind       ContentKind `json:"kind"`
	Content    string      `json:"content"`
	Caption    string      `json:"caption,omitempty"`
	ButtonText string      `json:"button_text,omitempty"`
}

// FunnelBuilder holds an operator's in-progress funnel. It lives only in
// conversation state and is persisted as a funnel on an explicit /done.
type FunnelBuilder struct {
	SessionID string      `json:"session_id"`
	Key       string      `json:"key"`
	Name      string      `json:"name"`
	Steps     []DraftStep `json:"steps"`
}

type FreeLinkDraft struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	ChannelID  int64  `json:"channel_id"`
	InviteLink string `json:"invite_link"`
	MaxUses    int    `json:"max_uses"`
}

type PlanDraft struct {
	Name         string  `json:"name"`
	DurationDays int     `json:"duration_days"`
	PriceUSD     float64 `json:"price_usd"`
	PriceUZS     int64   `json:"price_uzs"`
}

// ConvState is the per-user conversation state kept in redis with a TTL.
type ConvState struct {
	Stage              ConvStage      `json:"stage"`
	PendingFreeLinkKey string         `json:"pending_free_link_key,omitempty"`
	Builder            *FunnelBuilder `json:"builder,omitempty"`
	LinkDraft          *FreeLinkDraft `json:"link_draft,omitempty"`
	PlanDraft          *PlanDraft     `json:"plan_draft,omitempty"`
}

// StateStore keeps transient conversation state between updates.
type StateStore interface {
	GetState(userID int64) (*ConvState, error)
	SetState(userID int64, state *ConvState) error
	ClearState(userID int64) error
}
