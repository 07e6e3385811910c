package types

import (
	"time"
)

// ContentKind is the closed set of step content types a funnel can deliver.
type ContentKind string

const (
	KindText     ContentKind = "text"
	KindPhoto    ContentKind = "photo"
	KindVideo    ContentKind = "video"
	KindAudio    ContentKind = "audio"
	KindDocument ContentKind = "document"
)

func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindPhoto, KindVideo, KindAudio, KindDocument:
		return true
	}
	return false
}

type Funnel struct {
	ID          int64
	Name        string
	Key         string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FunnelStep struct {
	ID         int64
	FunnelID   int64
	StepNumber int // 1-based, strictly increasing within a funnel
	Kind       ContentKind
	Content    string // file id for media kinds, message text for KindText
	Caption    string
	ButtonText string
}

// StepStat is the stored engagement record for a single step. The JSON shape
// is a compatibility contract with existing rows: start_time is ISO-8601,
// view_time is seconds.
type StepStat struct {
	StartTime string  `json:"start_time"`
	ViewTime  float64 `json:"view_time"`
	Completed bool    `json:"completed"`
}

// StepStats maps the string form of a step index to its engagement record.
type StepStats map[string]StepStat

// Clone returns a copy safe to mutate without aliasing stored state.
func (s StepStats) Clone() StepStats {
	out := make(StepStats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type FunnelRun struct {
	ID          int64
	UserID      int64
	FunnelID    int64
	CurrentStep int
	Completed   bool
	StartedAt   time.Time
	CompletedAt *time.Time
	StepStats   StepStats
}
