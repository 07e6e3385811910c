package funnel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot/models"
)

var (
	ErrFunnelNotFound = errors.New("no active funnel with this key")
	ErrEmptyFunnel    = errors.New("funnel has no steps")
	ErrNoActiveRun    = errors.New("no active funnel run")
	ErrStepOutOfRange = errors.New("step index out of range")
)

// Store is the slice of the funnel store the engine drives.
type Store interface {
	GetActiveFunnelByKey(key string) (*types.Funnel, error)
	GetFunnelSteps(funnelID int64) ([]types.FunnelStep, error)
	GetOrCreateRun(userID, funnelID int64) (*types.FunnelRun, error)
	GetIncompleteRun(userID int64) (*types.FunnelRun, error)
	UpdateRunProgress(runID int64, currentStep int, stats types.StepStats) error
	CompleteRun(runID int64, completedAt time.Time, stats types.StepStats) error
}

// PlanSource supplies the plans offered on funnel completion.
type PlanSource interface {
	ListActivePlans() ([]types.SubscriptionPlan, error)
}

// Sender delivers step content to the user. One method per content kind so
// the dispatch stays in a single exhaustive switch here.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error
	SendVideo(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error
	SendAudio(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error
	SendPlanOffer(ctx context.Context, chatID int64, plans []types.SubscriptionPlan) error
}

// Engine walks users through funnels one step at a time and keeps the
// per-step engagement map up to date.
type Engine struct {
	store  Store
	plans  PlanSource
	sender Sender
	locks  *userLocks
	now    func() time.Time
}

func NewEngine(store Store, plans PlanSource, sender Sender) *Engine {
	return &Engine{
		store:  store,
		plans:  plans,
		sender: sender,
		locks:  newUserLocks(),
		now:    time.Now,
	}
}

// Start resolves the funnel by key, creates or reuses the single incomplete
// run for this user and delivers step 0. Restarting mid-funnel returns the
// existing run without resetting progress.
func (e *Engine) Start(ctx context.Context, userID, chatID int64, key string) (*types.FunnelRun, error) {
	f, err := e.store.GetActiveFunnelByKey(key)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, ErrFunnelNotFound
		}
		return nil, err
	}

	steps, err := e.store.GetFunnelSteps(f.ID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrEmptyFunnel
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	run, err := e.store.GetOrCreateRun(userID, f.ID)
	if err != nil {
		return nil, err
	}

	stats := run.StepStats.Clone()
	e.ensureEntry(stats, 0)
	if err := e.store.UpdateRunProgress(run.ID, run.CurrentStep, stats); err != nil {
		return nil, err
	}
	run.StepStats = stats

	if err := e.deliverStep(ctx, chatID, steps, 0); err != nil {
		log.Printf("Funnel %s: failed to deliver step 0 to user %d: %v", f.Key, userID, err)
	}
	return run, nil
}

// Advance moves the user's run to the requested step. requested equal to the
// step count is the terminal transition: the run is completed and the
// subscription handoff fires.
func (e *Engine) Advance(ctx context.Context, userID, chatID int64, requested int) (completed bool, err error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	run, err := e.store.GetIncompleteRun(userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, ErrNoActiveRun
		}
		return false, err
	}

	steps, err := e.store.GetFunnelSteps(run.FunnelID)
	if err != nil {
		return false, err
	}

	if requested <= 0 {
		return false, ErrStepOutOfRange
	}

	stats := run.StepStats.Clone()
	e.markCompleted(stats, requested-1)

	if requested >= len(steps) {
		now := e.now()
		if err := e.store.CompleteRun(run.ID, now, stats); err != nil {
			return false, err
		}
		e.handoff(ctx, chatID)
		return true, nil
	}

	e.ensureEntry(stats, requested)
	if err := e.store.UpdateRunProgress(run.ID, requested, stats); err != nil {
		return false, err
	}

	if err := e.deliverStep(ctx, chatID, steps, requested); err != nil {
		log.Printf("Funnel run %d: failed to deliver step %d to user %d: %v", run.ID, requested, userID, err)
	}
	return false, nil
}

// ensureEntry records a fresh engagement entry for a newly visited step.
// Re-visits keep the accumulated view time.
func (e *Engine) ensureEntry(stats types.StepStats, index int) {
	key := strconv.Itoa(index)
	if _, ok := stats[key]; ok {
		return
	}
	stats[key] = types.StepStat{
		StartTime: e.now().UTC().Format(time.RFC3339),
		ViewTime:  0,
		Completed: false,
	}
}

// markCompleted flags the step as completed and folds the elapsed time since
// its entry into the accumulated view time.
func (e *Engine) markCompleted(stats types.StepStats, index int) {
	key := strconv.Itoa(index)
	stat, ok := stats[key]
	if !ok {
		stat = types.StepStat{StartTime: e.now().UTC().Format(time.RFC3339)}
	}
	if entered, err := time.Parse(time.RFC3339, stat.StartTime); err == nil {
		if elapsed := e.now().Sub(entered).Seconds(); elapsed > 0 {
			stat.ViewTime += elapsed
		}
	}
	stat.Completed = true
	stats[key] = stat
}

// deliverStep is the single dispatch point over content kinds.
func (e *Engine) deliverStep(ctx context.Context, chatID int64, steps []types.FunnelStep, index int) error {
	step := steps[index]
	kb := advanceKeyboard(step, index, len(steps))

	switch step.Kind {
	case types.KindText:
		return e.sender.SendText(ctx, chatID, step.Content, kb)
	case types.KindPhoto:
		return e.sender.SendPhoto(ctx, chatID, step.Content, step.Caption, kb)
	case types.KindVideo:
		return e.sender.SendVideo(ctx, chatID, step.Content, step.Caption, kb)
	case types.KindAudio:
		return e.sender.SendAudio(ctx, chatID, step.Content, step.Caption, kb)
	case types.KindDocument:
		return e.sender.SendDocument(ctx, chatID, step.Content, step.Caption, kb)
	default:
		return fmt.Errorf("unknown content kind %q", step.Kind)
	}
}

// advanceKeyboard attaches the advance affordance; the last step carries a
// completion label and targets the index one past the final step.
func advanceKeyboard(step types.FunnelStep, index, total int) *models.InlineKeyboardMarkup {
	label := step.ButtonText
	last := index == total-1
	if label == "" {
		label = messages.BtnNextDefault
		if last {
			label = messages.BtnFinishDefault
		}
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: label, CallbackData: fmt.Sprintf("fstep_%d", index+1)},
		}},
	}
}

func (e *Engine) handoff(ctx context.Context, chatID int64) {
	plans, err := e.plans.ListActivePlans()
	if err != nil {
		log.Printf("Completion handoff: failed to list plans: %v", err)
		plans = nil
	}
	if len(plans) > 0 {
		if err := e.sender.SendPlanOffer(ctx, chatID, plans); err != nil {
			log.Printf("Completion handoff: failed to send plan offer to chat %d: %v", chatID, err)
		}
		return
	}
	if err := e.sender.SendText(ctx, chatID, messages.FunnelCompleteNoPlans(), nil); err != nil {
		log.Printf("Completion handoff: failed to send ack to chat %d: %v", chatID, err)
	}
}
