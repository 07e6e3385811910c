package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot/models"
)

type fakeStore struct {
	funnel *types.Funnel
	steps  []types.FunnelStep
	run    *types.FunnelRun

	progressCalls int
	completeCalls int
}

func (s *fakeStore) GetActiveFunnelByKey(key string) (*types.Funnel, error) {
	if s.funnel == nil || s.funnel.Key != key {
		return nil, types.ErrNotFound
	}
	return s.funnel, nil
}

func (s *fakeStore) GetFunnelSteps(funnelID int64) ([]types.FunnelStep, error) {
	return s.steps, nil
}

func (s *fakeStore) GetOrCreateRun(userID, funnelID int64) (*types.FunnelRun, error) {
	if s.run != nil && !s.run.Completed {
		return s.run, nil
	}
	s.run = &types.FunnelRun{
		ID:        1,
		UserID:    userID,
		FunnelID:  funnelID,
		StartedAt: time.Now(),
		StepStats: types.StepStats{},
	}
	return s.run, nil
}

func (s *fakeStore) GetIncompleteRun(userID int64) (*types.FunnelRun, error) {
	if s.run == nil || s.run.Completed {
		return nil, types.ErrNotFound
	}
	return s.run, nil
}

func (s *fakeStore) UpdateRunProgress(runID int64, currentStep int, stats types.StepStats) error {
	s.progressCalls++
	s.run.CurrentStep = currentStep
	s.run.StepStats = stats
	return nil
}

func (s *fakeStore) CompleteRun(runID int64, completedAt time.Time, stats types.StepStats) error {
	s.completeCalls++
	s.run.Completed = true
	s.run.CompletedAt = &completedAt
	s.run.StepStats = stats
	return nil
}

type fakePlans struct {
	plans []types.SubscriptionPlan
}

func (p *fakePlans) ListActivePlans() ([]types.SubscriptionPlan, error) {
	return p.plans, nil
}

type sentMessage struct {
	kind   string
	chatID int64
	text   string
	kb     *models.InlineKeyboardMarkup
}

type fakeSender struct {
	sent       []sentMessage
	planOffers int
}

func (s *fakeSender) record(kind string, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	s.sent = append(s.sent, sentMessage{kind: kind, chatID: chatID, text: text, kb: kb})
	return nil
}

func (s *fakeSender) SendText(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	return s.record("text", chatID, text, kb)
}

func (s *fakeSender) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	return s.record("photo", chatID, fileID, kb)
}

func (s *fakeSender) SendVideo(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	return s.record("video", chatID, fileID, kb)
}

func (s *fakeSender) SendAudio(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	return s.record("audio", chatID, fileID, kb)
}

func (s *fakeSender) SendDocument(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	return s.record("document", chatID, fileID, kb)
}

func (s *fakeSender) SendPlanOffer(ctx context.Context, chatID int64, plans []types.SubscriptionPlan) error {
	s.planOffers++
	return nil
}

func threeStepFunnel() (*types.Funnel, []types.FunnelStep) {
	f := &types.Funnel{ID: 10, Key: "trading", Name: "Trading", IsActive: true}
	steps := []types.FunnelStep{
		{ID: 1, FunnelID: 10, StepNumber: 1, Kind: types.KindText, Content: "intro"},
		{ID: 2, FunnelID: 10, StepNumber: 2, Kind: types.KindPhoto, Content: "photo-id", Caption: "chart"},
		{ID: 3, FunnelID: 10, StepNumber: 3, Kind: types.KindVideo, Content: "video-id"},
	}
	return f, steps
}

func newTestEngine(store *fakeStore, plans *fakePlans, sender *fakeSender) *Engine {
	e := NewEngine(store, plans, sender)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestStartDeliversFirstStep(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	sender := &fakeSender{}
	e := newTestEngine(store, &fakePlans{}, sender)

	run, err := e.Start(context.Background(), 100, 100, "trading")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.CurrentStep != 0 {
		t.Errorf("current step = %d, want 0", run.CurrentStep)
	}
	stat, ok := run.StepStats["0"]
	if !ok {
		t.Fatal("no stats entry for step 0")
	}
	if stat.Completed || stat.ViewTime != 0 {
		t.Errorf("fresh entry = %+v, want zero view time and not completed", stat)
	}
	if len(sender.sent) != 1 || sender.sent[0].kind != "text" {
		t.Fatalf("sent = %+v, want one text message", sender.sent)
	}
	if sender.sent[0].kb == nil {
		t.Fatal("step message has no advance keyboard")
	}
	if got := sender.sent[0].kb.InlineKeyboard[0][0].CallbackData; got != "fstep_1" {
		t.Errorf("callback = %q, want fstep_1", got)
	}
}

func TestStartUnknownKey(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	e := newTestEngine(store, &fakePlans{}, &fakeSender{})

	_, err := e.Start(context.Background(), 100, 100, "nope")
	if !errors.Is(err, ErrFunnelNotFound) {
		t.Errorf("err = %v, want ErrFunnelNotFound", err)
	}
}

func TestStartEmptyFunnel(t *testing.T) {
	f, _ := threeStepFunnel()
	store := &fakeStore{funnel: f}
	e := newTestEngine(store, &fakePlans{}, &fakeSender{})

	_, err := e.Start(context.Background(), 100, 100, "trading")
	if !errors.Is(err, ErrEmptyFunnel) {
		t.Errorf("err = %v, want ErrEmptyFunnel", err)
	}
}

func TestStartReusesIncompleteRun(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	sender := &fakeSender{}
	e := newTestEngine(store, &fakePlans{}, sender)

	ctx := context.Background()
	first, err := e.Start(ctx, 100, 100, "trading")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := e.Advance(ctx, 100, 100, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	second, err := e.Start(ctx, 100, 100, "trading")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second Start created run %d, want reuse of %d", second.ID, first.ID)
	}
	if !second.StepStats["0"].Completed {
		t.Error("restart reset progress for step 0")
	}
	if second.CurrentStep != 1 {
		t.Errorf("current step after restart = %d, want 1 preserved", second.CurrentStep)
	}
}

func TestAdvanceMarksPreviousAndDeliversNext(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	sender := &fakeSender{}
	e := newTestEngine(store, &fakePlans{}, sender)

	ctx := context.Background()
	if _, err := e.Start(ctx, 100, 100, "trading"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done, err := e.Advance(ctx, 100, 100, 1)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if done {
		t.Fatal("Advance to step 1 reported completion")
	}
	if !store.run.StepStats["0"].Completed {
		t.Error("step 0 not marked completed")
	}
	if stat, ok := store.run.StepStats["1"]; !ok || stat.Completed {
		t.Errorf("step 1 entry = %+v, %v; want fresh not-completed entry", stat, ok)
	}
	last := sender.sent[len(sender.sent)-1]
	if last.kind != "photo" {
		t.Errorf("delivered kind = %s, want photo", last.kind)
	}
	if got := last.kb.InlineKeyboard[0][0].CallbackData; got != "fstep_2" {
		t.Errorf("callback = %q, want fstep_2", got)
	}
}

func TestAdvanceAccumulatesViewTime(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	e := newTestEngine(store, &fakePlans{}, &fakeSender{})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	e.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := e.Start(ctx, 100, 100, "trading"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	current = base.Add(42 * time.Second)
	if _, err := e.Advance(ctx, 100, 100, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := store.run.StepStats["0"].ViewTime; got != 42 {
		t.Errorf("view time = %v, want 42", got)
	}
}

func TestAdvanceOutOfRange(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	e := newTestEngine(store, &fakePlans{}, &fakeSender{})

	ctx := context.Background()
	if _, err := e.Start(ctx, 100, 100, "trading"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Advance(ctx, 100, 100, 0); !errors.Is(err, ErrStepOutOfRange) {
		t.Errorf("requested 0: err = %v, want ErrStepOutOfRange", err)
	}
	if _, err := e.Advance(ctx, 100, 100, -3); !errors.Is(err, ErrStepOutOfRange) {
		t.Errorf("requested -3: err = %v, want ErrStepOutOfRange", err)
	}
}

func TestAdvanceNoActiveRun(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	e := newTestEngine(store, &fakePlans{}, &fakeSender{})

	_, err := e.Advance(context.Background(), 100, 100, 1)
	if !errors.Is(err, ErrNoActiveRun) {
		t.Errorf("err = %v, want ErrNoActiveRun", err)
	}
}

func TestAdvanceCompletesRunAndOffersPlans(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	sender := &fakeSender{}
	plans := &fakePlans{plans: []types.SubscriptionPlan{{ID: 1, Name: "Monthly", DurationDays: 30}}}
	e := newTestEngine(store, plans, sender)

	ctx := context.Background()
	if _, err := e.Start(ctx, 100, 100, "trading"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for step := 1; step < len(steps); step++ {
		if _, err := e.Advance(ctx, 100, 100, step); err != nil {
			t.Fatalf("Advance %d: %v", step, err)
		}
	}

	done, err := e.Advance(ctx, 100, 100, len(steps))
	if err != nil {
		t.Fatalf("final Advance: %v", err)
	}
	if !done {
		t.Fatal("final Advance did not report completion")
	}
	if !store.run.Completed || store.run.CompletedAt == nil {
		t.Error("run not marked completed")
	}
	if !store.run.StepStats["2"].Completed {
		t.Error("last step not marked completed")
	}
	if sender.planOffers != 1 {
		t.Errorf("plan offers sent = %d, want 1", sender.planOffers)
	}
	if store.completeCalls != 1 {
		t.Errorf("CompleteRun calls = %d, want 1", store.completeCalls)
	}
}

func TestAdvanceCompletionWithoutPlansSendsAck(t *testing.T) {
	f, steps := threeStepFunnel()
	store := &fakeStore{funnel: f, steps: steps}
	sender := &fakeSender{}
	e := newTestEngine(store, &fakePlans{}, sender)

	ctx := context.Background()
	if _, err := e.Start(ctx, 100, 100, "trading"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done, err := e.Advance(ctx, 100, 100, len(steps))
	if err != nil {
		t.Fatalf("Advance past end: %v", err)
	}
	if !done {
		t.Fatal("skipping to the end did not complete the run")
	}
	if sender.planOffers != 0 {
		t.Errorf("plan offers = %d, want 0", sender.planOffers)
	}
	last := sender.sent[len(sender.sent)-1]
	if last.kind != "text" || last.kb != nil {
		t.Errorf("completion ack = %+v, want plain text", last)
	}
}
