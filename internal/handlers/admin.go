package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

func (bh *Handlers) sendAdminMenu(ctx context.Context, b *bot.Bot, chatID int64) {
	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "➕ Funnel", CallbackData: "admin_new_funnel"},
				{Text: "📂 Funnels", CallbackData: "admin_funnels"},
			},
			{
				{Text: "➕ Free link", CallbackData: "admin_new_link"},
				{Text: "🎁 Free links", CallbackData: "admin_links"},
			},
			{
				{Text: "➕ Plan", CallbackData: "admin_new_plan"},
				{Text: "💰 Plans", CallbackData: "admin_plans"},
			},
			{
				{Text: "📊 Stats", CallbackData: "admin_stats"},
				{Text: "👥 Users", CallbackData: "admin_users"},
			},
			{
				{Text: "🔊 Broadcast", CallbackData: "admin_broadcast"},
			},
		},
	}
	bh.replyWithKeyboard(ctx, b, chatID, messages.AdminWelcome(), kb)
}

func (bh *Handlers) startFunnelBuilder(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	bh.setState(userID, &types.ConvState{
		Stage:   types.StageAwaitFunnelKey,
		Builder: &types.FunnelBuilder{SessionID: uuid.New().String()},
	})
	bh.reply(ctx, b, chatID, messages.FunnelKeyPrompt())
}

func (bh *Handlers) advanceFunnelBuilder(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, state *types.ConvState) {
	chatID := update.Message.Chat.ID
	if state.Builder == nil {
		bh.clearState(userID)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	switch state.Stage {
	case types.StageAwaitFunnelKey:
		key := strings.ToLower(strings.TrimSpace(update.Message.Text))
		if key == "" || strings.ContainsAny(key, " \t") {
			bh.reply(ctx, b, chatID, messages.FunnelKeyPrompt())
			return
		}
		state.Builder.Key = key
		state.Stage = types.StageAwaitFunnelName
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.FunnelNamePrompt())
	case types.StageAwaitFunnelName:
		name := strings.TrimSpace(update.Message.Text)
		if name == "" {
			bh.reply(ctx, b, chatID, messages.FunnelNamePrompt())
			return
		}
		state.Builder.Name = name
		state.Stage = types.StageAwaitFunnelSteps
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.FunnelStepsPrompt())
	case types.StageAwaitFunnelSteps:
		step, ok := draftStepFromMessage(update.Message)
		if !ok {
			bh.reply(ctx, b, chatID, messages.FunnelStepsPrompt())
			return
		}
		state.Builder.Steps = append(state.Builder.Steps, step)
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.FunnelStepAdded(len(state.Builder.Steps)))
	}
}

// draftStepFromMessage turns one admin message into a funnel step draft.
func draftStepFromMessage(msg *models.Message) (types.DraftStep, bool) {
	switch {
	case len(msg.Photo) > 0:
		best := msg.Photo[0]
		for i := 1; i < len(msg.Photo); i++ {
			if msg.Photo[i].FileSize > best.FileSize {
				best = msg.Photo[i]
			}
		}
		return types.DraftStep{Kind: types.KindPhoto, Content: best.FileID, Caption: msg.Caption}, true
	case msg.Video != nil:
		return types.DraftStep{Kind: types.KindVideo, Content: msg.Video.FileID, Caption: msg.Caption}, true
	case msg.Audio != nil:
		return types.DraftStep{Kind: types.KindAudio, Content: msg.Audio.FileID, Caption: msg.Caption}, true
	case msg.Document != nil:
		return types.DraftStep{Kind: types.KindDocument, Content: msg.Document.FileID, Caption: msg.Caption}, true
	case strings.TrimSpace(msg.Text) != "":
		return types.DraftStep{Kind: types.KindText, Content: msg.Text}, true
	}
	return types.DraftStep{}, false
}

func (bh *Handlers) finishFunnelBuilder(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	state := bh.getState(userID)
	if state.Stage != types.StageAwaitFunnelSteps || state.Builder == nil {
		bh.reply(ctx, b, chatID, messages.AdminDenied())
		return
	}
	if len(state.Builder.Steps) == 0 {
		bh.reply(ctx, b, chatID, messages.FunnelNoSteps())
		return
	}

	f := &types.Funnel{
		Key:      state.Builder.Key,
		Name:     state.Builder.Name,
		IsActive: true,
	}
	if _, err := bh.funnels.CreateFunnel(f, state.Builder.Steps); err != nil {
		log.Printf("Error creating funnel %q: %v", f.Key, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.clearState(userID)
	bh.reply(ctx, b, chatID, messages.FunnelCreated(f.Key, len(state.Builder.Steps)))
}

func (bh *Handlers) startLinkBuilder(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	bh.setState(userID, &types.ConvState{
		Stage:     types.StageAwaitLinkKey,
		LinkDraft: &types.FreeLinkDraft{},
	})
	bh.reply(ctx, b, chatID, messages.LinkKeyPrompt())
}

func (bh *Handlers) advanceLinkBuilder(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, state *types.ConvState) {
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if state.LinkDraft == nil {
		bh.clearState(userID)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	switch state.Stage {
	case types.StageAwaitLinkKey:
		if text == "" || strings.ContainsAny(text, " \t") {
			bh.reply(ctx, b, chatID, messages.LinkKeyPrompt())
			return
		}
		state.LinkDraft.Key = strings.ToLower(text)
		state.Stage = types.StageAwaitLinkName
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.LinkNamePrompt())
	case types.StageAwaitLinkName:
		if text == "" {
			bh.reply(ctx, b, chatID, messages.LinkNamePrompt())
			return
		}
		state.LinkDraft.Name = text
		state.Stage = types.StageAwaitLinkChannel
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.LinkChannelPrompt())
	case types.StageAwaitLinkChannel:
		channelID, err := strconv.ParseInt(text, 10, 64)
		if err != nil || channelID >= 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		state.LinkDraft.ChannelID = channelID
		state.Stage = types.StageAwaitLinkInvite
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.LinkInvitePrompt())
	case types.StageAwaitLinkInvite:
		if !strings.HasPrefix(text, "https://t.me/") {
			bh.reply(ctx, b, chatID, messages.LinkInvitePrompt())
			return
		}
		state.LinkDraft.InviteLink = text
		state.Stage = types.StageAwaitLinkMaxUses
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.LinkMaxUsesPrompt())
	case types.StageAwaitLinkMaxUses:
		maxUses, err := strconv.Atoi(text)
		if err != nil || (maxUses <= 0 && maxUses != types.UnlimitedUses) {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		state.LinkDraft.MaxUses = maxUses
		state.Stage = types.StageAwaitLinkDuration
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.LinkDurationPrompt())
	case types.StageAwaitLinkDuration:
		days, err := strconv.Atoi(text)
		if err != nil || days <= 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		link := &types.FreeLink{
			Key:               state.LinkDraft.Key,
			Name:              state.LinkDraft.Name,
			ChannelID:         state.LinkDraft.ChannelID,
			ChannelInviteLink: state.LinkDraft.InviteLink,
			MaxUses:           state.LinkDraft.MaxUses,
			DurationDays:      days,
			IsActive:          true,
			CreatedBy:         userID,
		}
		if _, err := bh.accessStore.CreateFreeLink(link); err != nil {
			log.Printf("Error creating free link %q: %v", link.Key, err)
			bh.reply(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.clearState(userID)
		bh.reply(ctx, b, chatID, messages.LinkCreated(link.Key))
	}
}

func (bh *Handlers) startPlanBuilder(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	bh.setState(userID, &types.ConvState{
		Stage:     types.StageAwaitPlanName,
		PlanDraft: &types.PlanDraft{},
	})
	bh.reply(ctx, b, chatID, messages.PlanNamePrompt())
}

func (bh *Handlers) advancePlanBuilder(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, state *types.ConvState) {
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if state.PlanDraft == nil {
		bh.clearState(userID)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	switch state.Stage {
	case types.StageAwaitPlanName:
		if text == "" {
			bh.reply(ctx, b, chatID, messages.PlanNamePrompt())
			return
		}
		state.PlanDraft.Name = text
		state.Stage = types.StageAwaitPlanDuration
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.PlanDurationPrompt())
	case types.StageAwaitPlanDuration:
		days, err := strconv.Atoi(text)
		if err != nil || days <= 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		state.PlanDraft.DurationDays = days
		state.Stage = types.StageAwaitPlanPriceUSD
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.PlanPriceUSDPrompt())
	case types.StageAwaitPlanPriceUSD:
		price, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil || price < 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		state.PlanDraft.PriceUSD = price
		state.Stage = types.StageAwaitPlanPriceUZS
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.PlanPriceUZSPrompt())
	case types.StageAwaitPlanPriceUZS:
		price, err := strconv.ParseInt(text, 10, 64)
		if err != nil || price < 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		state.PlanDraft.PriceUZS = price
		state.Stage = types.StageAwaitPlanChannel
		bh.setState(userID, state)
		bh.reply(ctx, b, chatID, messages.PlanChannelPrompt())
	case types.StageAwaitPlanChannel:
		channelID, err := strconv.ParseInt(text, 10, 64)
		if err != nil || channelID >= 0 {
			bh.reply(ctx, b, chatID, messages.InvalidNumber())
			return
		}
		plan := &types.SubscriptionPlan{
			Name:         state.PlanDraft.Name,
			DurationDays: state.PlanDraft.DurationDays,
			PriceUSD:     state.PlanDraft.PriceUSD,
			PriceUZS:     state.PlanDraft.PriceUZS,
			ChannelID:    channelID,
			IsActive:     true,
		}
		id, err := bh.accessStore.CreatePlan(plan)
		if err != nil {
			log.Printf("Error creating plan %q: %v", plan.Name, err)
			bh.reply(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		plan.ID = id
		bh.clearState(userID)
		bh.reply(ctx, b, chatID, messages.PlanCreated(plan))
	}
}
