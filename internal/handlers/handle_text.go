package handlers

import (
	"context"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleMessage routes non-command messages through the conversation state
// machine. Without an active conversation the main menu is re-shown.
func (bh *Handlers) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update, userID int64) {
	chatID := update.Message.Chat.ID
	state := bh.getState(userID)

	switch state.Stage {
	case types.StageAwaitPhone:
		// Phone arrives as a contact message; anything else repeats the ask.
		firstName := ""
		if update.Message.From != nil {
			firstName = update.Message.From.FirstName
		}
		bh.replyWithKeyboard(ctx, b, chatID, messages.PhoneRequest(firstName), phoneKeyboard())
	case types.StageAwaitFunnelKey, types.StageAwaitFunnelName, types.StageAwaitFunnelSteps:
		if !bh.cfg.IsAdmin(userID) {
			bh.clearState(userID)
			return
		}
		bh.advanceFunnelBuilder(ctx, b, update, userID, state)
	case types.StageAwaitLinkKey, types.StageAwaitLinkName, types.StageAwaitLinkChannel,
		types.StageAwaitLinkInvite, types.StageAwaitLinkMaxUses, types.StageAwaitLinkDuration:
		if !bh.cfg.IsAdmin(userID) {
			bh.clearState(userID)
			return
		}
		bh.advanceLinkBuilder(ctx, b, update, userID, state)
	case types.StageAwaitPlanName, types.StageAwaitPlanDuration, types.StageAwaitPlanPriceUSD,
		types.StageAwaitPlanPriceUZS, types.StageAwaitPlanChannel:
		if !bh.cfg.IsAdmin(userID) {
			bh.clearState(userID)
			return
		}
		bh.advancePlanBuilder(ctx, b, update, userID, state)
	case types.StageAwaitBroadcast:
		if !bh.cfg.IsAdmin(userID) {
			bh.clearState(userID)
			return
		}
		bh.runBroadcast(ctx, b, update, userID)
	default:
		bh.sendMainMenu(ctx, b, chatID)
	}
}
