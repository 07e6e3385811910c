package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/azizbekdev/funnel-gate-bot/internal/access"
	"github.com/azizbekdev/funnel-gate-bot/internal/funnel"
	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (bh *Handlers) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, data string) {
	bh.answerCallback(ctx, b, update)
	chatID := bh.getChatIDFromUpdate(update)

	switch {
	case strings.HasPrefix(data, "fstep_"):
		bh.handleStepCallback(ctx, b, chatID, userID, strings.TrimPrefix(data, "fstep_"))
	case strings.HasPrefix(data, "plan_"):
		bh.handlePlanCallback(ctx, b, chatID, userID, strings.TrimPrefix(data, "plan_"))
	case strings.HasPrefix(data, "pay_"):
		bh.handlePaidCallback(ctx, b, chatID, userID, strings.TrimPrefix(data, "pay_"))
	case strings.HasPrefix(data, "menu_"):
		bh.handleMenuCallback(ctx, b, chatID, data)
	case strings.HasPrefix(data, "admin_"):
		bh.handleAdminCallback(ctx, b, chatID, userID, data)
	}
}

func (bh *Handlers) handleStepCallback(ctx context.Context, b *bot.Bot, chatID, userID int64, arg string) {
	requested, err := strconv.Atoi(arg)
	if err != nil {
		return
	}

	_, err = bh.engine.Advance(ctx, userID, chatID, requested)
	switch {
	case err == nil:
	case errors.Is(err, funnel.ErrNoActiveRun):
		bh.reply(ctx, b, chatID, messages.NoActiveRun())
	case errors.Is(err, funnel.ErrStepOutOfRange):
		// Stale button from an old message, nothing to do.
	default:
		log.Printf("Error advancing funnel for user %d: %v", userID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
	}
}

func (bh *Handlers) handlePlanCallback(ctx context.Context, b *bot.Bot, chatID, userID int64, arg string) {
	planID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return
	}

	checkout, err := bh.coord.StartCheckout(userID, planID)
	if err != nil {
		if errors.Is(err, access.ErrPlanNotFound) {
			bh.reply(ctx, b, chatID, messages.PlanNotFound())
			return
		}
		log.Printf("Error starting checkout for user %d plan %d: %v", userID, planID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: messages.BtnIHavePaid, CallbackData: "pay_" + strconv.FormatInt(checkout.SubscriptionID, 10)},
		}},
	}
	bh.replyWithKeyboard(ctx, b, chatID,
		messages.PaymentInstructions(checkout.Plan, checkout.SubscriptionID, bh.cfg.CardNumber, bh.cfg.CardHolder), kb)
}

func (bh *Handlers) handlePaidCallback(ctx context.Context, b *bot.Bot, chatID, userID int64, arg string) {
	subID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return
	}

	sub, plan, err := bh.accessStore.GetSubscriptionWithPlan(subID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			bh.reply(ctx, b, chatID, messages.SubscriptionNotFound())
			return
		}
		log.Printf("Error loading subscription %d: %v", subID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if sub.UserID != userID {
		return
	}

	bh.reply(ctx, b, chatID, messages.PaymentClaimed(subID))
	for _, adminID := range bh.cfg.AdminIDs {
		bh.reply(ctx, b, adminID, messages.PaymentNotifyAdmin(userID, plan, subID))
	}
}

func (bh *Handlers) handleMenuCallback(ctx context.Context, b *bot.Bot, chatID int64, data string) {
	switch data {
	case "menu_plans":
		bh.sendPlanOffer(ctx, b, chatID)
	case "menu_info":
		bh.reply(ctx, b, chatID, messages.GeneralInfo())
	case "menu_ads":
		bh.reply(ctx, b, chatID, messages.AdvertisingInfo())
	case "menu_help":
		bh.reply(ctx, b, chatID, messages.HelpText())
	}
}

func (bh *Handlers) handleAdminCallback(ctx context.Context, b *bot.Bot, chatID, userID int64, data string) {
	if !bh.cfg.IsAdmin(userID) {
		return
	}

	switch data {
	case "admin_new_funnel":
		bh.startFunnelBuilder(ctx, b, chatID, userID)
	case "admin_funnels":
		bh.sendFunnelList(ctx, b, chatID)
	case "admin_new_link":
		bh.startLinkBuilder(ctx, b, chatID, userID)
	case "admin_links":
		bh.sendFreeLinkList(ctx, b, chatID)
	case "admin_new_plan":
		bh.startPlanBuilder(ctx, b, chatID, userID)
	case "admin_plans":
		bh.sendPlanList(ctx, b, chatID)
	case "admin_stats":
		bh.sendSubscriptionStats(ctx, b, chatID)
	case "admin_users":
		bh.sendUsersCount(ctx, b, chatID)
	case "admin_broadcast":
		bh.startBroadcast(ctx, b, chatID, userID)
	}
}
