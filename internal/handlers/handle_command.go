package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, userID int64) {
	chatID := update.Message.Chat.ID
	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start":
		bh.clearState(userID)
		if len(fields) >= 2 {
			bh.HandleStartKey(ctx, b, update, userID, strings.TrimSpace(fields[1]))
			return
		}
		bh.sendMainMenu(ctx, b, chatID)
	case "/help":
		bh.reply(ctx, b, chatID, messages.HelpText())
	case "/plans":
		bh.sendPlanOffer(ctx, b, chatID)
	case "/done":
		bh.finishFunnelBuilder(ctx, b, chatID, userID)
	case "/cancel":
		bh.clearState(userID)
		bh.sendMainMenu(ctx, b, chatID)
	default:
		bh.handleAdminCommand(ctx, b, update, userID, cmd, fields[1:])
	}
}

func (bh *Handlers) handleAdminCommand(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, cmd string, args []string) {
	chatID := update.Message.Chat.ID
	if !bh.cfg.IsAdmin(userID) {
		bh.reply(ctx, b, chatID, messages.AdminDenied())
		return
	}

	switch cmd {
	case "/admin":
		bh.sendAdminMenu(ctx, b, chatID)
	case "/users":
		bh.sendUsersCount(ctx, b, chatID)
	case "/stats":
		bh.sendSubscriptionStats(ctx, b, chatID)
	case "/new_funnel":
		bh.startFunnelBuilder(ctx, b, chatID, userID)
	case "/funnels":
		bh.sendFunnelList(ctx, b, chatID)
	case "/funnel_toggle":
		bh.toggleFunnel(ctx, b, chatID, args)
	case "/funnel_delete":
		bh.deleteFunnel(ctx, b, chatID, args)
	case "/new_link":
		bh.startLinkBuilder(ctx, b, chatID, userID)
	case "/links":
		bh.sendFreeLinkList(ctx, b, chatID)
	case "/link_toggle":
		bh.toggleFreeLink(ctx, b, chatID, args)
	case "/link_delete":
		bh.deleteFreeLink(ctx, b, chatID, args)
	case "/new_plan":
		bh.startPlanBuilder(ctx, b, chatID, userID)
	case "/plan_list":
		bh.sendPlanList(ctx, b, chatID)
	case "/verify_payment":
		bh.verifyPayment(ctx, b, chatID, args)
	case "/broadcast":
		bh.startBroadcast(ctx, b, chatID, userID)
	default:
		bh.reply(ctx, b, chatID, messages.AdminDenied())
	}
}

func (bh *Handlers) parseIDArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (bh *Handlers) toggleFunnel(ctx context.Context, b *bot.Bot, chatID int64, args []string) {
	id, ok := bh.parseIDArg(args)
	if !ok {
		bh.reply(ctx, b, chatID, messages.InvalidNumber())
		return
	}
	funnels, err := bh.funnels.ListFunnels()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	for _, f := range funnels {
		if f.ID != id {
			continue
		}
		if err := bh.funnels.SetFunnelActive(id, !f.IsActive); err != nil {
			bh.reply(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.reply(ctx, b, chatID, messages.FunnelToggled(id, !f.IsActive))
		return
	}
	bh.reply(ctx, b, chatID, messages.ErrorDefault())
}

func (bh *Handlers) deleteFunnel(ctx context.Context, b *bot.Bot, chatID int64, args []string) {
	id, ok := bh.parseIDArg(args)
	if !ok {
		bh.reply(ctx, b, chatID, messages.InvalidNumber())
		return
	}
	if err := bh.funnels.DeleteFunnel(id); err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.FunnelDeleted(id))
}

func (bh *Handlers) toggleFreeLink(ctx context.Context, b *bot.Bot, chatID int64, args []string) {
	id, ok := bh.parseIDArg(args)
	if !ok {
		bh.reply(ctx, b, chatID, messages.InvalidNumber())
		return
	}
	links, err := bh.accessStore.ListFreeLinks()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	for _, l := range links {
		if l.ID != id {
			continue
		}
		if err := bh.accessStore.SetFreeLinkActive(id, !l.IsActive); err != nil {
			bh.reply(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.reply(ctx, b, chatID, messages.LinkToggled(id, !l.IsActive))
		return
	}
	bh.reply(ctx, b, chatID, messages.ErrorDefault())
}

func (bh *Handlers) deleteFreeLink(ctx context.Context, b *bot.Bot, chatID int64, args []string) {
	id, ok := bh.parseIDArg(args)
	if !ok {
		bh.reply(ctx, b, chatID, messages.InvalidNumber())
		return
	}
	if err := bh.accessStore.DeleteFreeLink(id); err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.LinkDeleted(id))
}

func (bh *Handlers) sendUsersCount(ctx context.Context, b *bot.Bot, chatID int64) {
	n, err := bh.users.CountUsers()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.UsersCount(n))
}

func (bh *Handlers) sendSubscriptionStats(ctx context.Context, b *bot.Bot, chatID int64) {
	total, active, verified, err := bh.accessStore.SubscriptionStats()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.SubscriptionStats(total, active, verified))
}

func (bh *Handlers) sendFunnelList(ctx context.Context, b *bot.Bot, chatID int64) {
	funnels, err := bh.funnels.ListFunnels()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.FunnelList(funnels))
}

func (bh *Handlers) sendFreeLinkList(ctx context.Context, b *bot.Bot, chatID int64) {
	links, err := bh.accessStore.ListFreeLinks()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.FreeLinkList(links))
}

func (bh *Handlers) sendPlanList(ctx context.Context, b *bot.Bot, chatID int64) {
	plans, err := bh.accessStore.ListActivePlans()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, chatID, messages.PlanList(plans))
}

func (bh *Handlers) verifyPayment(ctx context.Context, b *bot.Bot, chatID int64, args []string) {
	subID, ok := bh.parseIDArg(args)
	if !ok {
		bh.reply(ctx, b, chatID, messages.VerifyUsage())
		return
	}

	v, err := bh.coord.VerifyPayment(ctx, subID)
	if err != nil {
		bh.reply(ctx, b, chatID, messages.SubscriptionNotFound())
		return
	}

	if v.InviteSent {
		bh.notifyUser(ctx, b, v.Subscription.UserID, messages.PaymentVerified(v.Plan, v.InviteLink))
	} else {
		bh.notifyUser(ctx, b, v.Subscription.UserID, messages.PaymentVerifiedInvitePending(v.Plan))
	}
	bh.reply(ctx, b, chatID, messages.VerifyReport(subID, v.InviteSent))
}

// notifyUser sends to the user's chat. For private bots the chat id equals
// the user id; the stored chat id wins when the user record has one.
func (bh *Handlers) notifyUser(ctx context.Context, b *bot.Bot, userID int64, text string) {
	chatID := userID
	if u, err := bh.users.GetUser(userID); err == nil && u.ChatID != 0 {
		chatID = u.ChatID
	}
	bh.reply(ctx, b, chatID, text)
}

func (bh *Handlers) sendPlanOffer(ctx context.Context, b *bot.Bot, chatID int64) {
	plans, err := bh.accessStore.ListActivePlans()
	if err != nil {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(plans) == 0 {
		bh.reply(ctx, b, chatID, messages.PlanNotFound())
		return
	}
	bh.replyWithKeyboard(ctx, b, chatID, messages.PlanOffer(plans), planKeyboard(plans))
}

func planKeyboard(plans []types.SubscriptionPlan) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         p.Name,
			CallbackData: "plan_" + strconv.FormatInt(p.ID, 10),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
