package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/azizbekdev/funnel-gate-bot/internal/access"
	"github.com/azizbekdev/funnel-gate-bot/internal/funnel"
	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleStartKey routes a /start deep-link parameter. Free links take
// precedence over funnels sharing the same key.
func (bh *Handlers) HandleStartKey(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, key string) {
	chatID := update.Message.Chat.ID

	entry, err := bh.coord.ResolveEntryKey(key)
	if err != nil {
		if errors.Is(err, access.ErrKeyUnresolved) {
			bh.reply(ctx, b, chatID, messages.KeyUnresolved())
			return
		}
		log.Printf("Error resolving entry key %q: %v", key, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	switch entry.Kind {
	case access.EntryFreeLink:
		bh.handleFreeLinkEntry(ctx, b, update, userID, entry.Link)
	case access.EntryFunnel:
		bh.startFunnel(ctx, b, chatID, userID, key)
	}
}

func (bh *Handlers) startFunnel(ctx context.Context, b *bot.Bot, chatID, userID int64, key string) {
	_, err := bh.engine.Start(ctx, userID, chatID, key)
	switch {
	case err == nil:
	case errors.Is(err, funnel.ErrFunnelNotFound):
		bh.reply(ctx, b, chatID, messages.KeyUnresolved())
	case errors.Is(err, funnel.ErrEmptyFunnel):
		bh.reply(ctx, b, chatID, messages.FunnelHasNoSteps())
	default:
		log.Printf("Error starting funnel %q for user %d: %v", key, userID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
	}
}

func (bh *Handlers) handleFreeLinkEntry(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, link *types.FreeLink) {
	chatID := update.Message.Chat.ID

	grant, err := bh.coord.RedeemFreeLink(ctx, link, userID)
	if err != nil {
		bh.handleRedeemError(ctx, b, update, userID, link, err)
		return
	}
	bh.sendGrant(ctx, b, chatID, grant)
}

func (bh *Handlers) handleRedeemError(ctx context.Context, b *bot.Bot, update *models.Update, userID int64, link *types.FreeLink, err error) {
	chatID := update.Message.Chat.ID

	switch {
	case errors.Is(err, access.ErrPhoneRequired):
		bh.setState(userID, &types.ConvState{
			Stage:              types.StageAwaitPhone,
			PendingFreeLinkKey: link.Key,
		})
		firstName := ""
		if update.Message.From != nil {
			firstName = update.Message.From.FirstName
		}
		bh.replyWithKeyboard(ctx, b, chatID, messages.PhoneRequest(firstName), phoneKeyboard())
	case errors.Is(err, types.ErrLinkInactive):
		bh.reply(ctx, b, chatID, messages.LinkInactive())
	case errors.Is(err, types.ErrLinkLimitReached):
		bh.reply(ctx, b, chatID, messages.LinkLimitReached())
	case errors.Is(err, types.ErrLinkAlreadyUsed):
		bh.reply(ctx, b, chatID, messages.LinkAlreadyUsed())
	default:
		log.Printf("Error redeeming free link %q for user %d: %v", link.Key, userID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
	}
}

func (bh *Handlers) sendGrant(ctx context.Context, b *bot.Bot, chatID int64, grant *access.Grant) {
	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: messages.BtnJoinChannel, URL: grant.InviteLink},
		}},
	}
	bh.replyWithKeyboard(ctx, b, chatID,
		messages.FreeLinkGranted(grant.Link.Name, grant.Link.DurationDays, grant.Use.ExpiresAt), kb)
}

func phoneKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{{
			{Text: messages.BtnSharePhone, RequestContact: true},
		}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}
