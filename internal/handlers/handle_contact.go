package handlers

import (
	"context"
	"log"

	"github.com/azizbekdev/funnel-gate-bot/internal/access"
	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleContact stores the shared phone number and, when the contact was
// requested for a pending free link, resumes the redemption.
func (bh *Handlers) HandleContact(ctx context.Context, b *bot.Bot, update *models.Update, userID int64) {
	chatID := update.Message.Chat.ID
	contact := update.Message.Contact

	// Only accept the sender's own contact.
	if contact.UserID != 0 && contact.UserID != userID {
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	if err := bh.users.SetPhone(userID, contact.PhoneNumber); err != nil {
		log.Printf("Error saving phone for user %d: %v", userID, err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	// Drop the contact keyboard.
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "✅",
		ReplyMarkup: &models.ReplyKeyboardRemove{RemoveKeyboard: true},
	})

	state := bh.getState(userID)
	if state.Stage != types.StageAwaitPhone || state.PendingFreeLinkKey == "" {
		return
	}
	bh.clearState(userID)

	entry, err := bh.coord.ResolveEntryKey(state.PendingFreeLinkKey)
	if err != nil || entry.Kind != access.EntryFreeLink {
		bh.reply(ctx, b, chatID, messages.KeyUnresolved())
		return
	}

	grant, err := bh.coord.RedeemFreeLink(ctx, entry.Link, userID)
	if err != nil {
		bh.handleRedeemError(ctx, b, update, userID, entry.Link, err)
		return
	}
	bh.sendGrant(ctx, b, chatID, grant)
}
