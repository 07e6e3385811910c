package handlers

import (
	"context"
	"log"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (bh *Handlers) startBroadcast(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	bh.setState(userID, &types.ConvState{Stage: types.StageAwaitBroadcast})
	bh.reply(ctx, b, chatID, messages.BroadcastPrompt())
}

// runBroadcast copies the admin's message to every known user. Delivery is
// fire and forget: blocked users are logged and skipped.
func (bh *Handlers) runBroadcast(ctx context.Context, b *bot.Bot, update *models.Update, userID int64) {
	chatID := update.Message.Chat.ID
	bh.clearState(userID)

	if _, ok := draftStepFromMessage(update.Message); !ok {
		bh.reply(ctx, b, chatID, messages.NothingToBroadcast())
		return
	}

	userIDs, err := bh.users.ListUserIDs()
	if err != nil {
		log.Printf("Error listing broadcast audience: %v", err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.reply(ctx, b, chatID, messages.BroadcastStarted())

	fromChatID := chatID
	messageID := update.Message.ID
	go func() {
		for _, targetID := range userIDs {
			if targetID == userID {
				continue
			}
			_, err := b.CopyMessage(context.Background(), &bot.CopyMessageParams{
				ChatID:     targetID,
				FromChatID: fromChatID,
				MessageID:  messageID,
			})
			if err != nil {
				log.Printf("Broadcast: failed to deliver to user %d: %v", targetID, err)
			}
		}
	}()

	bh.reply(ctx, b, chatID, messages.BroadcastDone(len(userIDs)))
}
