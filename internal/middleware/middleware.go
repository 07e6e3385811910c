package middleware

import (
	"context"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/azizbekdev/funnel-gate-bot/internal/contextkeys"
	"github.com/azizbekdev/funnel-gate-bot/types"
)

type Middlewares struct {
	users types.UserStore
}

func NewMessageAnalyzer(users types.UserStore) *Middlewares {
	return &Middlewares{
		users: users,
	}
}

// TrackUserMiddleware upserts the sender before any handler runs so every
// later lookup, including the broadcast audience, sees them.
func (m *Middlewares) TrackUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			userID   int64
			chatID   int64
			fullName string
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
			fullName = joinName(update.Message.From.FirstName, update.Message.From.LastName)
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			fullName = joinName(update.CallbackQuery.From.FirstName, update.CallbackQuery.From.LastName)
			if chatID == 0 {
				return
			}
		default:
			return
		}

		if userID == 0 || chatID == 0 {
			return
		}

		if err := m.users.UpsertUser(types.User{
			UserID:   userID,
			ChatID:   chatID,
			FullName: fullName,
		}); err != nil {
			log.Printf("Error upserting user %d: %v", userID, err)
		}

		next(ctx, b, update)
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {

	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (ma *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var newCtx context.Context

		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
			next(newCtx, b, update)
			return
		}

		if update.Message != nil && update.Message.Text != "" && strings.HasPrefix(update.Message.Text, "/") {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
		} else {
			newCtx = contextkeys.WithMessageType(ctx, determineMessageType(update))
		}

		next(newCtx, b, update)
	}
}

func determineMessageType(update *models.Update) contextkeys.MessageType {
	if update.Message == nil {
		return contextkeys.MessageTypeUnknown
	}
	msg := update.Message

	if msg.Contact != nil {
		return contextkeys.MessageTypeContact
	}

	if len(msg.Photo) > 0 {
		return contextkeys.MessageTypePhoto
	}

	if msg.Video != nil {
		return contextkeys.MessageTypeVideo
	}

	if msg.Document != nil {
		return contextkeys.MessageTypeDocument
	}

	if msg.Audio != nil {
		return contextkeys.MessageTypeAudio
	}

	if msg.Text != "" || msg.Caption != "" {
		return contextkeys.MessageTypeText
	}

	return contextkeys.MessageTypeUnknown
}
