package handlers

import (
	"context"
	"log"
	"strings"

	"github.com/azizbekdev/funnel-gate-bot/internal/access"
	"github.com/azizbekdev/funnel-gate-bot/internal/config"
	"github.com/azizbekdev/funnel-gate-bot/internal/contextkeys"
	"github.com/azizbekdev/funnel-gate-bot/internal/funnel"
	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type Handlers struct {
	cfg         *config.Config
	users       types.UserStore
	funnels     types.FunnelStore
	accessStore types.AccessStore
	states      types.StateStore
	engine      *funnel.Engine
	coord       *access.Coordinator
}

func NewHandlers(
	cfg *config.Config,
	users types.UserStore,
	funnels types.FunnelStore,
	accessStore types.AccessStore,
	states types.StateStore,
	engine *funnel.Engine,
	coord *access.Coordinator,
) *Handlers {
	return &Handlers{
		cfg:         cfg,
		users:       users,
		funnels:     funnels,
		accessStore: accessStore,
		states:      states,
		engine:      engine,
		coord:       coord,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := bh.getChatIDFromUpdate(update)
	userID := bh.getUserIDFromUpdate(update)
	if userID == 0 || chatID == 0 {
		return
	}

	messageType, _ := contextkeys.GetMessageType(ctx)

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, userID)
	case contextkeys.MessageTypeContact:
		bh.HandleContact(ctx, b, update, userID)
	case contextkeys.MessageTypeClickButton:
		data, _ := contextkeys.GetCallbackData(ctx)
		if data == "" && update.CallbackQuery != nil {
			data = update.CallbackQuery.Data
		}
		bh.HandleCallback(ctx, b, update, userID, strings.TrimSpace(data))
	case contextkeys.MessageTypeText, contextkeys.MessageTypePhoto, contextkeys.MessageTypeVideo,
		contextkeys.MessageTypeAudio, contextkeys.MessageTypeDocument:
		bh.HandleMessage(ctx, b, update, userID)
	default:
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) getUserIDFromUpdate(update *models.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

func (bh *Handlers) replyWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, kb models.ReplyMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: kb,
	})
	if err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
}

func (bh *Handlers) getState(userID int64) *types.ConvState {
	state, err := bh.states.GetState(userID)
	if err != nil || state == nil {
		return &types.ConvState{}
	}
	return state
}

func (bh *Handlers) setState(userID int64, state *types.ConvState) {
	if err := bh.states.SetState(userID, state); err != nil {
		log.Printf("Error saving conversation state for user %d: %v", userID, err)
	}
}

func (bh *Handlers) clearState(userID int64) {
	if err := bh.states.ClearState(userID); err != nil {
		log.Printf("Error clearing conversation state for user %d: %v", userID, err)
	}
}

func (bh *Handlers) sendMainMenu(ctx context.Context, b *bot.Bot, chatID int64) {
	pad := func(s string) string { return "   " + s + "   " }
	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: pad(messages.BtnMenuPlans), CallbackData: "menu_plans"}},
			{{Text: pad(messages.BtnMenuInfo), CallbackData: "menu_info"}},
			{{Text: pad(messages.BtnMenuAds), CallbackData: "menu_ads"}},
			{{Text: pad(messages.BtnMenuHelp), CallbackData: "menu_help"}},
		},
	}
	bh.replyWithKeyboard(ctx, b, chatID, messages.StartWelcome(), kb)
}
