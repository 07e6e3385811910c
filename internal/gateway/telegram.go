package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/internal/messages"
	"github.com/azizbekdev/funnel-gate-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram adapts the Bot API to the channel-access and delivery interfaces
// the core components consume.
type Telegram struct {
	bot *bot.Bot
}

func New(b *bot.Bot) *Telegram {
	return &Telegram{bot: b}
}

func (t *Telegram) CreateInvite(ctx context.Context, channelID int64, memberLimit int, expireAt time.Time, name string) (string, error) {
	link, err := t.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      channelID,
		Name:        name,
		MemberLimit: memberLimit,
		ExpireDate:  int(expireAt.Unix()),
	})
	if err != nil {
		return "", err
	}
	return link.InviteLink, nil
}

func (t *Telegram) RemoveMember(ctx context.Context, channelID, userID int64) error {
	_, err := t.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: channelID,
		UserID: userID,
	})
	return err
}

func (t *Telegram) UnbanMember(ctx context.Context, channelID, userID int64) error {
	_, err := t.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       channelID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	return err
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.SendMessage(ctx, params)
	return err
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileString{Data: fileID},
		Caption:   caption,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.SendPhoto(ctx, params)
	return err
}

func (t *Telegram) SendVideo(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendVideoParams{
		ChatID:    chatID,
		Video:     &models.InputFileString{Data: fileID},
		Caption:   caption,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.SendVideo(ctx, params)
	return err
}

func (t *Telegram) SendAudio(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendAudioParams{
		ChatID:    chatID,
		Audio:     &models.InputFileString{Data: fileID},
		Caption:   caption,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.SendAudio(ctx, params)
	return err
}

func (t *Telegram) SendDocument(ctx context.Context, chatID int64, fileID, caption string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileString{Data: fileID},
		Caption:   caption,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.SendDocument(ctx, params)
	return err
}

// SendPlanOffer presents the active plans with one select button per plan.
func (t *Telegram) SendPlanOffer(ctx context.Context, chatID int64, plans []types.SubscriptionPlan) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.PlanOffer(plans),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: PlanKeyboard(plans),
	})
	return err
}

// PlanKeyboard builds the plan selection keyboard; callbacks carry the plan id.
func PlanKeyboard(plans []types.SubscriptionPlan) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%d days)", p.Name, p.DurationDays),
			CallbackData: fmt.Sprintf("plan_%d", p.ID),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
