// Package telegram turns Telegram updates into calls on the application
// services and renders their results as messages with inline buttons.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Button is either a callback button (Data) or a link button (URL).
type Button struct {
	Label string
	Data  string
	URL   string
}

// Reply is one rendered answer. A non-zero EditMessageID rewrites that message
// in place instead of posting a new one.
type Reply struct {
	ChatID        int64
	EditMessageID int
	Text          string
	Rows          [][]Button
}

type Sender interface {
	Send(ctx context.Context, r Reply) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotSender renders replies through the Bot API.
type BotSender struct {
	bot botAPI
}

func NewBotSender(bot botAPI) *BotSender {
	return &BotSender{bot: bot}
}

func (s *BotSender) Send(_ context.Context, r Reply) error {
	markup := keyboard(r.Rows)
	var c tgbotapi.Chattable
	if r.EditMessageID != 0 {
		edit := tgbotapi.NewEditMessageText(r.ChatID, r.EditMessageID, r.Text)
		edit.ReplyMarkup = markup
		c = edit
	} else {
		msg := tgbotapi.NewMessage(r.ChatID, r.Text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		c = msg
	}
	if _, err := s.bot.Send(c); err != nil {
		return fmt.Errorf("telegram send to %d: %w", r.ChatID, err)
	}
	return nil
}

// AnswerCallback stops the client's loading indicator on the pressed button.
func (s *BotSender) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := s.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func keyboard(rows [][]Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &m
}
