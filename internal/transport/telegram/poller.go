package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 60

// Poll long-polls getUpdates and feeds the dispatcher until ctx is done.
func Poll(ctx context.Context, bot *tgbotapi.BotAPI, d *Dispatcher) error {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook before polling: %w", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := bot.GetUpdatesChan(u)
	slog.Info("polling telegram updates", "bot", bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			// Submit only fails once ctx is done, which the next iteration handles.
			_ = d.Submit(ctx, up)
		}
	}
}

// RegisterWebhook points Telegram at url. The secret path segment is part of url.
func RegisterWebhook(bot *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	info, err := bot.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		slog.Warn("telegram reports webhook errors", "message", info.LastErrorMessage)
	}
	return nil
}
