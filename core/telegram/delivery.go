package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/juliabot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// StartPolling drops any webhook together with pending updates and
// long-polls until ctx is done.
func StartPolling(ctx context.Context, client Client, allowedUpdates []string) error {
	if err := client.RemoveWebhook(true); err != nil {
		return fmt.Errorf("telegram: delete webhook: %w", err)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook deleted",
		slog.String("event", "delete_webhook"),
		slog.String("mode", "polling"),
	)
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.String("allowed_updates", strings.Join(allowedUpdates, ",")),
	)
	if err := client.Poll(ctx, allowedUpdates); err != nil {
		return fmt.Errorf("telegram: polling: %w", err)
	}
	return nil
}

// RegisterWebhook publishes url as the update endpoint, dropping pending updates.
func RegisterWebhook(ctx context.Context, client Client, url string, allowedUpdates []string) error {
	err := client.SetWebhook(&tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: url},
		AllowedUpdates: allowedUpdates,
		DropUpdates:    true,
	})
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.TG.LogAttrs(ctx, level, "webhook mode",
		slog.String("event", "set_webhook"),
		slog.String("mode", "webhook"),
		slog.String("status", logger.Status(err)),
		slog.String("url", redactToken(url)),
		slog.String("allowed_updates", strings.Join(allowedUpdates, ",")),
	)
	if err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	return nil
}
