// Package telegram содержит уведомления о новых записях через Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"project4869/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender отправляет сообщения в Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier отправляет сообщение в чат на каждую новую запись
type Notifier struct {
	sender Sender
	chatID int64
	logger *zap.Logger
}

// NewNotifier создает уведомитель и проверяет токен бота
func NewNotifier(botToken string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	return NewNotifierWithEndpoint(botToken, tgbotapi.APIEndpoint, chatID, logger)
}

// NewNotifierWithEndpoint создает уведомитель для заданного адреса Bot API
func NewNotifierWithEndpoint(botToken, endpoint string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false
	logger.Info("Telegram notifier created",
		zap.String("username", bot.Self.UserName),
		zap.Int64("chat_id", chatID))

	return NewNotifierWithSender(bot, chatID, logger), nil
}

// NewNotifierWithSender создает уведомитель поверх готового отправителя
func NewNotifierWithSender(sender Sender, chatID int64, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// NotifyRecords отправляет по сообщению на запись. Ошибки отправки только логируются.
func (n *Notifier) NotifyRecords(ctx context.Context, records []model.Record) {
	sent := 0
	for _, record := range records {
		if ctx.Err() != nil {
			n.logger.Warn("Notification cancelled", zap.Int("pending", len(records)-sent))
			return
		}

		msg := tgbotapi.NewMessage(n.chatID, FormatRecord(record))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Warn("Failed to send notification",
				zap.String("link", record.Link),
				zap.Error(err))
			continue
		}
		sent++
	}

	n.logger.Debug("Notifications sent", zap.Int("sent", sent), zap.Int("total", len(records)))
}

// FormatRecord форматирует запись для сообщения в HTML разметке Telegram
func FormatRecord(record model.Record) string {
	var b strings.Builder

	b.WriteString("<b>New release</b>")
	if record.Episode != "" {
		fmt.Fprintf(&b, " %s", html.EscapeString(record.Episode))
	}
	if record.EpisodeTitle != "" {
		fmt.Fprintf(&b, " %s", html.EscapeString(record.EpisodeTitle))
	}
	b.WriteString("\n")

	var details []string
	if record.Resolution != "" {
		details = append(details, record.Resolution.String())
	}
	details = append(details, record.Container.String())
	if record.Subtitle != "" {
		details = append(details, record.Subtitle)
	}
	if record.SourceType != "" {
		details = append(details, record.SourceType)
	}
	b.WriteString(html.EscapeString(strings.Join(details, " · ")))
	b.WriteString("\n")

	fmt.Fprintf(&b, "<code>%s</code>", html.EscapeString(record.Link))
	return b.String()
}
