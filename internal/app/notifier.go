// internal/app/notifier.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
	domainTelegram "parcel_monitor_bot/internal/domain/telegram"
)

// ErrDelivery: the message could not be delivered after all attempts
// (e.g. the recipient blocked the bot). The cycle continues with the next
// event; delivery is at-least-once, not guaranteed.
var ErrDelivery = fmt.Errorf("message delivery failed")

// Notifier formats a change into a human-readable message and delivers it to
// the student's chat.
type Notifier interface {
	Notify(ctx context.Context, s *student.Student, event parcel.ChangeEvent) error
}

// TelegramNotifier delivers change notifications through the Telegram client
// with a bounded number of attempts per message.
type TelegramNotifier struct {
	client     domainTelegram.Client
	attempts   int
	retryPause time.Duration
	logger     *logrus.Entry
}

func NewTelegramNotifier(client domainTelegram.Client, attempts int, logger *logrus.Entry) *TelegramNotifier {
	if attempts < 1 {
		attempts = 1
	}
	return &TelegramNotifier{
		client:     client,
		attempts:   attempts,
		retryPause: 2 * time.Second,
		logger:     logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, s *student.Student, event parcel.ChangeEvent) error {
	text := FormatChangeMessage(event)
	options := &telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2}

	logCtx := n.logger.WithFields(logrus.Fields{
		"chat_id":       s.ChatID,
		"submission_id": event.SubmissionID,
	})

	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if err := n.client.SendMessage(s.ChatID, text, options); err != nil {
			lastErr = err
			logCtx.WithError(err).WithField("attempt", attempt).Warn("Failed to deliver notification")
			if attempt < n.attempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("%w: chat %d: %v", ErrDelivery, s.ChatID, ctx.Err())
				case <-time.After(n.retryPause):
				}
			}
			continue
		}
		logCtx.Debug("Notification delivered")
		return nil
	}
	return fmt.Errorf("%w: chat %d after %d attempts: %v", ErrDelivery, s.ChatID, n.attempts, lastErr)
}

// FormatChangeMessage renders a change event as a MarkdownV2 message in the
// bot's voice. The task name goes into an inline code span, everything else
// is escaped.
func FormatChangeMessage(event parcel.ChangeEvent) string {
	task := "`" + event.TaskName + "`"
	if event.Previous == "" {
		return fmt.Sprintf("Новая посылка %s: %s", task, domainTelegram.EscapeMarkdownV2(event.Current.Label()))
	}
	return fmt.Sprintf("Посылка %s: %s → %s",
		task,
		domainTelegram.EscapeMarkdownV2(event.Previous.Label()),
		domainTelegram.EscapeMarkdownV2(event.Current.Label()),
	)
}
