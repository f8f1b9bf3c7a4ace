// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"parcel_monitor_bot/internal/app"
	domainTelegram "parcel_monitor_bot/internal/domain/telegram"
	idb "parcel_monitor_bot/internal/infra/database"
)

const helpText = `Доступные команды:
/track <логин> <пароль> [имя] — начать отслеживание посылок
/untrack — прекратить отслеживание
/parcels — показать текущие статусы посылок
/status — состояние мониторинга
/info — информация о боте
/help — показать эту справку`

// RegisterBotCommands registers the student-facing command handlers.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	registry *app.RegistryService,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		baseLogger.WithFields(logrus.Fields{"handler": "/start", "sender_id": c.Sender().ID}).Info("Command received")
		return c.Send("Привет! Я слежу за статусами посылок на курсовой платформе и сообщаю об изменениях.\n\n" + helpText)
	})

	b.Handle("/help", func(c telebot.Context) error {
		return c.Send(helpText)
	})

	b.Handle("/info", func(c telebot.Context) error {
		return c.Send("Бот мониторинга посылок.\nПроверяет статусы проверки ваших заданий и присылает уведомление, когда статус меняется.")
	})

	b.Handle("/track", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/track",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /track <login> <password> [display name]
		if len(args) < 2 {
			return c.Send("Неверный формат команды. Используйте: /track <логин> <пароль> [имя]")
		}

		login := args[0]
		password := args[1]
		displayName := strings.Join(args[2:], " ")

		tracked, err := registry.Track(ctx, c.Chat().ID, login, password, displayName)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, app.ErrEmptyCredentials) {
				logWithError.Warn("Empty credentials")
				return c.Send("Ошибка: логин и пароль не могут быть пустыми.")
			}
			logWithError.Error("Failed to track student")
			return c.Send("Произошла ошибка при регистрации. Попробуйте позже.")
		}

		handlerLogger.WithField("student_id", tracked.ID).Info("Student tracked successfully")
		return c.Send(fmt.Sprintf("Отслеживание запущено для логина %s. Я сообщу, когда статус любой посылки изменится.", tracked.PlatformLogin))
	})

	b.Handle("/untrack", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/untrack",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		err := registry.Untrack(ctx, c.Chat().ID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, idb.ErrStudentNotFound) {
				logWithError.Warn("Chat is not tracked")
				return c.Send("Этот чат не зарегистрирован для отслеживания.")
			}
			logWithError.Error("Failed to untrack student")
			return c.Send("Произошла ошибка при отмене отслеживания. Попробуйте позже.")
		}

		handlerLogger.Info("Student untracked successfully")
		return c.Send("Отслеживание остановлено. Данные удалены.")
	})

	b.Handle("/parcels", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/parcels",
			"sender_id": c.Sender().ID,
		})

		submissions, hasSnapshot, err := registry.Parcels(ctx, c.Chat().ID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, idb.ErrStudentNotFound) {
				return c.Send("Этот чат не зарегистрирован. Используйте /track, чтобы начать.")
			}
			logWithError.Error("Failed to list parcels")
			return c.Send("Произошла ошибка при получении списка посылок.")
		}
		if !hasSnapshot {
			return c.Send("Посылки ещё не опрашивались. Дождитесь первого цикла мониторинга.")
		}
		if len(submissions) == 0 {
			return c.Send("Посылок пока нет.")
		}

		var lines []string
		for _, sub := range submissions {
			lines = append(lines, fmt.Sprintf("%s: %s", sub.TaskName, sub.Status.Label()))
		}
		return c.Send("Текущие статусы посылок:\n"+domainTelegram.MonospaceBlock(strings.Join(lines, "\n")),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2})
	})

	b.Handle("/status", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/status",
			"sender_id": c.Sender().ID,
		})

		tracked, err := registry.Tracked(ctx, c.Chat().ID)
		if err != nil {
			if errors.Is(err, idb.ErrStudentNotFound) {
				return c.Send("Этот чат не зарегистрирован. Используйте /track, чтобы начать.")
			}
			handlerLogger.WithError(err).Error("Failed to get tracked student")
			return c.Send("Произошла ошибка при получении статуса.")
		}

		if tracked.NeedsReauth {
			return c.Send("Платформа отклонила ваши учётные данные. Обновите их командой /track <логин> <пароль>, чтобы возобновить мониторинг.")
		}
		if !tracked.IsActive {
			return c.Send("Мониторинг для этого чата приостановлен.")
		}
		return c.Send(fmt.Sprintf("Мониторинг активен для логина %s.", tracked.PlatformLogin))
	})
}
