package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
)

// fakeTelegramClient fails the first failures sends, then succeeds.
type fakeTelegramClient struct {
	failures int
	sent     []string
	chatIDs  []int64
	modes    []string
}

func (f *fakeTelegramClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("telegram: 502 Bad Gateway")
	}
	f.sent = append(f.sent, text)
	f.chatIDs = append(f.chatIDs, chatID)
	if options != nil {
		f.modes = append(f.modes, options.ParseMode)
	}
	return nil
}

func notifierUnderTest(client *fakeTelegramClient, attempts int) *TelegramNotifier {
	n := NewTelegramNotifier(client, attempts, testEntry())
	n.retryPause = time.Millisecond
	return n
}

func someEvent() parcel.ChangeEvent {
	return parcel.ChangeEvent{
		SubmissionID: "25.05.2025 18:39:30|socow-vector",
		TaskName:     "socow-vector",
		Previous:     parcel.StatusChecking,
		Current:      parcel.StatusPassed,
		ObservedAt:   time.Now(),
	}
}

func TestNotify_DeliversFormattedMessage(t *testing.T) {
	client := &fakeTelegramClient{}
	n := notifierUnderTest(client, 3)

	err := n.Notify(context.Background(), &student.Student{ChatID: 42}, someEvent())

	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, int64(42), client.chatIDs[0])
	assert.Equal(t, telebot.ModeMarkdownV2, client.modes[0])
	assert.Contains(t, client.sent[0], "`socow-vector`")
	assert.Contains(t, client.sent[0], "на проверке")
	assert.Contains(t, client.sent[0], "проверена")
}

func TestNotify_RetriesTransientTransportFailure(t *testing.T) {
	client := &fakeTelegramClient{failures: 2}
	n := notifierUnderTest(client, 3)

	err := n.Notify(context.Background(), &student.Student{ChatID: 42}, someEvent())

	require.NoError(t, err)
	assert.Len(t, client.sent, 1)
}

func TestNotify_ExhaustedAttemptsIsDeliveryError(t *testing.T) {
	client := &fakeTelegramClient{failures: 10}
	n := notifierUnderTest(client, 3)

	err := n.Notify(context.Background(), &student.Student{ChatID: 42}, someEvent())

	assert.ErrorIs(t, err, ErrDelivery)
	assert.Empty(t, client.sent)
}

func TestFormatChangeMessage_NewSubmission(t *testing.T) {
	msg := FormatChangeMessage(parcel.ChangeEvent{
		SubmissionID: "id",
		TaskName:     "bigint",
		Current:      parcel.StatusPending,
	})

	assert.Equal(t, "Новая посылка `bigint`: в очереди", msg)
}

func TestFormatChangeMessage_Transition(t *testing.T) {
	msg := FormatChangeMessage(parcel.ChangeEvent{
		SubmissionID: "id",
		TaskName:     "bigint",
		Previous:     parcel.StatusPending,
		Current:      parcel.StatusNeedsReview,
	})

	assert.Equal(t, "Посылка `bigint`: в очереди → требует пересдачи", msg)
}
