package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"LiveDesk/internal/lib/sl"
)

type sender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

// Telegram delivers staff notifications to a Telegram chat while the console is hidden.
type Telegram struct {
	log    *slog.Logger
	api    sender
	chatId int64
	queue  chan string
}

const telegramQueueSize = 32

func NewTelegram(apiKey string, chatId int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	t := newTelegram(api, chatId, log)
	t.log.With(
		slog.String("bot_name", api.User.Username),
		slog.Int64("chat_id", chatId),
	).Info("telegram notifier initialized")
	return t, nil
}

func newTelegram(api sender, chatId int64, log *slog.Logger) *Telegram {
	t := &Telegram{
		log:    log.With(sl.Module("tgbot")),
		api:    api,
		chatId: chatId,
		queue:  make(chan string, telegramQueueSize),
	}
	go t.run()
	return t
}

// Notify queues the message; a full queue drops it.
func (t *Telegram) Notify(title, body string) {
	text := fmt.Sprintf("**%s**\n%s", title, body)
	select {
	case t.queue <- text:
	default:
		t.log.Warn("notification queue full, dropping")
	}
}

// Close stops the sender after the queued messages are delivered.
func (t *Telegram) Close() {
	close(t.queue)
}

func (t *Telegram) run() {
	for text := range t.queue {
		t.plainResponse(t.chatId, text)
	}
}

func (t *Telegram) plainResponse(chatId int64, text string) {
	text = strings.ReplaceAll(text, "**", "*")

	sanitized := sanitize(text)
	if sanitized == "" {
		t.log.With(
			slog.Int64("id", chatId),
		).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(
			slog.Int64("id", chatId),
		).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(
				slog.Int64("id", chatId),
			).Error("sending safe message", sl.Err(err))
		}
	}
}

// sanitize escapes the MarkdownV2 reserved characters except "*", which is kept for bold.
func sanitize(input string) string {
	const reservedChars = "\\`_{}#+-.!|()[]>=~"

	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
