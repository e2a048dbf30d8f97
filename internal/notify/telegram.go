package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"clickbait_bot/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends run summaries and failure alerts to a single chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given chat.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// RunCompleted pushes a one-message summary of the run.
func (t *Telegram) RunCompleted(report *model.RunReport) {
	t.send(FormatReport(report))
}

// RunFailed pushes a fatal-run alert.
func (t *Telegram) RunFailed(err error) {
	t.send(fmt.Sprintf("Run failed: %v", err))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send notification", "chat_id", t.chatID, "error", err)
	}
}

// FormatReport formats a run report as a notification message.
func FormatReport(report *model.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run finished in %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "Pages visited: %d\n", report.PagesVisited)
	fmt.Fprintf(&b, "Posts processed: %d\n", report.PostsProcessed)
	fmt.Fprintf(&b, "Comments posted: %d\n", report.CommentsPosted)
	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  %s/%s [%s]: %s\n", e.Page, e.PostID, e.Stage, e.Reason)
		}
	}
	return b.String()
}
