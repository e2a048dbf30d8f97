package notify

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"clickbait_bot/internal/model"
)

type mockAPI struct {
	sent []tgbotapi.Chattable
	err  error
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, m.err
}

func testTelegram(api telegramAPI) *Telegram {
	return &Telegram{
		api:    api,
		chatID: 42,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func sampleReport() *model.RunReport {
	start := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return &model.RunReport{
		StartedAt:      start,
		FinishedAt:     start.Add(95 * time.Second),
		PagesVisited:   2,
		PostsProcessed: 5,
		CommentsPosted: 1,
		Errors: []model.RunError{
			{PostID: "pfbid1", Page: "newsroom", Stage: model.StageAnalyze, Reason: "timeout"},
		},
	}
}

func TestFormatReport(t *testing.T) {
	got := FormatReport(sampleReport())

	for _, want := range []string{
		"Run finished in 1m35s",
		"Pages visited: 2",
		"Posts processed: 5",
		"Comments posted: 1",
		"Errors: 1",
		"newsroom/pfbid1 [analyze]: timeout",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestFormatReportNoErrors(t *testing.T) {
	report := sampleReport()
	report.Errors = nil

	if got := FormatReport(report); strings.Contains(got, "Errors") {
		t.Errorf("clean report should not mention errors:\n%s", got)
	}
}

func TestRunCompletedSendsToChat(t *testing.T) {
	api := &mockAPI{}
	testTelegram(api).RunCompleted(sampleReport())

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable type %T", api.sent[0])
	}
	if msg.ChatID != 42 {
		t.Errorf("chat id = %d, want 42", msg.ChatID)
	}
}

func TestRunFailedSendsAlert(t *testing.T) {
	api := &mockAPI{}
	testTelegram(api).RunFailed(errors.New("login failed"))

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	msg := api.sent[0].(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "login failed") {
		t.Errorf("alert text = %q", msg.Text)
	}
}

func TestSendErrorIsLoggedNotFatal(t *testing.T) {
	api := &mockAPI{err: errors.New("chat not found")}
	// Must not panic or propagate.
	testTelegram(api).RunFailed(errors.New("x"))
}
