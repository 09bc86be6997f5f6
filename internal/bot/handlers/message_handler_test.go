package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/masato4809/line-career-bot/internal/config"
	"github.com/masato4809/line-career-bot/internal/database"
	"github.com/masato4809/line-career-bot/internal/gemini"
)

type fakeStore struct {
	users    map[string]bool
	logs     []database.DailyLog
	history  []database.DailyLog
	failUser error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]bool{}}
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) EnsureUser(_ context.Context, userID string) error {
	if s.failUser != nil {
		return s.failUser
	}
	s.users[userID] = true
	return nil
}

func (s *fakeStore) AppendLog(_ context.Context, entry *database.DailyLog) error {
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) RecentLogs(_ context.Context, _ string, limit int) ([]database.DailyLog, error) {
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func (s *fakeStore) AllUserIDs(context.Context) ([]string, error) {
	ids := []string{}
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) RunMaintenance(context.Context) error { return nil }

type fakeGateway struct {
	result  gemini.Result
	prompts []string
}

func (g *fakeGateway) Generate(_ context.Context, prompt string, _ time.Duration) gemini.Result {
	g.prompts = append(g.prompts, prompt)
	return g.result
}

func (g *fakeGateway) ListModels(context.Context) ([]string, error) { return nil, nil }

type sentMessage struct {
	token string
	text  string
}

type fakeMessenger struct {
	replies []sentMessage
	pushes  []sentMessage
	failure error
}

func (m *fakeMessenger) Reply(_ context.Context, replyToken, text string) error {
	if m.failure != nil {
		return m.failure
	}
	m.replies = append(m.replies, sentMessage{token: replyToken, text: text})
	return nil
}

func (m *fakeMessenger) Push(_ context.Context, userID, text string) error {
	if m.failure != nil {
		return m.failure
	}
	m.pushes = append(m.pushes, sentMessage{token: userID, text: text})
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Gemini.MaxWait = 45 * time.Second
	cfg.Messages.NoUserID = "ユーザーIDが取得できませんでした。"
	cfg.Messages.ReportQuotaFallback = "今ちょっと混み合ってるみたい。%s後にもう一度送ってみて！"
	cfg.Messages.ProfileQuotaFallback = "今は分析できないみたい。%s後にもう一度聞いてみて！"
	cfg.Messages.WaitShortly = "少し"
	return cfg
}

func newTestHandler(store *fakeStore, gw *fakeGateway, m *fakeMessenger) *MessageHandler {
	return NewMessageHandler(HandlerDeps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:    testConfig(),
		Store:     store,
		Gateway:   gw,
		Messenger: m,
		Location:  time.UTC,
	})
}

func TestHandleDailyReportSuccess(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{result: gemini.Result{Text: "お疲れさま！明日は何をする？", Model: "gemini-2.5-flash"}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "今日は説明会に行った", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if !store.users["U1"] {
		t.Error("expected the sender to be registered")
	}
	if len(store.logs) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(store.logs))
	}
	entry := store.logs[0]
	if entry.UserText != "今日は説明会に行った" || entry.AIReply != "お疲れさま！明日は何をする？" {
		t.Errorf("unexpected persisted entry: %+v", entry)
	}
	if !entry.ModelUsed.Valid || entry.ModelUsed.String != "gemini-2.5-flash" {
		t.Errorf("expected model name persisted, got %+v", entry.ModelUsed)
	}
	if entry.LogDate != time.Now().UTC().Format(time.DateOnly) {
		t.Errorf("unexpected log date: %q", entry.LogDate)
	}

	if len(messenger.replies) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(messenger.replies))
	}
	if messenger.replies[0].token != "rt-1" || messenger.replies[0].text != "お疲れさま！明日は何をする？" {
		t.Errorf("unexpected reply: %+v", messenger.replies[0])
	}
}

func TestHandleDailyReportQuotaFallback(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{result: gemini.Result{RetrySeconds: 36, RetryKnown: true}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "今日はESを書いた", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(store.logs) != 1 {
		t.Fatalf("expected the report to be persisted despite the failure, got %d entries", len(store.logs))
	}
	entry := store.logs[0]
	if entry.ModelUsed.Valid {
		t.Errorf("expected NULL model on fallback, got %+v", entry.ModelUsed)
	}
	if !strings.Contains(entry.AIReply, "36秒") {
		t.Errorf("expected the wait estimate in the persisted fallback, got %q", entry.AIReply)
	}

	if len(messenger.replies) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(messenger.replies))
	}
	if !strings.Contains(messenger.replies[0].text, "36秒") {
		t.Errorf("expected the wait estimate in the reply, got %q", messenger.replies[0].text)
	}
}

func TestHandleDailyReportUnknownWaitUsesVagueEstimate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{result: gemini.Result{}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "今日は散歩した", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(messenger.replies) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(messenger.replies))
	}
	if !strings.Contains(messenger.replies[0].text, "少し") {
		t.Errorf("expected the vague estimate in the reply, got %q", messenger.replies[0].text)
	}
}

func TestHandleProfileQueryNeverPersists(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.history = []database.DailyLog{
		{LogDate: "2025-04-01", UserText: "勉強した", AIReply: "いいね"},
	}
	gw := &fakeGateway{result: gemini.Result{Text: "向上心のある人だね", Model: "gemini-2.5-flash"}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "今の私はどんな感じ？", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(store.logs) != 0 {
		t.Errorf("profile queries must not persist anything, got %d entries", len(store.logs))
	}
	if len(messenger.replies) != 1 || messenger.replies[0].text != "向上心のある人だね" {
		t.Errorf("unexpected replies: %+v", messenger.replies)
	}
}

func TestHandleProfileQueryQuotaFallbackDoesNotPersist(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{result: gemini.Result{RetrySeconds: 12, RetryKnown: true}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "私ってどんな人？", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(store.logs) != 0 {
		t.Errorf("profile fallback must not persist anything, got %d entries", len(store.logs))
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0].text, "12秒") {
		t.Errorf("expected the wait estimate in the fallback, got %+v", messenger.replies)
	}
}

func TestHandleMissingSenderID(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{result: gemini.Result{Text: "should not be called"}}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "", Text: "今日の報告", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(store.users) != 0 || len(store.logs) != 0 {
		t.Error("nothing must be persisted without a sender ID")
	}
	if len(gw.prompts) != 0 {
		t.Error("the gateway must not be called without a sender ID")
	}
	if len(messenger.replies) != 1 || messenger.replies[0].text != "ユーザーIDが取得できませんでした。" {
		t.Errorf("expected the identification notice, got %+v", messenger.replies)
	}
}

func TestHandleEnsureUserFailureAborts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failUser = errors.New("disk full")
	gw := &fakeGateway{}
	messenger := &fakeMessenger{}
	h := newTestHandler(store, gw, messenger)

	msg := IncomingMessage{SenderID: "U1", Text: "今日の報告", ReplyToken: "rt-1"}
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected an error when user registration fails")
	}

	if len(gw.prompts) != 0 {
		t.Error("the gateway must not be called after a registration failure")
	}
	if len(messenger.replies) != 0 {
		t.Error("no reply must be sent after a registration failure")
	}
}

func TestIsProfileQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "exact phrase", text: "今の私はどんなですか", want: true},
		{name: "phrase inside a sentence", text: "ねえ、私ってどんな人に見える？", want: true},
		{name: "self variant", text: "自分ってどんな感じかな", want: true},
		{name: "daily report", text: "今日は面接練習をした", want: false},
		{name: "empty text", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsProfileQuery(tt.text); got != tt.want {
				t.Errorf("IsProfileQuery(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
