package prompt

import (
	"strings"
	"testing"

	"github.com/masato4809/line-career-bot/internal/database"
)

func TestBuildReportPromptWithoutHistory(t *testing.T) {
	t.Parallel()

	got := BuildReportPrompt("今日は企業研究を2社やった", nil)

	if !strings.Contains(got, "(履歴なし)") {
		t.Error("expected the no-history marker for an empty log slice")
	}
	if n := strings.Count(got, "今日は企業研究を2社やった"); n != 1 {
		t.Errorf("expected user message to appear exactly once, got %d", n)
	}
	if !strings.Contains(got, "本日のユーザー発言:") {
		t.Error("expected the user message section header")
	}
}

func TestBuildReportPromptOrdersHistoryOldestFirst(t *testing.T) {
	t.Parallel()

	// Newest-first, as the store returns them.
	logs := []database.DailyLog{
		{LogDate: "2025-04-03", UserText: "面接練習をした", AIReply: "いい流れだね"},
		{LogDate: "2025-04-02", UserText: "ESを1社出した", AIReply: "お疲れさま"},
		{LogDate: "2025-04-01", UserText: "自己分析をした", AIReply: "良い一歩だね"},
	}

	got := BuildReportPrompt("今日は休んだ", logs)

	first := strings.Index(got, "2025-04-01")
	second := strings.Index(got, "2025-04-02")
	third := strings.Index(got, "2025-04-03")
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("expected all three dates in the prompt:\n%s", got)
	}
	if !(first < second && second < third) {
		t.Errorf("expected chronological order, got positions %d, %d, %d", first, second, third)
	}

	if !strings.Contains(got, "ユーザー: 自己分析をした") {
		t.Error("expected the user side of each entry")
	}
	if !strings.Contains(got, "AI: 良い一歩だね") {
		t.Error("expected the AI side of each entry")
	}
	if strings.Contains(got, "(履歴なし)") {
		t.Error("marker must not appear when history exists")
	}
}

func TestBuildProfilePromptWithoutLogs(t *testing.T) {
	t.Parallel()

	got := BuildProfilePrompt(nil)

	if !strings.Contains(got, "(ログなし)") {
		t.Error("expected the no-logs marker for an empty log slice")
	}
}

func TestBuildProfilePromptUsesOnlyUserText(t *testing.T) {
	t.Parallel()

	logs := []database.DailyLog{
		{LogDate: "2025-04-02", UserText: "説明会に参加した", AIReply: "よく動けてるね"},
		{LogDate: "2025-04-01", UserText: "TOEICの勉強をした", AIReply: "継続が力になるよ"},
	}

	got := BuildProfilePrompt(logs)

	if !strings.Contains(got, "TOEICの勉強をした") || !strings.Contains(got, "説明会に参加した") {
		t.Fatalf("expected every user text in the prompt:\n%s", got)
	}
	if strings.Contains(got, "よく動けてるね") || strings.Contains(got, "継続が力になるよ") {
		t.Error("profile prompt must not include AI replies")
	}

	older := strings.Index(got, "2025-04-01")
	newer := strings.Index(got, "2025-04-02")
	if !(older >= 0 && newer >= 0 && older < newer) {
		t.Errorf("expected chronological order, got positions %d, %d", older, newer)
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	t.Parallel()

	logs := []database.DailyLog{{LogDate: "2025-04-01", UserText: "散歩した", AIReply: "いいね"}}

	if BuildReportPrompt("今日の報告", logs) != BuildReportPrompt("今日の報告", logs) {
		t.Error("BuildReportPrompt must be deterministic")
	}
	if BuildProfilePrompt(logs) != BuildProfilePrompt(logs) {
		t.Error("BuildProfilePrompt must be deterministic")
	}
}
