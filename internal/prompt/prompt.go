// Package prompt builds the instruction prompts sent to the generation
// gateway. Both builders are pure: identical inputs always produce identical
// output, so they can be tested without any backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/masato4809/line-career-bot/internal/database"
)

const (
	noHistoryMarker = "(履歴なし)"
	noLogsMarker    = "(ログなし)"
)

// BuildReportPrompt renders the daily-report prompt: a supportive coaching
// instruction, the recent history oldest-first, and today's raw user message.
// Logs are expected newest-first, as returned by the store.
func BuildReportPrompt(userMessage string, logs []database.DailyLog) string {
	return "あなたは優しく現実的な就活・学習サポーターです。\n" +
		"ユーザーの本日の報告を受けて、次の行動が進むように短く具体的に返してください。\n" +
		"要件:\n" +
		"- 1〜3文で。\n" +
		"- 可能なら“質問を1つ”入れて次の会話につなげる。\n" +
		"- 説教はしない。\n\n" +
		"直近の履歴:\n" +
		renderHistory(logs) + "\n\n" +
		"本日のユーザー発言:\n" +
		userMessage + "\n"
}

// BuildProfilePrompt renders the profile-summary prompt over just the user
// side of the history, oldest-first. Logs are expected newest-first.
func BuildProfilePrompt(logs []database.DailyLog) string {
	var sb strings.Builder
	if len(logs) == 0 {
		sb.WriteString(noLogsMarker)
	} else {
		for i := len(logs) - 1; i >= 0; i-- {
			fmt.Fprintf(&sb, "- [%s] %s\n", logs[i].LogDate, logs[i].UserText)
		}
	}

	return "あなたはユーザーの成長を見守るコーチです。\n" +
		"以下のログから、ユーザーの最近の状態を“人物像”として短くまとめてください。\n" +
		"要件:\n" +
		"- 日本語\n" +
		"- 3〜5文\n" +
		"- 1文目で性格/強み（例：向上心、継続力）\n" +
		"- 2〜3文目で最近の忙しさ/課題\n" +
		"- 最後に“優しい一言 + 次の一歩の提案”\n\n" +
		"ログ:\n" +
		sb.String() + "\n"
}

// renderHistory formats log entries oldest-first as "[date] user / AI" pairs,
// or the no-history marker when there are none.
func renderHistory(logs []database.DailyLog) string {
	if len(logs) == 0 {
		return noHistoryMarker
	}
	var sb strings.Builder
	for i := len(logs) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "- [%s] ユーザー: %s\n  AI: %s\n", logs[i].LogDate, logs[i].UserText, logs[i].AIReply)
	}
	return sb.String()
}
