package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"FundPulse/internal/model"
	"FundPulse/internal/narrative"
	"FundPulse/internal/report"
)

// MaxMessageLen keeps each Telegram message under the 4096 limit.
const MaxMessageLen = 4000

// FormatAnalysisReport formats a finished run into a Telegram message.
func FormatAnalysisReport(res *model.AnalysisResult, holdings map[string]*model.Holding) string {
	var b strings.Builder
	sum := report.Summarize(res, holdings)

	b.WriteString(fmt.Sprintf("📊 <b>FundPulse 基金分析</b> | %s (%s)\n\n",
		res.FinishedAt.Format("2006-01-02 15:04"), res.Window))

	b.WriteString(fmt.Sprintf("基金 %d 只 | 加仓 %d | 观望 %d | 减仓 %d", sum.Total, sum.Buy, sum.Hold, sum.Sell))
	if sum.NoData > 0 {
		b.WriteString(fmt.Sprintf(" | 数据不足 %d", sum.NoData))
	}
	b.WriteString("\n")
	if sum.TotalAmount > 0 {
		b.WriteString(fmt.Sprintf("持仓 ¥%.0f | 今日估算 %s\n", sum.TotalAmount, signedYuan(sum.EstimatedDailyPnL)))
	}
	if sum.HasPnL {
		b.WriteString(fmt.Sprintf("累计盈亏 %s\n", signedYuan(sum.PnL)))
	}
	b.WriteString("\n")

	for _, ir := range res.Instruments {
		b.WriteString(fmt.Sprintf("<b>%s</b> (%s)\n", html.EscapeString(ir.Name), ir.Code))
		switch {
		case ir.FetchError != "":
			b.WriteString("  ❌ 数据获取失败\n\n")
			continue
		case ir.Indicators == nil:
			b.WriteString("  数据不足\n\n")
			continue
		}
		ind := ir.Indicators
		b.WriteString(fmt.Sprintf("  净值 %s | 日 %s | 区间 %s\n",
			narrative.Fmt4(ind.LastValue), narrative.FmtPct(ind.DailyReturn), narrative.FmtPct(ind.PeriodReturn)))
		if q := ir.Quote; q != nil && q.EstimatedValue > 0 {
			b.WriteString(fmt.Sprintf("  估值 %s (%s)\n", narrative.Fmt4(q.EstimatedValue), narrative.FmtPct(q.EstimatedChangePct)))
		}
		b.WriteString(fmt.Sprintf("  %s | 波动 %.2f%%\n", narrative.RunText(ind.ConsecutiveRun), ind.Volatility))
		if ir.Suggestion != nil {
			b.WriteString(fmt.Sprintf("  评分 %+.2f → %s\n  %s\n",
				ind.Score, ir.Suggestion.DisplayName, ir.Suggestion.ActionText))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNarrative formats the narrative of a run, or "" when none was
// requested.
func FormatNarrative(res *model.AnalysisResult) string {
	if !res.Narrated || res.Narrative == "" {
		return ""
	}
	return "🤖 <b>AI 深度分析</b>\n\n" + html.EscapeString(res.Narrative)
}

// FormatFunds lists the tracked funds and positions.
func FormatFunds(list []model.Holding, window model.PeriodWindow) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📁 <b>自选基金</b> (%d) | 周期 %s\n\n", len(list), window))
	for _, h := range list {
		b.WriteString(fmt.Sprintf("• %s %s", h.Code, html.EscapeString(h.Name)))
		if h.Amount > 0 {
			b.WriteString(fmt.Sprintf(" | ¥%.0f", h.Amount))
		}
		if h.Cost > 0 {
			b.WriteString(fmt.Sprintf(" @ %s", narrative.Fmt4(h.Cost)))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStatus shows the orchestrator phase and the last run.
func FormatStatus(phase model.Phase, last *model.AnalysisResult, now time.Time) string {
	var b strings.Builder
	b.WriteString("🛰 <b>FundPulse 状态</b>\n\n")
	market := "已收盘"
	if report.TradingOpen(now) {
		market = "交易中"
	}
	b.WriteString(fmt.Sprintf("市场: %s\n", market))
	b.WriteString(fmt.Sprintf("当前阶段: %s\n", phase))
	if last == nil {
		b.WriteString("最近分析: 无")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("最近分析: %s (%s, %d 只)\n",
		last.FinishedAt.Format("2006-01-02 15:04"), last.Window, len(last.Instruments)))
	b.WriteString(fmt.Sprintf("会话: %s", last.SessionID))
	return b.String()
}

// SplitMessage cuts text into parts of at most limit runes, preferring line
// boundaries.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			head, tail := splitRunes(line, limit)
			parts = append(parts, head)
			line, ln = tail, ln-limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

func signedYuan(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+¥%.0f", v)
	}
	return fmt.Sprintf("-¥%.0f", -v)
}
