package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/logger"
	"FundPulse/internal/model"
)

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		SessionID:  "s1",
		Window:     model.Window1Month,
		FinishedAt: time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC),
		Narrated:   true,
		Narrative:  "注意 <风险> & 仓位",
		Instruments: []model.InstrumentResult{
			{
				Code: "015740", Name: "成长A",
				Indicators: &model.Indicators{LastValue: 1.04, DailyReturn: 0.97, PeriodReturn: 4, ConsecutiveRun: 3, Score: 5.4},
				Suggestion: &model.Suggestion{DisplayName: "卖出", ActionText: "建议操作：减仓 10%~20%", Severity: -1},
				Quote:      &model.Quote{EstimatedValue: 1.05, EstimatedChangePct: 0.5},
			},
			{Code: "017470", Name: "017470", FetchError: "history: timeout"},
			{Code: "161226", Name: "白银"},
		},
	}
}

func TestFormatAnalysisReport(t *testing.T) {
	holdings := map[string]*model.Holding{"015740": {Code: "015740", Amount: 10000, Cost: 1}}
	msg := FormatAnalysisReport(sampleResult(), holdings)

	assert.Contains(t, msg, "FundPulse 基金分析</b> | 2026-03-20 15:00 (1month)")
	assert.Contains(t, msg, "基金 3 只 | 加仓 0 | 观望 0 | 减仓 1 | 数据不足 2")
	assert.Contains(t, msg, "持仓 ¥10000 | 今日估算 +¥50")
	assert.Contains(t, msg, "累计盈亏 +¥400")
	assert.Contains(t, msg, "<b>成长A</b> (015740)")
	assert.Contains(t, msg, "净值 1.0400 | 日 +0.97% | 区间 +4.00%")
	assert.Contains(t, msg, "评分 +5.40 → 卖出")
	assert.Contains(t, msg, "❌ 数据获取失败")
	assert.Contains(t, msg, "<b>白银</b> (161226)\n  数据不足")
}

func TestFormatNarrative_Escapes(t *testing.T) {
	msg := FormatNarrative(sampleResult())
	assert.Contains(t, msg, "注意 &lt;风险&gt; &amp; 仓位")

	res := sampleResult()
	res.Narrated = false
	assert.Empty(t, FormatNarrative(res))
}

func TestFormatFundsAndStatus(t *testing.T) {
	funds := FormatFunds([]model.Holding{{Code: "015740", Name: "成长A", Amount: 5000, Cost: 1.1}, {Code: "017470", Name: "017470"}}, model.Window3Month)
	assert.Contains(t, funds, "(2) | 周期 3month")
	assert.Contains(t, funds, "• 015740 成长A | ¥5000 @ 1.1000")

	closed := time.Date(2026, 3, 21, 10, 0, 0, 0, time.UTC)
	status := FormatStatus(model.PhaseIdle, nil, closed)
	assert.Contains(t, status, "市场: 已收盘")
	assert.Contains(t, status, "最近分析: 无")

	status = FormatStatus(model.PhaseCollecting, sampleResult(), closed)
	assert.Contains(t, status, "当前阶段: collecting")
	assert.Contains(t, status, "会话: s1")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := "aaaa\nbbbb\ncccc\n"
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, SplitMessage(text, 10))

	long := strings.Repeat("分", 25)
	parts := SplitMessage(long, 10)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestSend_LongMessageSplit(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload sendMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload.ChatID)
		assert.Equal(t, "HTML", payload.ParseMode)
		texts = append(texts, payload.Text)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", logger.Nop())
	tn.APIBase = srv.URL

	line := strings.Repeat("x", 99) + "\n"
	require.NoError(t, tn.SendWithRetry(context.Background(), strings.Repeat(line, 50), 0))
	require.Len(t, texts, 2)
	assert.Len(t, texts[0], 4000)
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", logger.Nop())
	tn.APIBase = srv.URL
	err := tn.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSend_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", logger.Nop())
	tn.APIBase = srv.URL
	err := tn.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestStartPolling_HandlesCommands(t *testing.T) {
	var polls atomic.Int32
	replies := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			var req getUpdatesRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /status ","chat":{"id":42}}},
					{"update_id":8,"message":{"text":"/status","chat":{"id":99}}}
				]}`))
				return
			}
			assert.Equal(t, 9, req.Offset)
			<-r.Context().Done()
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload sendMessageRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			replies <- payload.Text
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", logger.Nop())
	tn.APIBase = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var commands []string
	go func() {
		defer close(done)
		tn.StartPolling(ctx, func(cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "reply to /status", reply)
	case <-time.After(3 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
	assert.Equal(t, []string{"/status"}, commands)
}
