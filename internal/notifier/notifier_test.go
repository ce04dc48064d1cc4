package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketDigest/internal/model"
)

const sampleReport = `# 股票/基金智能分析报告 - 2025-03-14

## [沪深300 (000300)] 分析模块

### 行情数据（最近3天）
| 日期 | 收盘价 | 涨跌幅 |
|------|--------|--------|
| [TODAY]2025-03-14 | 3500.12 | 1.25% |
| 2025-03-13 | 3456.90 | -0.30% |

- **最新价**: 3500.12

---
`

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("报告 <1>", sampleReport, 2025)
	require.NoError(t, err)

	assert.Contains(t, page, "<title>报告 &lt;1&gt;</title>")
	assert.Contains(t, page, `<table style="border-collapse: collapse;`)
	assert.Contains(t, page, `<h1 style="color: #2c3e50;`)
	assert.Contains(t, page, `<strong style="color: #e74c3c;">`)
	assert.Contains(t, page, `<hr style=`)
	assert.Contains(t, page, "© 2025")
	assert.NotContains(t, page, "[TODAY]")
	assert.Equal(t, 1, strings.Count(page, `<tr style="background-color: #fff9c4;">`))

	hl := strings.Index(page, "#fff9c4")
	today := strings.Index(page, ">2025-03-14<")
	yesterday := strings.Index(page, ">2025-03-13<")
	assert.True(t, hl < today && today < yesterday)
}

func TestEmailSender_NotConfigured(t *testing.T) {
	e := NewEmailSender("smtp.example.com", 465, "", "", "", "助手")
	assert.False(t, e.Configured())
	err := e.Send(context.Background(), "s", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEmailSender_BuildMessage(t *testing.T) {
	e := NewEmailSender("smtp.example.com", 465, "bot@example.com", "code", "me@example.com", "市场分析助手")
	e.now = func() time.Time { return time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC) }

	raw, err := e.BuildMessage("股票/基金智能分析报告 - 2025-03-14", sampleReport)
	require.NoError(t, err)

	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "股票/基金智能分析报告 - 2025-03-14", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "bot@example.com", from[0].Address)
	assert.Equal(t, "市场分析助手", from[0].Name)

	var types []string
	var htmlBody string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		h, ok := p.Header.(*mail.InlineHeader)
		require.True(t, ok)
		ct, _, err := h.ContentType()
		require.NoError(t, err)
		types = append(types, ct)
		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		if ct == "text/html" {
			htmlBody = string(body)
		}
	}
	assert.Equal(t, []string{"text/plain", "text/html"}, types)
	assert.Contains(t, htmlBody, "#fff9c4")
	assert.Contains(t, htmlBody, "沪深300")
}

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []string
	failures int
	updates  string
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures > 0 {
				f.failures--
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			var payload map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "42", payload["chat_id"])
			assert.Equal(t, "HTML", payload["parse_mode"])
			f.sent = append(f.sent, payload["text"])
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			body := f.updates
			f.updates = `{"ok":true,"result":[]}`
			if body == "" {
				body = `{"ok":true,"result":[]}`
			}
			w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeTelegram) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestTelegram(t *testing.T, f *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	tg := NewTelegramNotifier("token", "42", "")
	tg.BaseURL = srv.URL
	return tg
}

func TestTelegramSend(t *testing.T) {
	f := &fakeTelegram{}
	tg := newTestTelegram(t, f)
	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, f.messages())
}

func TestTelegramSendWithRetry(t *testing.T) {
	f := &fakeTelegram{failures: 1}
	tg := newTestTelegram(t, f)
	require.NoError(t, tg.SendWithRetry(context.Background(), "alert", 2))
	assert.Equal(t, []string{"alert"}, f.messages())

	f.failures = 10
	err := tg.SendWithRetry(context.Background(), "alert", 0)
	assert.Error(t, err)
}

func TestTelegramPolling(t *testing.T) {
	f := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /last ","chat":{"id":42}}},
		{"update_id":8,"message":{"text":"/run","chat":{"id":99}}}
	]}`}
	tg := newTestTelegram(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
			return "reply:" + cmd
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/last"}, got, "foreign chat is ignored")
	assert.Equal(t, []string{"reply:/last"}, f.messages())
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2025, 3, 14, 15, 30, 0, 0, time.Local)
	s := model.RunSummary{
		Trigger:       "schedule",
		StartedAt:     start,
		FinishedAt:    start.Add(95 * time.Second),
		ReportPath:    "/tmp/r.md",
		Instruments:   3,
		OracleCount:   2,
		FallbackCount: 3,
		SentinelCount: 1,
		HasUsableData: true,
		DeliveryNote:  "email not configured",
	}
	out := FormatRunSummary(s)
	assert.Contains(t, out, "2025-03-14 15:30")
	assert.Contains(t, out, "AI 2 | 规则 3 | 占位 1")
	assert.Contains(t, out, "耗时: 1m35s")
	assert.Contains(t, out, "邮件未送达 ❌ email not configured")
	assert.NotContains(t, out, "所有标的数据获取失败")

	s.Delivered = true
	s.HasUsableData = false
	out = FormatRunSummary(s)
	assert.Contains(t, out, "邮件已发送 ✅")
	assert.Contains(t, out, "所有标的数据获取失败")
}

func TestFormatAlert(t *testing.T) {
	out := FormatAlert("报告生成失败", errors.New("write <dir>: denied"))
	assert.Contains(t, out, "<b>报告生成失败</b>")
	assert.Contains(t, out, "write &lt;dir&gt;: denied")
}
