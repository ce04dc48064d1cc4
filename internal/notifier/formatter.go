package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketDigest/internal/model"
)

// FormatRunSummary formats a finished run for the operator chat.
func FormatRunSummary(s model.RunSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>市场分析报告</b> | %s\n\n", s.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("触发方式: %s\n", s.Trigger))
	b.WriteString(fmt.Sprintf("标的数量: %d\n", s.Instruments))
	b.WriteString(fmt.Sprintf("分析来源: AI %d | 规则 %d | 占位 %d\n", s.OracleCount, s.FallbackCount, s.SentinelCount))
	if !s.HasUsableData {
		b.WriteString("⚠️ 所有标的数据获取失败\n")
	}
	if !s.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("耗时: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second)))
	}
	if s.ReportPath != "" {
		b.WriteString(fmt.Sprintf("报告文件: <code>%s</code>\n", html.EscapeString(s.ReportPath)))
	}

	if s.Delivered {
		b.WriteString("\n邮件已发送 ✅")
	} else {
		note := s.DeliveryNote
		if note == "" {
			note = "未发送"
		}
		b.WriteString(fmt.Sprintf("\n邮件未送达 ❌ %s", html.EscapeString(note)))
	}
	return b.String()
}

// FormatAlert formats a failure the operator should look at.
func FormatAlert(title string, err error) string {
	return fmt.Sprintf("🚨 <b>%s</b>\n\n<code>%s</code>", html.EscapeString(title), html.EscapeString(err.Error()))
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "可用命令:\n/run - 立即生成报告\n/last - 查看最近一次运行\n/help - 显示帮助"
}
