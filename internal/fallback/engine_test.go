package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketDigest/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestAnalyze_NeverEmpty(t *testing.T) {
	e := New()
	inputs := []string{
		"",
		"没有任何数字",
		"%%% 亿 万 :::",
		"涨跌幅: abc%",
		strings.Repeat("x", 10000),
	}
	for _, topic := range []string{"", "招商银行", "未知标的"} {
		for _, in := range inputs {
			out := e.Analyze(topic, Facts{Text: in})
			assert.NotEmpty(t, out)
			assert.True(t, strings.HasSuffix(out, Disclaimer))
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := New()
	facts := Facts{Text: "- 涨跌幅: +1.25%\n- 主力净流入: 3.5亿"}
	first := e.Analyze("沪深300", facts)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Analyze("沪深300", facts))
	}
}

func TestAnalyze_TextSignals(t *testing.T) {
	e := New()

	out := e.Analyze("招商银行", Facts{Text: "- 涨跌幅: -2.10%\n- 主力净流入: -8000万"})
	assert.Contains(t, out, "招商银行下跌 2.10%")
	assert.Contains(t, out, "息差")
	assert.Contains(t, out, "主力资金净流出 0.80 亿元")

	out = e.Analyze("某基金", Facts{Text: "今日收涨 3.6% 左右"})
	assert.Contains(t, out, "大幅上涨 3.60%")
	assert.NotContains(t, out, "主力资金")

	out = e.Analyze("某基金", Facts{Text: "主力净流入：250000000"})
	assert.Contains(t, out, "暂无涨跌数据")
	assert.Contains(t, out, "净流入 2.50 亿元")
}

func TestAnalyze_StructuredWinsOverText(t *testing.T) {
	e := New()
	out := e.Analyze("招商中证白酒指数", Facts{
		Text:          "涨跌幅: -5%",
		ChangePercent: ptr(0.5),
		MainNetInflow: ptr(120_000_000),
	})
	assert.Contains(t, out, "小幅上涨 0.50%")
	assert.Contains(t, out, "白酒龙头", "白酒keyword is matched before 指数")
	assert.Contains(t, out, "净流入 1.20 亿元")
}

func TestAnalyze_NoSignal(t *testing.T) {
	out := New().Analyze("沪深300", Facts{})
	assert.Contains(t, out, "沪深300暂无可用的行情数据")
	assert.Contains(t, out, "控制仓位")
}

func TestAnalyze_Technical(t *testing.T) {
	out := New().Analyze("恒生科技", Facts{
		Price:         ptr(4000),
		ChangePercent: ptr(1.2),
		Technical:     &model.TechnicalLevels{MA250: 3800.7, High20: 4200, Low20: 3900, RSI14: 61.5},
	})
	assert.Contains(t, out, "**支撑位**")
	assert.Contains(t, out, "1. 3900（近 20 日低点）")
	assert.Contains(t, out, "2. 3800（250 日均线）")
	assert.Contains(t, out, "2. 4410（前期平台）")
	assert.Contains(t, out, "可在 3920-3960 区间")
	assert.Contains(t, out, "止损位：3783")
}

func TestAnalyzeCycle_FourLabels(t *testing.T) {
	e := New()
	tests := []struct {
		change *float64
		phase  string
	}{
		{ptr(2.5), "上升期"},
		{ptr(0.3), "复苏期"},
		{ptr(0), "震荡期"},
		{ptr(-0.5), "调整期"},
		{ptr(-4), "下行期"},
		{nil, "震荡期"},
	}
	for _, tt := range tests {
		out := e.AnalyzeCycle("军工", Facts{ChangePercent: tt.change})
		lines := strings.Split(out, "\n")
		if assert.Len(t, lines, 4) {
			assert.Equal(t, "当前周期: "+tt.phase, lines[0])
			assert.True(t, strings.HasPrefix(lines[1], "周期位置: "))
			assert.Equal(t, "持续时间: 待观察", lines[2])
			assert.True(t, strings.HasPrefix(lines[3], "分析: 军工"))
			assert.True(t, strings.HasSuffix(lines[3], Disclaimer))
		}
	}
}

func TestAnalyze_ReportMarkdown(t *testing.T) {
	doc := "## [沪深300 (000300)] 分析模块\n" +
		"| 日期 | 收盘价 | 涨跌幅 | 成交额(亿) | 振幅 |\n" +
		"|------|--------|--------|-----------|------|\n" +
		"| 2025-03-13 | 3456.90 | 5.00% | 2985.00 | 1.10% |\n" +
		"### 实时行情\n" +
		"- **涨跌幅**: -2.00%\n" +
		"### 资金流向（最近3天）\n" +
		"| 日期 | 主力净流入(亿) | 超大单(亿) | 大单(亿) |\n" +
		"|------|---------------|-----------|---------|\n" +
		"| [TODAY]2025-03-14 | 12.50 | 8.00 | 4.50 |\n" +
		"| 2025-03-13 | -3.00 | -1.00 | -2.00 |\n"

	out := New().Analyze("市场综合总结", Facts{Text: doc})
	assert.Contains(t, out, "下跌 2.00%")
	assert.NotContains(t, out, "5.00%")
	assert.Contains(t, out, "主力资金净流入 12.50 亿元")
}

func TestMatchFlowTable(t *testing.T) {
	assert.Nil(t, matchFlowTable("no table here"))
	assert.Nil(t, matchFlowTable("| 日期 | 主力净流入(亿) |\n|---|---|\n| 2025-03-14 | - |\n"))

	v := matchFlowTable("| 日期 | 主力净流入(亿) |\n|---|---|\n| 2025-03-14 | -0.75 |\n")
	require.NotNil(t, v)
	assert.InDelta(t, -75_000_000, *v, 1e-6)
}
