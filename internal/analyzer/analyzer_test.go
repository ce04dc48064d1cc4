package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketDigest/internal/fallback"
	"MarketDigest/internal/model"
	"MarketDigest/internal/oracle"
)

type stubInvoker struct {
	out     oracle.Outcome
	prompts []string
}

func (s *stubInvoker) Invoke(_ context.Context, prompt string, _ time.Duration) oracle.Outcome {
	s.prompts = append(s.prompts, prompt)
	return s.out
}

func usableFacts() model.InstrumentFacts {
	return model.InstrumentFacts{
		Instrument: model.Instrument{Code: "600036", Name: "招商银行", SecID: "1.600036"},
		Quote:      &model.Quote{Price: 35.2, ChangePercent: 1.5},
		History:    []model.HistoricalBar{{Close: 35.2, ChangePercent: 1.5}},
		MoneyFlow:  []model.MoneyFlowRecord{{MainNet: 2e8}},
	}
}

func TestAnalyzeInstrument_ProvenanceByOutcome(t *testing.T) {
	tests := []struct {
		out  oracle.Outcome
		want model.Provenance
	}{
		{oracle.Outcome{Kind: oracle.KindSuccess, Text: "稳健向上"}, model.ProvenanceOracle},
		{oracle.Outcome{Kind: oracle.KindRefused, Text: "抱歉，我无法提供投资建议"}, model.ProvenanceFallback},
		{oracle.Outcome{Kind: oracle.KindTimedOut}, model.ProvenanceFallback},
		{oracle.Outcome{Kind: oracle.KindUnavailable, Reason: "not installed"}, model.ProvenanceFallback},
		{oracle.Outcome{Kind: oracle.KindFailed, Reason: "exit 1"}, model.ProvenanceFallback},
	}
	for _, tt := range tests {
		t.Run(string(tt.out.Kind), func(t *testing.T) {
			inv := &stubInvoker{out: tt.out}
			res := New(inv, fallback.New(), time.Second).AnalyzeInstrument(context.Background(), usableFacts(), "facts")

			assert.Equal(t, tt.want, res.Provenance)
			assert.Equal(t, string(tt.out.Kind), res.Outcome)
			assert.Equal(t, "招商银行", res.Topic)
			assert.NotEmpty(t, res.Text)
			assert.Nil(t, res.Structured)
			assert.Len(t, inv.prompts, 1)
			if tt.want == model.ProvenanceFallback {
				assert.NotContains(t, res.Text, "抱歉")
				assert.Contains(t, res.Text, fallback.Disclaimer)
				assert.Contains(t, res.Text, "上涨 1.50%")
				assert.Contains(t, res.Text, "净流入 2.00 亿元")
			} else {
				assert.Equal(t, "稳健向上", res.Text)
			}
		})
	}
}

func TestAnalyzeInstrument_NoData(t *testing.T) {
	inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindSuccess, Text: "x"}}
	facts := model.InstrumentFacts{
		Instrument: model.Instrument{Name: "招商银行"},
		Quote:      &model.Quote{Price: 1},
	}
	res := New(inv, nil, time.Second).AnalyzeInstrument(context.Background(), facts, "facts")

	assert.Equal(t, NoDataText, res.Text)
	assert.Equal(t, model.ProvenanceSentinel, res.Provenance)
	assert.Empty(t, inv.prompts, "oracle is not consulted")
}

func TestAnalyzeInstrument_PromptEmbedsFacts(t *testing.T) {
	inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindSuccess, Text: "ok"}}
	a := New(inv, nil, time.Second)

	a.AnalyzeInstrument(context.Background(), usableFacts(), "| 2025-01-08 | 35.20 |")
	require.Len(t, inv.prompts, 1)
	assert.Contains(t, inv.prompts[0], "招商银行 的市场数据")
	assert.Contains(t, inv.prompts[0], "| 2025-01-08 | 35.20 |")
	assert.Contains(t, inv.prompts[0], "200字以内")

	tech := usableFacts()
	tech.Technical = &model.TechnicalLevels{MA250: 30, High20: 36, Low20: 33}
	a.AnalyzeInstrument(context.Background(), tech, "facts")
	assert.Contains(t, inv.prompts[1], "支撑位")
}

func TestAnalyzeInstrument_FallbackFromHistory(t *testing.T) {
	facts := usableFacts()
	facts.Quote = nil
	facts.History[0].ChangePercent = -2.5
	inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindFailed}}

	res := New(inv, nil, time.Second).AnalyzeInstrument(context.Background(), facts, "facts")
	assert.Contains(t, res.Text, "下跌 2.50%")
}

func TestAnalyzeIndustry(t *testing.T) {
	t.Run("oracle structured reply", func(t *testing.T) {
		inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindSuccess,
			Text: "**当前周期:** 政策驱动上升期\n周期位置: 稳步上升\n持续时间: 约1年\n分析: 订单饱满"}}
		res := New(inv, nil, time.Second).AnalyzeIndustry(context.Background(),
			model.IndustryFacts{Name: "军工", SecID: "90.BK0424", Quote: &model.Quote{Price: 1500, ChangePercent: 1.2}})

		assert.Equal(t, model.ProvenanceOracle, res.Provenance)
		require.NotNil(t, res.Structured)
		assert.Equal(t, "政策驱动上升期", res.Structured.PhaseText())
		assert.Equal(t, "稳步上升", res.Structured.PositionText())
		assert.Equal(t, "约1年", res.Structured.DurationText())
		assert.Equal(t, "订单饱满", res.Structured.Body)
		assert.Contains(t, inv.prompts[0], "涨跌幅: 1.20%")
	})

	t.Run("oracle free text", func(t *testing.T) {
		inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindSuccess, Text: "军工行业整体向好。"}}
		res := New(inv, nil, time.Second).AnalyzeIndustry(context.Background(), model.IndustryFacts{Name: "军工"})

		require.NotNil(t, res.Structured)
		assert.Equal(t, model.Unknown, res.Structured.PhaseText())
		assert.Equal(t, "军工行业整体向好。", res.Structured.Body)
		assert.Contains(t, inv.prompts[0], "暂无实时数据")
	})

	t.Run("fallback is parsed too", func(t *testing.T) {
		inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindTimedOut}}
		res := New(inv, nil, time.Second).AnalyzeIndustry(context.Background(),
			model.IndustryFacts{Name: "光伏", Quote: &model.Quote{ChangePercent: -3}})

		assert.Equal(t, model.ProvenanceFallback, res.Provenance)
		require.NotNil(t, res.Structured)
		assert.Equal(t, "下行期", res.Structured.PhaseText())
		assert.Equal(t, "待观察", res.Structured.DurationText())
		assert.True(t, strings.HasPrefix(res.Structured.Body, "光伏大幅下跌 3.00%"))
	})
}

func TestSummarize(t *testing.T) {
	inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindUnavailable}}
	res := New(inv, nil, time.Second).Summarize(context.Background(), "# 报告\n- **涨跌幅**: 0.80%")

	assert.Equal(t, SummaryTopic, res.Topic)
	assert.Equal(t, model.ProvenanceFallback, res.Provenance)
	assert.NotEmpty(t, res.Text)
	assert.Contains(t, inv.prompts[0], "150字以内")
}

func TestSummarize_FallbackReadsRenderedSections(t *testing.T) {
	inv := &stubInvoker{out: oracle.Outcome{Kind: oracle.KindTimedOut}}
	content := "| 2025-03-13 | 3456.90 | 5.00% | 2985.00 | 1.10% |\n" +
		"- **涨跌幅**: -2.00%\n" +
		"| 日期 | 主力净流入(亿) | 超大单(亿) | 大单(亿) |\n" +
		"|------|---------------|-----------|---------|\n" +
		"| [TODAY]2025-03-14 | -1.20 | -0.50 | -0.70 |\n"

	res := New(inv, nil, time.Second).Summarize(context.Background(), content)
	assert.Equal(t, model.ProvenanceFallback, res.Provenance)
	assert.Contains(t, res.Text, "下跌 2.00%")
	assert.NotContains(t, res.Text, "5.00%")
	assert.Contains(t, res.Text, "主力资金净流出 1.20 亿元")
}
