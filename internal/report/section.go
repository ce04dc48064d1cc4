package report

import (
	"fmt"
	"strings"
	"time"

	"MarketDigest/internal/model"
)

// TodayMarker prefixes the table row whose date is the report date.
const TodayMarker = "[TODAY]"

// Placeholders written in place of a failed fetch.
const (
	QuoteFailed   = "*实时行情获取失败*"
	HistoryFailed = "*行情数据获取失败*"
	FlowFailed    = "*资金流向获取失败*"
	SectorFailed  = "*热门板块数据获取失败*"
	CycleFailed   = "*周期性行业分析失败*"
)

// RenderSection renders the fact tables for one instrument. The same text is
// embedded in the oracle prompt and in the final document.
func RenderSection(f model.InstrumentFacts, days int, now time.Time) string {
	var b strings.Builder
	today := now.Format(model.DateLayout)

	b.WriteString(fmt.Sprintf("## [%s (%s)] 分析模块\n\n", f.Instrument.Name, f.Instrument.Code))

	b.WriteString("### 实时行情\n")
	if q := f.Quote; q != nil {
		b.WriteString(fmt.Sprintf("- **最新价**: %.2f\n", q.Price))
		b.WriteString(fmt.Sprintf("- **涨跌幅**: %.2f%%\n", q.ChangePercent))
		b.WriteString(fmt.Sprintf("- **涨跌额**: %.2f\n", q.ChangeAmount))
		b.WriteString(fmt.Sprintf("- **成交额**: %s 亿\n", model.FormatYi(q.Turnover)))
	} else {
		b.WriteString(QuoteFailed + "\n")
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("### 行情数据（最近%d天）\n", days))
	if len(f.History) > 0 {
		b.WriteString("| 日期 | 收盘价 | 涨跌幅 | 成交额(亿) | 振幅 |\n")
		b.WriteString("|------|--------|--------|------------|------|\n")
		for _, bar := range f.History {
			b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f%% | %s | %.2f%% |\n",
				markToday(bar.Date, today), bar.Close, bar.ChangePercent, model.FormatYi(bar.Turnover), bar.Amplitude))
		}
	} else {
		b.WriteString(HistoryFailed + "\n")
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("### 资金流向（最近%d天）\n", days))
	if len(f.MoneyFlow) > 0 {
		b.WriteString("| 日期 | 主力净流入(亿) | 超大单(亿) | 大单(亿) |\n")
		b.WriteString("|------|----------------|------------|----------|\n")
		for _, rec := range f.MoneyFlow {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				markToday(rec.Date, today), model.FormatYi(rec.MainNet), model.FormatYi(rec.SuperLarge), model.FormatYi(rec.LargeNet)))
		}
	} else {
		b.WriteString(FlowFailed + "\n")
	}
	b.WriteString("\n")

	if lv := f.Technical; lv != nil {
		b.WriteString("### 技术指标\n")
		b.WriteString(fmt.Sprintf("- **近 20 日最高**: %.2f\n", lv.High20))
		b.WriteString(fmt.Sprintf("- **近 20 日最低**: %.2f\n", lv.Low20))
		b.WriteString(fmt.Sprintf("- **250 日均线**: %.2f\n", lv.MA250))
		b.WriteString(fmt.Sprintf("- **RSI(14)**: %.1f\n", lv.RSI14))
		b.WriteString("\n")
	}

	return b.String()
}

func markToday(d time.Time, today string) string {
	s := d.Format(model.DateLayout)
	if s == today {
		return TodayMarker + s
	}
	return s
}
