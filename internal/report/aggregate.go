package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"MarketDigest/internal/model"
)

// NoSummaryText stands in for the summary when no instrument had data.
const NoSummaryText = "*因数据获取失败，无法进行综合总结*"

// Summarizer produces the cross-instrument summary from the document so far.
type Summarizer interface {
	Summarize(ctx context.Context, content string) model.AnalysisResult
}

// Aggregate assembles the composite report. Instruments keep their input
// order. The summarizer is only consulted when at least one instrument has
// history or money flow.
func Aggregate(ctx context.Context, instruments []model.InstrumentReport, sectors []model.SectorSnapshot, sectorErr error,
	industries []model.AnalysisResult, s Summarizer, generatedAt time.Time) model.AggregateReport {

	agg := model.AggregateReport{
		GeneratedAt: generatedAt,
		Instruments: instruments,
		Sectors:     sectors,
		SectorErr:   sectorErr,
		Industries:  industries,
	}
	for _, ir := range instruments {
		if ir.Facts.HasUsableData() {
			agg.HasUsableData = true
			break
		}
	}

	if agg.HasUsableData {
		agg.Summary = s.Summarize(ctx, renderBody(agg))
	} else {
		log.Warn().Int("instruments", len(instruments)).Msg("no usable data, summary skipped")
		agg.Summary = model.AnalysisResult{
			Topic:      "市场综合总结",
			Text:       NoSummaryText,
			Provenance: model.ProvenanceSentinel,
		}
	}
	return agg
}

// Title returns the document title, also used as the mail subject.
func Title(t time.Time) string {
	return "股票/基金智能分析报告 - " + t.Format(model.DateLayout)
}

// Render produces the final markdown document. Output depends only on agg.
func Render(agg model.AggregateReport) string {
	var b strings.Builder
	b.WriteString(renderBody(agg))
	b.WriteString("## 五、市场综合总结\n")
	b.WriteString(agg.Summary.Text)
	b.WriteString("\n\n---\n")
	b.WriteString(fmt.Sprintf("*数据来源: 东方财富 | 报告生成时间: %s*\n", agg.GeneratedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}

func renderBody(agg model.AggregateReport) string {
	var b strings.Builder
	b.WriteString("# " + Title(agg.GeneratedAt) + "\n\n---\n\n")

	for _, ir := range agg.Instruments {
		b.WriteString(ir.Section)
		b.WriteString(fmt.Sprintf("### AI 智能研判 (%s)\n", ir.Facts.Instrument.Name))
		b.WriteString(ir.Analysis.Text)
		b.WriteString("\n\n---\n")
	}

	b.WriteString(renderSectors(agg.Sectors, agg.SectorErr))
	b.WriteString(renderIndustries(agg.Industries))
	return b.String()
}

func renderSectors(sectors []model.SectorSnapshot, err error) string {
	var b strings.Builder
	b.WriteString("## 热门板块分析\n\n")
	if err != nil || len(sectors) == 0 {
		b.WriteString(SectorFailed + "\n\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("### 当前热门板块 TOP %d\n", len(sectors)))
	b.WriteString("| 板块名称 | 涨跌幅 | 资金净流入(亿) |\n")
	b.WriteString("|---------|--------|-------------|\n")
	for _, s := range sectors {
		b.WriteString(fmt.Sprintf("| %s | %.2f%% | %.2f |\n", s.Name, s.ChangePercent, s.NetFlow))
	}
	b.WriteString("\n")
	return b.String()
}

func renderIndustries(industries []model.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("## 周期性行业分析\n\n")
	if len(industries) == 0 {
		b.WriteString(CycleFailed + "\n\n")
		return b.String()
	}
	for _, ind := range industries {
		fields := model.CycleFields{Body: ind.Text}
		if ind.Structured != nil {
			fields = *ind.Structured
		}
		b.WriteString(fmt.Sprintf("### %s 行业\n", ind.Topic))
		b.WriteString(fmt.Sprintf("- **当前周期**: %s\n", fields.PhaseText()))
		b.WriteString(fmt.Sprintf("- **持续时间**: %s\n", fields.DurationText()))
		b.WriteString(fmt.Sprintf("- **周期位置**: %s\n", fields.PositionText()))
		b.WriteString(fmt.Sprintf("- **分析**: %s\n\n", fields.Body))
	}
	return b.String()
}
