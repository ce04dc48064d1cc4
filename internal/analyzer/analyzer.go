package analyzer

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"MarketDigest/internal/fallback"
	"MarketDigest/internal/model"
	"MarketDigest/internal/oracle"
	"MarketDigest/internal/parser"
)

// NoDataText replaces an instrument analysis when nothing was fetched.
const NoDataText = "*因数据获取失败，无法进行 AI 分析*"

// SummaryTopic names the cross-instrument summary analysis.
const SummaryTopic = "市场综合总结"

// Invoker is the oracle contract the analyzer depends on.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, timeout time.Duration) oracle.Outcome
}

// Analyzer runs one oracle attempt per topic and substitutes the rule based
// engine when the attempt is unusable.
type Analyzer struct {
	oracle   Invoker
	fallback *fallback.Engine
	timeout  time.Duration
}

// New creates an Analyzer.
func New(inv Invoker, fb *fallback.Engine, timeout time.Duration) *Analyzer {
	if fb == nil {
		fb = fallback.New()
	}
	return &Analyzer{oracle: inv, fallback: fb, timeout: timeout}
}

// AnalyzeInstrument produces the free-form analysis for one instrument.
// facts is the rendered fact section embedded in the prompt.
func (a *Analyzer) AnalyzeInstrument(ctx context.Context, in model.InstrumentFacts, facts string) model.AnalysisResult {
	name := in.Instrument.Name
	if !in.HasUsableData() {
		log.Warn().Str("instrument", name).Msg("no history or flow, skipping analysis")
		return model.AnalysisResult{Topic: name, Text: NoDataText, Provenance: model.ProvenanceSentinel}
	}

	prompt := instrumentPrompt(name, facts)
	if in.Technical != nil {
		prompt = technicalPrompt(name, facts)
	}
	return a.run(ctx, name, prompt, false, instrumentFallbackFacts(in, facts))
}

// AnalyzeIndustry produces the four-label cyclical analysis for an industry.
func (a *Analyzer) AnalyzeIndustry(ctx context.Context, ind model.IndustryFacts) model.AnalysisResult {
	data := industryData(ind.Quote)
	ff := fallback.Facts{Text: data}
	if ind.Quote != nil {
		chg := ind.Quote.ChangePercent
		price := ind.Quote.Price
		ff.ChangePercent = &chg
		ff.Price = &price
	}
	return a.run(ctx, ind.Name, industryPrompt(ind.Name, data), true, ff)
}

// Summarize produces the cross-instrument summary over the report so far.
func (a *Analyzer) Summarize(ctx context.Context, content string) model.AnalysisResult {
	return a.run(ctx, SummaryTopic, summaryPrompt(content), false, fallback.Facts{Text: content})
}

func (a *Analyzer) run(ctx context.Context, topic, prompt string, structured bool, ff fallback.Facts) model.AnalysisResult {
	out := a.oracle.Invoke(ctx, prompt, a.timeout)
	res := model.AnalysisResult{Topic: topic, Outcome: string(out.Kind)}

	if out.OK() {
		res.Text = out.Text
		res.Provenance = model.ProvenanceOracle
	} else {
		log.Warn().Str("topic", topic).Str("outcome", out.String()).Msg("oracle unusable, using fallback")
		if structured {
			res.Text = a.fallback.AnalyzeCycle(topic, ff)
		} else {
			res.Text = a.fallback.Analyze(topic, ff)
		}
		res.Provenance = model.ProvenanceFallback
	}

	if structured {
		fields := parser.Parse(res.Text)
		res.Structured = &fields
	}
	return res
}

func instrumentFallbackFacts(in model.InstrumentFacts, text string) fallback.Facts {
	ff := fallback.Facts{Text: text, Technical: in.Technical}
	if q := in.Quote; q != nil {
		price, chg := q.Price, q.ChangePercent
		ff.Price = &price
		ff.ChangePercent = &chg
	} else if len(in.History) > 0 {
		price, chg := in.History[0].Close, in.History[0].ChangePercent
		ff.Price = &price
		ff.ChangePercent = &chg
	}
	if len(in.MoneyFlow) > 0 {
		main := in.MoneyFlow[0].MainNet
		ff.MainNetInflow = &main
	}
	return ff
}
