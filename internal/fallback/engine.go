package fallback

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"MarketDigest/internal/model"
)

// Disclaimer is appended verbatim to every generated text.
const Disclaimer = "*注：以上内容由规则模板生成，仅供参考，不构成投资建议。投资有风险，入市需谨慎。*"

// Facts is what the engine can read. Structured values win over values
// recovered from Text.
type Facts struct {
	Text          string
	Price         *float64
	ChangePercent *float64
	MainNetInflow *float64 // yuan
	Technical     *model.TechnicalLevels
}

var (
	labeledPctRe = regexp.MustCompile(`涨跌幅\s*[:：]\s*([+-]?\d+(?:\.\d+)?)\s*%`)
	anyPctRe     = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*%`)
	inflowRe     = regexp.MustCompile(`主力净流入\s*[:：]\s*([+-]?\d+(?:\.\d+)?)\s*(亿|万)?`)
)

// flowColumn is the money-flow table header cell; its values are in 亿.
const flowColumn = "主力净流入(亿)"


// Engine produces deterministic analyses from facts alone. It never fails.
type Engine struct {
	templates []template
}

// New creates an engine with the built-in topic templates.
func New() *Engine {
	return &Engine{templates: defaultTemplates}
}

// Analyze returns a free-form analysis for topic.
func (e *Engine) Analyze(topic string, facts Facts) (text string) {
	defer e.recoverTo(topic, &text)

	sig := extract(facts)
	tpl := e.pick(topic)

	var sb strings.Builder
	sb.WriteString(tpl.headline(topic, sig))
	if clause := flowClause(sig); clause != "" {
		sb.WriteString(clause)
	}
	if facts.Technical != nil && sig.price != nil {
		sb.WriteString("\n\n")
		sb.WriteString(technicalBlock(*sig.price, sig.change, facts.Technical))
	}
	sb.WriteString("\n\n")
	sb.WriteString(Disclaimer)
	return sb.String()
}

// AnalyzeCycle returns the four-label cyclical format for an industry.
func (e *Engine) AnalyzeCycle(topic string, facts Facts) (text string) {
	defer e.recoverTo(topic, &text)

	sig := extract(facts)
	tpl := e.pick(topic)
	phase, position := cyclePhase(sig.change)

	body := tpl.headline(topic, sig) + flowClause(sig) + " " + Disclaimer
	return fmt.Sprintf("当前周期: %s\n周期位置: %s\n持续时间: 待观察\n分析: %s", phase, position, body)
}

func (e *Engine) recoverTo(topic string, text *string) {
	if r := recover(); r != nil {
		log.Error().Str("topic", topic).Interface("panic", r).Msg("fallback template panicked")
		*text = topic + "暂无可用的行情信号，建议保持观望。\n\n" + Disclaimer
	}
}

func (e *Engine) pick(topic string) template {
	for _, t := range e.templates {
		for _, kw := range t.keywords {
			if strings.Contains(topic, kw) {
				return t
			}
		}
	}
	return genericTemplate
}

type signals struct {
	price  *float64
	change *float64
	inflow *float64 // yuan
}

func extract(f Facts) signals {
	sig := signals{price: f.Price, change: f.ChangePercent, inflow: f.MainNetInflow}
	text := strings.ReplaceAll(f.Text, "**", "")
	if sig.change == nil {
		sig.change = matchPercent(text)
	}
	if sig.inflow == nil {
		sig.inflow = matchInflow(text)
	}
	if sig.inflow == nil {
		sig.inflow = matchFlowTable(text)
	}
	return sig
}

func matchPercent(text string) *float64 {
	m := labeledPctRe.FindStringSubmatch(text)
	if m == nil {
		m = anyPctRe.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// matchFlowTable reads the newest row of the first money-flow table.
func matchFlowTable(text string) *float64 {
	col := -1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if col < 0 {
			if strings.HasPrefix(line, "|") && strings.Contains(line, flowColumn) {
				for i, cell := range strings.Split(line, "|") {
					if strings.TrimSpace(cell) == flowColumn {
						col = i
					}
				}
			}
			continue
		}
		if !strings.HasPrefix(line, "|") {
			return nil
		}
		if strings.Trim(line, "|-: ") == "" {
			continue
		}
		cells := strings.Split(line, "|")
		if col >= len(cells) {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cells[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		v *= 1e8
		return &v
	}
	return nil
}

func matchInflow(text string) *float64 {
	m := inflowRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch m[2] {
	case "亿":
		v *= 1e8
	case "万":
		v *= 1e4
	}
	return &v
}

func flowClause(sig signals) string {
	if sig.inflow == nil {
		return ""
	}
	yi := model.FormatYi(math.Abs(*sig.inflow))
	switch {
	case *sig.inflow > 0:
		return fmt.Sprintf("主力资金净流入 %s 亿元，资金面偏积极。", yi)
	case *sig.inflow < 0:
		return fmt.Sprintf("主力资金净流出 %s 亿元，短线承压。", yi)
	default:
		return "主力资金进出基本平衡。"
	}
}

func cyclePhase(change *float64) (phase, position string) {
	if change == nil {
		return "震荡期", "待确认"
	}
	c := *change
	switch {
	case c >= 2:
		return "上升期", "加速上行"
	case c > 0:
		return "复苏期", "底部回升"
	case c == 0:
		return "震荡期", "方向未明"
	case c > -2:
		return "调整期", "高位回落"
	default:
		return "下行期", "加速下探"
	}
}

// technicalBlock renders support and resistance from long-horizon levels.
func technicalBlock(price float64, change *float64, lv *model.TechnicalLevels) string {
	chg := 0.0
	if change != nil {
		chg = *change
	}
	var sb strings.Builder
	sb.WriteString("**技术面分析**：\n")
	fmt.Fprintf(&sb, "- 当前点位：%.2f，涨跌幅 %+.2f%%\n", price, chg)
	fmt.Fprintf(&sb, "- 近 20 日区间：%.2f - %.2f\n", lv.Low20, lv.High20)
	fmt.Fprintf(&sb, "- 长期趋势线：250 日均线 %.2f\n", lv.MA250)
	fmt.Fprintf(&sb, "- RSI(14)：%.1f\n\n", lv.RSI14)
	sb.WriteString("**支撑位**：\n")
	fmt.Fprintf(&sb, "1. %.0f（近 20 日低点）\n", lv.Low20)
	fmt.Fprintf(&sb, "2. %.0f（250 日均线）\n\n", math.Trunc(lv.MA250))
	sb.WriteString("**压力位**：\n")
	fmt.Fprintf(&sb, "1. %.0f（近 20 日高点）\n", lv.High20)
	fmt.Fprintf(&sb, "2. %.0f（前期平台）\n\n", math.Trunc(lv.High20*1.05))
	sb.WriteString("**操作建议**：\n")
	fmt.Fprintf(&sb, "- 激进型：可在 %.0f-%.0f 区间轻仓试多\n", math.Trunc(price*0.98), math.Trunc(price*0.99))
	fmt.Fprintf(&sb, "- 稳健型：等待回踩 %.0f 附近再考虑入场\n", math.Trunc(lv.Low20))
	fmt.Fprintf(&sb, "- 止损位：%.0f", math.Trunc(lv.Low20*0.97))
	return sb.String()
}
