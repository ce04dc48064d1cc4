package fallback

import (
	"fmt"
	"math"
)

// template is a topic narrative. Topics are matched by keyword substring in
// declaration order; the first hit wins.
type template struct {
	keywords []string
	up       string
	down     string
	flat     string
	noSignal string
}

var defaultTemplates = []template{
	{
		keywords: []string{"银行"},
		up:       "银行股估值修复预期升温，高股息特征对稳健资金仍有吸引力。",
		down:     "银行板块随大盘回调，息差收窄压力仍需跟踪，可关注分红确定性。",
		flat:     "银行板块窄幅整理，防御属性明显。",
		noSignal: "银行板块以稳健为主，建议关注息差与资产质量变化。",
	},
	{
		keywords: []string{"白酒", "酒"},
		up:       "消费情绪回暖，白酒龙头估值存在修复空间。",
		down:     "白酒板块承压，需关注渠道库存与终端动销情况。",
		flat:     "白酒板块横盘整理，等待消费数据指引方向。",
		noSignal: "白酒板块受消费复苏节奏影响较大，建议跟踪动销与批价。",
	},
	{
		keywords: []string{"沪深300", "指数", "上证", "创业板"},
		up:       "大盘蓝筹走强，市场风险偏好有所回升。",
		down:     "大盘回调，短线情绪偏谨慎，关注关键支撑位得失。",
		flat:     "大盘维持震荡格局，量能变化是判断方向的关键。",
		noSignal: "大盘整体处于震荡区间，建议控制仓位、分批布局。",
	},
	{
		keywords: []string{"军工", "半导体", "猪肉", "光伏", "新能源"},
		up:       "行业景气度有所回升，资金关注度提升。",
		down:     "行业处于调整阶段，需等待基本面拐点信号确认。",
		flat:     "行业走势平稳，处于观察窗口。",
		noSignal: "行业具备明显周期属性，建议结合供需与政策节奏判断位置。",
	},
}

var genericTemplate = template{
	up:       "短线走势偏强，可继续跟踪量能配合情况。",
	down:     "短线走势偏弱，注意控制回撤风险。",
	flat:     "走势平稳，暂无明确方向信号。",
	noSignal: "暂无足够的量化信号，建议保持观望并关注后续数据。",
}

func (t template) headline(topic string, sig signals) string {
	if sig.change == nil {
		if sig.inflow == nil {
			return fmt.Sprintf("%s暂无可用的行情数据。%s", topic, t.noSignal)
		}
		return fmt.Sprintf("%s暂无涨跌数据。%s", topic, t.noSignal)
	}
	c := *sig.change
	abs := math.Abs(c)
	switch {
	case c >= 3:
		return fmt.Sprintf("%s大幅上涨 %.2f%%，%s", topic, abs, t.up)
	case c >= 1:
		return fmt.Sprintf("%s上涨 %.2f%%，%s", topic, abs, t.up)
	case c > 0:
		return fmt.Sprintf("%s小幅上涨 %.2f%%，%s", topic, abs, t.up)
	case c == 0:
		return fmt.Sprintf("%s平盘报收，%s", topic, t.flat)
	case c > -1:
		return fmt.Sprintf("%s小幅下跌 %.2f%%，%s", topic, abs, t.down)
	case c > -3:
		return fmt.Sprintf("%s下跌 %.2f%%，%s", topic, abs, t.down)
	default:
		return fmt.Sprintf("%s大幅下跌 %.2f%%，%s", topic, abs, t.down)
	}
}
