package analyzer

import (
	"fmt"

	"MarketDigest/internal/model"
)

func instrumentPrompt(name, facts string) string {
	return fmt.Sprintf(`你是我的资本市场分析助手，拥有丰富的炒股实战经验，尤其对A股市场风格有深刻的理解。请基于以下 %s 的市场数据，给出专业的投资分析和可落地的实施方案建议：

%s

分析要求：
1. 简述近期走势（根据3天行情判断）
2. 解读主力资金动向
3. 结合A股市场特点，给出具体可操作的实施方案建议

请用中文回答，保持客观专业，控制在200字以内。`, name, facts)
}

func technicalPrompt(name, facts string) string {
	return fmt.Sprintf(`你是专业的市场分析师，擅长技术分析和实战策略。请基于以下 %s 的数据，进行支撑位和压力位分析，并给出入场时机建议：

%s

分析要求：
1. **支撑位分析**：识别关键支撑位（至少 2 个），说明理由
2. **压力位分析**：识别关键压力位（至少 2 个），说明理由
3. **入场时机建议**：给出具体的入场点位区间和止损位
4. **风险提示**：简要提醒主要风险因素

请用中文回答，保持客观专业，控制在 300 字以内。直接给出分析结果，不需要客套话。`, name, facts)
}

func summaryPrompt(content string) string {
	return fmt.Sprintf(`请基于以下多标的分析数据，进行一个简短的市场综合总结：

%s

总结要求：
1. 概括当前整体市场情绪（结合各标的表现）
2. 提醒潜在的系统性风险或机会

请用中文回答，专业干练，控制在150字以内。`, content)
}

func industryPrompt(name, data string) string {
	return fmt.Sprintf(`你是专业的行业研究员。请对 %s 行业进行周期性分析。

%s

分析要求：
1. **当前周期**: 简洁描述（如：下行周期底部区域、政策驱动上升期等）
2. **周期位置**: 4-6个字（如：底部向上拐点、稳步上升等）
3. **持续时间**: 预估当前阶段已持续或将持续的时间
4. **深度分析**: 100字以内的专业行业逻辑分析

请严格按照以下格式回答，不要有任何多余文字：
当前周期: [内容]
周期位置: [内容]
持续时间: [内容]
分析: [内容]`, name, data)
}

// industryData renders the realtime line handed to the industry prompt.
func industryData(q *model.Quote) string {
	if q == nil {
		return "暂无实时数据，请根据你的知识储备进行分析。"
	}
	return fmt.Sprintf("实时行情数据: 最新价 %.2f，涨跌幅: %.2f%%，涨跌额 %.2f，成交额 %s 亿",
		q.Price, q.ChangePercent, q.ChangeAmount, model.FormatYi(q.Turnover))
}
