package narrative

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"FundPulse/internal/model"
)

// SystemPrompt sets the analyst persona for every narrative request.
const SystemPrompt = `你是一位拥有20年实战经验的资深基金经理，曾管理过百亿级基金规模，擅长技术分析、趋势判断和仓位管理。你的分析风格：
1. 不做简单的阈值判断（不是涨了5%就喊卖、跌了5%就喊买）
2. 会分析趋势的持续性：如果一只基金刚启动上涨趋势（连涨2-3天但动量仍在增强），你会建议继续持有甚至加仓，而不是急着卖
3. 会结合多个维度：连续涨跌天数、动量变化、均线关系(MA5/MA10/MA20)、波动率、历史走势形态
4. 核心策略是"越涨越卖，越跌越买"，但执行时讲究节奏和时机
5. 会给出具体的操作金额或比例建议，而不是模糊的"适当买入"
6. 会关注趋势拐点信号：如连续下跌后首次翻红、连涨后动量衰减等
注意：你的分析仅供参考，不构成投资建议。`

const outputStructure = `请按以下结构输出分析：
1. 大盘环境判断（结合各基金涨跌情况推断市场风格）
2. 逐只基金深度分析（走势判断/预判方向/具体操作建议/关键价位）
3. 组合整体建议（仓位分配/风险平衡）
4. 今日操作清单（具体金额或比例，可执行的操作步骤）`

// FundBrief is everything the prompt says about one fund.
type FundBrief struct {
	Code       string
	Name       string
	Indicators *model.Indicators
	Suggestion *model.Suggestion
	Quote      *model.Quote
	Holding    *model.Holding
}

// BuildUserPrompt renders one structured message covering every fund.
func BuildUserPrompt(funds []FundBrief, window model.PeriodWindow, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请对以下基金组合进行深度分析（数据日期：%s）。\n\n", zhDate(today))

	for _, f := range funds {
		name := f.Name
		if name == "" {
			name = f.Code
		}
		fmt.Fprintf(&b, "【%s】(%s)\n", name, f.Code)

		if c := f.Indicators; c != nil {
			fmt.Fprintf(&b, "  最新净值: %s (%s)\n", Fmt4(c.LastValue), zhDate(time.UnixMilli(c.LastTimestamp)))
			fmt.Fprintf(&b, "  日涨跌: %s\n", FmtPct(c.DailyReturn))
			fmt.Fprintf(&b, "  区间涨跌(%s): %s\n", window, FmtPct(c.PeriodReturn))
			fmt.Fprintf(&b, "  近3日: %s  近5日: %s\n", FmtPct(c.Return3d), FmtPct(c.Return5d))
			fmt.Fprintf(&b, "  %s\n", RunText(c.ConsecutiveRun))
			fmt.Fprintf(&b, "  ROC: %s  波动率: %s\n", FmtPct(c.RateOfChange5d), FmtPct(c.Volatility))
			if c.MA5 != nil {
				ma20 := "N/A"
				if c.MA20 != nil {
					ma20 = Fmt4(*c.MA20)
				}
				fmt.Fprintf(&b, "  MA5: %s  MA20: %s\n", Fmt4(*c.MA5), ma20)
			}
			label := ""
			if f.Suggestion != nil {
				label = f.Suggestion.DisplayName
			}
			fmt.Fprintf(&b, "  综合评分: %.2f  建议: %s\n", c.Score, label)
		}

		if q := f.Quote; q != nil {
			fmt.Fprintf(&b, "  实时估值: %s  估算涨幅: %.2f%%\n", orDash(q.EstimatedValue), q.EstimatedChangePct)
		}

		if h := f.Holding; h != nil && h.Amount > 0 {
			cost := "未设置"
			if h.Cost > 0 {
				cost = strconv.FormatFloat(h.Cost, 'f', -1, 64)
			}
			fmt.Fprintf(&b, "  持仓金额: ¥%s  成本净值: %s\n", strconv.FormatFloat(h.Amount, 'f', -1, 64), cost)
			if f.Indicators != nil && h.Cost > 0 {
				pnlPct := (f.Indicators.LastValue - h.Cost) / h.Cost * 100
				pnlAmt := h.Amount * (f.Indicators.LastValue - h.Cost) / h.Cost
				sign := ""
				if pnlAmt >= 0 {
					sign = "+"
				}
				fmt.Fprintf(&b, "  当前盈亏: %s (%s¥%.0f)\n", FmtPct(pnlPct), sign, pnlAmt)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(outputStructure)
	return b.String()
}

// FmtPct renders a signed percentage with two decimals.
func FmtPct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// Fmt4 renders a NAV with four decimals.
func Fmt4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// RunText describes a consecutive run, e.g. 连续上涨3天.
func RunText(run int) string {
	if run > 0 {
		return fmt.Sprintf("连续上涨%d天", run)
	}
	return fmt.Sprintf("连续下跌%d天", -run)
}

func orDash(v float64) string {
	if v == 0 {
		return "--"
	}
	return Fmt4(v)
}

func zhDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}
