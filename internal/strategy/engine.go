package strategy

import (
	"math"

	"FundPulse/internal/model"
)

// Band is one row of the score table. A score belongs to the first band
// whose Above bound it does not reach.
type Band struct {
	Above      float64 // exclusive upper bound
	Suggestion model.Suggestion
}

// Bands partitions the real line, evaluated top-down. Negative scores mean
// the fund has been falling, which is read as a buying opportunity.
var Bands = []Band{
	{-6, model.Suggestion{Label: "strong-buy", DisplayName: "强烈加仓", ActionText: "建议操作：加仓 30%~50%", Severity: model.SeverityStrongBuy}},
	{-3, model.Suggestion{Label: "buy", DisplayName: "买入", ActionText: "建议操作：加仓 10%~20%", Severity: model.SeverityBuy}},
	{3, model.Suggestion{Label: "hold", DisplayName: "观望", ActionText: "建议操作：维持现仓", Severity: model.SeverityHold}},
	{6, model.Suggestion{Label: "sell", DisplayName: "卖出", ActionText: "建议操作：减仓 10%~20%", Severity: model.SeveritySell}},
	{math.Inf(1), model.Suggestion{Label: "strong-sell", DisplayName: "大幅减仓", ActionText: "建议操作：减仓 20%~30%", Severity: model.SeverityStrongSell}},
}

// Classify maps a composite score to its suggestion. NaN lands in the last band.
func Classify(score float64) model.Suggestion {
	for _, b := range Bands {
		if score < b.Above {
			return b.Suggestion
		}
	}
	return Bands[len(Bands)-1].Suggestion
}

// Suggest classifies indicators, returning nil when there are none.
func Suggest(ind *model.Indicators) *model.Suggestion {
	if ind == nil {
		return nil
	}
	s := Classify(ind.Score)
	return &s
}
