package scoring

import (
	"math"

	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

// NormalizedScores 三维标准化分数
type NormalizedScores struct {
	Profit      float64
	Position    float64
	Performance float64
}

// Weights 三维主权重
type Weights struct {
	Profit      float64
	Position    float64
	Performance float64
}

// WeightsFrom 从权重配置提取主权重
func WeightsFrom(cfg *model.WeightConfig) Weights {
	return Weights{
		Profit:      cfg.ProfitWeight,
		Position:    cfg.PositionWeight,
		Performance: cfg.PerformanceWeight,
	}
}

// Combiner 综合得分合成器
type Combiner interface {
	// Combine 将三维标准化分数合成为单一综合分数
	Combine(scores NormalizedScores, weights Weights) float64
	// Method 返回计算方法
	Method() model.CalculationMethod
}

// NewCombiner 按方法创建合成器
func NewCombiner(method model.CalculationMethod) (Combiner, error) {
	switch method {
	case model.CalcWeightedSum:
		return weightedSumCombiner{}, nil
	case model.CalcWeightedProduct:
		return weightedProductCombiner{}, nil
	case model.CalcHybrid:
		return hybridCombiner{}, nil
	default:
		return nil, errors.UnsupportedMethod("计算方法", string(method))
	}
}

// weightedSumCombiner 加权求和：Σ(标准化分数 × 权重)
type weightedSumCombiner struct{}

func (weightedSumCombiner) Method() model.CalculationMethod { return model.CalcWeightedSum }

func (weightedSumCombiner) Combine(s NormalizedScores, w Weights) float64 {
	return s.Profit*w.Profit + s.Position*w.Position + s.Performance*w.Performance
}

// weightedProductCombiner 加权乘积：Π((加权分数+1)^权重) − 1
// 先对各维度做加权（weighted_i = normalized_i × weight_i），
// +1 保证各因子在幂运算前非负
type weightedProductCombiner struct{}

func (weightedProductCombiner) Method() model.CalculationMethod { return model.CalcWeightedProduct }

func (weightedProductCombiner) Combine(s NormalizedScores, w Weights) float64 {
	product := math.Pow(s.Profit*w.Profit+1, w.Profit) *
		math.Pow(s.Position*w.Position+1, w.Position) *
		math.Pow(s.Performance*w.Performance+1, w.Performance)
	return product - 1
}

// hybridCombiner 混合：0.7×加权求和 + 0.3×加权乘积
// 乘积部分固定使用 1/3 等权重，不受配置主权重影响
type hybridCombiner struct{}

func (hybridCombiner) Method() model.CalculationMethod { return model.CalcHybrid }

func (hybridCombiner) Combine(s NormalizedScores, w Weights) float64 {
	sum := weightedSumCombiner{}.Combine(s, w)
	equal := Weights{Profit: 1.0 / 3, Position: 1.0 / 3, Performance: 1.0 / 3}
	product := weightedProductCombiner{}.Combine(s, equal)
	return 0.7*sum + 0.3*product
}
