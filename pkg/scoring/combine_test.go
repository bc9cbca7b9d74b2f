package scoring

import (
	"testing"

	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

func TestNewCombiner_Unsupported(t *testing.T) {
	_, err := NewCombiner("average")
	if err == nil {
		t.Fatal("未知计算方法应返回错误")
	}
	if !errors.Is(err, errors.CodeUnsupportedMethod) {
		t.Errorf("错误码 = %s, expected UNSUPPORTED_METHOD", errors.GetCode(err))
	}
}

func TestWeightedSumCombiner(t *testing.T) {
	c, _ := NewCombiner(model.CalcWeightedSum)
	scores := NormalizedScores{Profit: 1.0, Position: 0.5, Performance: 0.2}
	weights := Weights{Profit: 0.5, Position: 0.3, Performance: 0.2}

	// 0.5 + 0.15 + 0.04 = 0.69
	result := c.Combine(scores, weights)
	if !approxEqual(result, 0.69, 1e-9) {
		t.Errorf("Combine() = %v, expected 0.69", result)
	}
}

func TestWeightedProductCombiner(t *testing.T) {
	c, _ := NewCombiner(model.CalcWeightedProduct)
	scores := NormalizedScores{Profit: 1, Position: 1, Performance: 1}
	weights := Weights{Profit: 0.5, Position: 0.3, Performance: 0.2}

	// 1.5^0.5 × 1.3^0.3 × 1.2^0.2 − 1 ≈ 0.3742
	result := c.Combine(scores, weights)
	if !approxEqual(result, 0.3742, 1e-4) {
		t.Errorf("Combine() = %v, expected ≈0.3742", result)
	}
}

func TestWeightedProductCombiner_NegativeScores(t *testing.T) {
	c, _ := NewCombiner(model.CalcWeightedProduct)
	// z_score标准化可能产生负数，加权后+1保证因子非负
	scores := NormalizedScores{Profit: -1.5, Position: -0.5, Performance: 0.5}
	weights := Weights{Profit: 0.4, Position: 0.3, Performance: 0.3}

	result := c.Combine(scores, weights)
	if result != result { // NaN 检查
		t.Error("负分数合成结果不应为NaN")
	}
}

func TestHybridCombiner(t *testing.T) {
	c, _ := NewCombiner(model.CalcHybrid)
	scores := NormalizedScores{Profit: 1, Position: 1, Performance: 1}
	weights := Weights{Profit: 0.5, Position: 0.3, Performance: 0.2}

	// 求和部分 = 1.0
	// 乘积部分固定等权重：((1/3+1)^(1/3))^3 − 1 = 1/3
	// 0.7×1.0 + 0.3×(1/3) = 0.8
	result := c.Combine(scores, weights)
	if !approxEqual(result, 0.8, 1e-9) {
		t.Errorf("Combine() = %v, expected 0.8", result)
	}
}
