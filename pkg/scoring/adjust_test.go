package scoring

import (
	"testing"

	"github.com/jixiao/jixiao/pkg/model"
)

func testWeightConfig() *model.WeightConfig {
	return &model.WeightConfig{
		ExcellenceBonus:         0.2,
		PerformanceMultiplier:   1.1,
		PositionLevelMultiplier: 1.15,
	}
}

func rawScores(profit, position, performance float64) model.RawScores {
	return model.RawScores{
		Profit:      model.DimensionScore{Dimension: model.DimensionProfit, Value: profit},
		Position:    model.DimensionScore{Dimension: model.DimensionPosition, Value: position},
		Performance: model.DimensionScore{Dimension: model.DimensionPerformance, Value: performance},
	}
}

func TestAdjuster_AllTriggers(t *testing.T) {
	a := NewAdjuster(testWeightConfig())

	// 三维均值0.95>0.9触发卓越加成，绩效0.95>0.8触发乘数，高级岗位乘数1.15
	// 1.0 × 1.2 × 1.1 × 1.15 = 1.518
	result := a.Apply(1.0, rawScores(0.95, 0.95, 0.95), model.LevelSenior)
	if !approxEqual(result, 1.518, 1e-9) {
		t.Errorf("Apply() = %v, expected 1.518", result)
	}
}

func TestAdjuster_NoTriggers(t *testing.T) {
	a := NewAdjuster(testWeightConfig())

	result := a.Apply(0.6, rawScores(0.5, 0.5, 0.5), model.LevelMiddle)
	if result != 0.6 {
		t.Errorf("无触发条件时分数应不变, got %v", result)
	}
}

func TestAdjuster_PerformanceOnly(t *testing.T) {
	a := NewAdjuster(testWeightConfig())

	// 仅绩效0.85>0.8触发，均值(0.5+0.5+0.85)/3≈0.617不触发卓越加成
	result := a.Apply(1.0, rawScores(0.5, 0.5, 0.85), model.LevelMiddle)
	if !approxEqual(result, 1.1, 1e-9) {
		t.Errorf("Apply() = %v, expected 1.1", result)
	}
}

func TestAdjuster_LevelMultipliers(t *testing.T) {
	a := NewAdjuster(testWeightConfig())
	raw := rawScores(0.5, 0.5, 0.5)

	tests := []struct {
		name     string
		level    model.PositionLevel
		expected float64
	}{
		{"高级", model.LevelSenior, 1.15},
		{"中级", model.LevelMiddle, 1.0},
		{"初级", model.LevelJunior, 0.8},
		{"未知层级按1.0", model.PositionLevel("intern"), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Apply(1.0, raw, tt.level)
			if !approxEqual(result, tt.expected, 1e-9) {
				t.Errorf("Apply(level=%s) = %v, expected %v", tt.level, result, tt.expected)
			}
		})
	}
}

func TestAdjuster_FloorAtZero(t *testing.T) {
	a := NewAdjuster(testWeightConfig())

	// z_score合成分数可能为负，最终分数下限为0
	result := a.Apply(-0.5, rawScores(0.1, 0.1, 0.1), model.LevelMiddle)
	if result != 0 {
		t.Errorf("负分应被截断为0, got %v", result)
	}
}
