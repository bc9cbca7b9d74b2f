package scoring

import (
	"github.com/jixiao/jixiao/pkg/model"
)

// 调整触发阈值
const (
	excellenceMeanThreshold   = 0.9 // 三维原始分数均值超过该值触发卓越加成
	performanceRawThreshold   = 0.8 // 原始绩效分数超过该值触发绩效乘数
	juniorLevelMultiplier     = 0.8 // 初级岗位乘数
	defaultPositionMultiplier = 1.0 // 中级及未知层级乘数
)

// Adjuster 分数调整器
// 三项调整按固定顺序乘法叠加：卓越加成 → 绩效乘数 → 岗位层级乘数
// 顺序影响审计口径，不可调整
type Adjuster struct {
	excellenceBonus         float64
	performanceMultiplier   float64
	positionLevelMultiplier float64
}

// NewAdjuster 从权重配置创建调整器
func NewAdjuster(cfg *model.WeightConfig) *Adjuster {
	return &Adjuster{
		excellenceBonus:         cfg.ExcellenceBonus,
		performanceMultiplier:   cfg.PerformanceMultiplier,
		positionLevelMultiplier: cfg.PositionLevelMultiplier,
	}
}

// Apply 对综合分数应用调整，返回最终分数（下限为0）
func (a *Adjuster) Apply(composite float64, raw model.RawScores, level model.PositionLevel) float64 {
	score := composite

	// 卓越加成：三维原始分数均值 > 0.9
	if raw.Mean() > excellenceMeanThreshold {
		score *= 1 + a.excellenceBonus
	}

	// 绩效乘数：原始绩效分数 > 0.8
	if raw.Performance.Value > performanceRawThreshold {
		score *= a.performanceMultiplier
	}

	score *= a.levelMultiplier(level)

	if score < 0 {
		return 0
	}
	return score
}

// levelMultiplier 岗位层级乘数，未知层级按中级处理
func (a *Adjuster) levelMultiplier(level model.PositionLevel) float64 {
	switch level {
	case model.LevelSenior:
		return a.positionLevelMultiplier
	case model.LevelJunior:
		return juniorLevelMultiplier
	default:
		return defaultPositionMultiplier
	}
}
