// Package model 定义绩效奖金引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// CalculationMethod 综合得分计算方法
type CalculationMethod string

const (
	CalcWeightedSum     CalculationMethod = "weighted_sum"     // 加权求和
	CalcWeightedProduct CalculationMethod = "weighted_product" // 加权乘积
	CalcHybrid          CalculationMethod = "hybrid"           // 混合（0.7求和 + 0.3乘积）
)

// NormalizationMethod 标准化方法
type NormalizationMethod string

const (
	NormZScore     NormalizationMethod = "z_score"    // Z分数标准化
	NormMinMax     NormalizationMethod = "min_max"    // 极差标准化
	NormRankBased  NormalizationMethod = "rank_based" // 排名标准化
	NormPercentile NormalizationMethod = "percentile" // 百分位标准化
)

// WeightConfig 权重配置
// 被已持久化的计算结果引用后不可修改，调整需创建新版本
type WeightConfig struct {
	BaseModel
	OrgID   uuid.UUID `json:"org_id" db:"org_id"`
	Name    string    `json:"name" db:"name"`
	Version int       `json:"version" db:"version"`

	// 三维主权重，和必须为 1（容差 0.01）
	ProfitWeight      float64 `json:"profit_weight" db:"profit_weight"`           // 利润贡献
	PositionWeight    float64 `json:"position_weight" db:"position_weight"`       // 岗位价值
	PerformanceWeight float64 `json:"performance_weight" db:"performance_weight"` // 绩效表现

	// 各维度内部子权重（由原始分数提供方消费）
	SubWeights JSONMap `json:"sub_weights,omitempty" db:"sub_weights"`

	CalculationMethod   CalculationMethod   `json:"calculation_method" db:"calculation_method"`
	NormalizationMethod NormalizationMethod `json:"normalization_method" db:"normalization_method"`

	// 调整参数
	ExcellenceBonus         float64 `json:"excellence_bonus" db:"excellence_bonus"`                   // 三维均分>0.9时的加成比例
	PerformanceMultiplier   float64 `json:"performance_multiplier" db:"performance_multiplier"`       // 绩效>0.8时的乘数
	PositionLevelMultiplier float64 `json:"position_level_multiplier" db:"position_level_multiplier"` // 高级岗位乘数

	// 生效窗口
	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`
}

// WeightSum 返回三维主权重之和
func (c *WeightConfig) WeightSum() float64 {
	return c.ProfitWeight + c.PositionWeight + c.PerformanceWeight
}

// WeightsValid 检查主权重之和是否在容差范围内为 1
func (c *WeightConfig) WeightsValid() bool {
	return NearlyEqual(c.WeightSum(), 1.0, WeightTolerance)
}

// EffectiveAt 检查配置在某时刻是否生效
func (c *WeightConfig) EffectiveAt(t time.Time) bool {
	if t.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && !t.Before(*c.EffectiveTo) {
		return false
	}
	return true
}
