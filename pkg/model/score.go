// Package model 定义绩效奖金引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Dimension 评分维度（三维模型）
type Dimension string

const (
	DimensionProfit      Dimension = "profit_contribution" // 利润贡献
	DimensionPosition    Dimension = "position_value"      // 岗位价值
	DimensionPerformance Dimension = "performance"         // 绩效表现
)

// DimensionScore 单维度原始分数
// Value 理论上无上界，典型范围 [0, 1.5]
type DimensionScore struct {
	Dimension Dimension `json:"dimension"`
	Value     float64   `json:"value"`
	Version   string    `json:"version"` // 来源数据版本标记
}

// RawScores 一名员工的三维原始分数
type RawScores struct {
	Profit      DimensionScore `json:"profit"`
	Position    DimensionScore `json:"position"`
	Performance DimensionScore `json:"performance"`
}

// Mean 三维原始分数的算术平均
func (r RawScores) Mean() float64 {
	return (r.Profit.Value + r.Position.Value + r.Performance.Value) / 3
}

// CalculationResult 计分结果
// 主键为 (员工, 周期, 权重配置)；排名字段由排名引擎回填
type CalculationResult struct {
	BaseModel
	EmployeeID     uuid.UUID `json:"employee_id" db:"employee_id"`
	Period         Period    `json:"period" db:"period"`
	WeightConfigID uuid.UUID `json:"weight_config_id" db:"weight_config_id"`
	DepartmentID   uuid.UUID `json:"department_id" db:"department_id"`

	PositionLevel PositionLevel `json:"position_level" db:"position_level"`

	// 原始分数
	RawProfitScore      float64 `json:"raw_profit_score" db:"raw_profit_score"`
	RawPositionScore    float64 `json:"raw_position_score" db:"raw_position_score"`
	RawPerformanceScore float64 `json:"raw_performance_score" db:"raw_performance_score"`
	ScoreVersion        string  `json:"score_version" db:"score_version"`

	// 标准化分数
	NormProfitScore      float64 `json:"norm_profit_score" db:"norm_profit_score"`
	NormPositionScore    float64 `json:"norm_position_score" db:"norm_position_score"`
	NormPerformanceScore float64 `json:"norm_performance_score" db:"norm_performance_score"`

	// 加权分数
	WeightedProfitScore      float64 `json:"weighted_profit_score" db:"weighted_profit_score"`
	WeightedPositionScore    float64 `json:"weighted_position_score" db:"weighted_position_score"`
	WeightedPerformanceScore float64 `json:"weighted_performance_score" db:"weighted_performance_score"`

	// 综合与最终分数
	TotalScore    float64 `json:"total_score" db:"total_score"`
	AdjustedScore float64 `json:"adjusted_score" db:"adjusted_score"`
	FinalScore    float64 `json:"final_score" db:"final_score"`

	// 排名字段（排名引擎回填）
	ScoreRank      int     `json:"score_rank" db:"score_rank"`
	PercentileRank float64 `json:"percentile_rank" db:"percentile_rank"`
	DepartmentRank int     `json:"department_rank" db:"department_rank"`
	LevelRank      int     `json:"level_rank" db:"level_rank"`
}

// Raw 返回三维原始分数视图
func (r *CalculationResult) Raw() RawScores {
	return RawScores{
		Profit:      DimensionScore{Dimension: DimensionProfit, Value: r.RawProfitScore, Version: r.ScoreVersion},
		Position:    DimensionScore{Dimension: DimensionPosition, Value: r.RawPositionScore, Version: r.ScoreVersion},
		Performance: DimensionScore{Dimension: DimensionPerformance, Value: r.RawPerformanceScore, Version: r.ScoreVersion},
	}
}
