// Package model 定义绩效奖金引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// PoolStatus 奖金池状态
type PoolStatus string

const (
	PoolDraft     PoolStatus = "draft"     // 草稿（未分配）
	PoolAllocated PoolStatus = "allocated" // 已分配
)

// BonusPool 奖金池
type BonusPool struct {
	BaseModel
	OrgID  uuid.UUID  `json:"org_id" db:"org_id"`
	Period Period     `json:"period" db:"period"`
	Status PoolStatus `json:"status" db:"status"`

	// TotalAmount 为池子总额，PoolAmount = TotalAmount × PoolRatio
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
	PoolRatio   float64 `json:"pool_ratio" db:"pool_ratio"`
	PoolAmount  float64 `json:"pool_amount" db:"pool_amount"`

	// 预留与专项计提，扣除后为可分配金额
	ReserveRatio float64 `json:"reserve_ratio" db:"reserve_ratio"`
	SpecialRatio float64 `json:"special_ratio" db:"special_ratio"`

	DistributableAmount float64 `json:"distributable_amount" db:"distributable_amount"`
}

// ComputeDistributable 按比例推导池内金额与可分配金额
func (p *BonusPool) ComputeDistributable() {
	p.PoolAmount = Round2(p.TotalAmount * p.PoolRatio)
	p.DistributableAmount = Round2(p.PoolAmount * (1 - p.ReserveRatio - p.SpecialRatio))
}

// AllocationMethod 分配方法
type AllocationMethod string

const (
	MethodScoreBased     AllocationMethod = "score_based"     // 按分数比例
	MethodTierBased      AllocationMethod = "tier_based"      // 按档位
	MethodPoolPercentage AllocationMethod = "pool_percentage" // 池内均分
	MethodFixedAmount    AllocationMethod = "fixed_amount"    // 固定金额
	MethodHybrid         AllocationMethod = "hybrid"          // 混合
)

// ScoreDistributionMethod 分数分配曲线（仅 score_based 使用）
type ScoreDistributionMethod string

const (
	DistLinear      ScoreDistributionMethod = "linear"      // 线性
	DistExponential ScoreDistributionMethod = "exponential" // 指数
	DistLogarithmic ScoreDistributionMethod = "logarithmic" // 对数
	DistStep        ScoreDistributionMethod = "step"        // 阶梯
)

// Tier 分配档位
type Tier struct {
	Name     string  `json:"name"`      // 档位名称（唯一）
	MinScore float64 `json:"min_score"` // 进入该档位的最低分数
	Ratio    float64 `json:"ratio"`     // 该档位占可分配金额的比例
}

// SpecialRules 特殊规则开关
type SpecialRules struct {
	NewEmployeeReduction   bool `json:"new_employee_reduction"`   // 新员工减半
	ExcellentEmployeeBonus bool `json:"excellent_employee_bonus"` // 优秀员工加成
	KeyPositionBonus       bool `json:"key_position_bonus"`       // 关键岗位加成
}

// AllocationRule 分配规则
type AllocationRule struct {
	BaseModel
	OrgID   uuid.UUID `json:"org_id" db:"org_id"`
	Name    string    `json:"name" db:"name"`
	Version int       `json:"version" db:"version"`

	AllocationMethod        AllocationMethod        `json:"allocation_method" db:"allocation_method"`
	ScoreDistributionMethod ScoreDistributionMethod `json:"score_distribution_method" db:"score_distribution_method"`

	// 指数曲线的幂，默认 2.0
	ScoreDistributionExponent float64 `json:"score_distribution_exponent" db:"score_distribution_exponent"`
	// fixed_amount 方法的单人金额，默认 10000
	FixedAmount float64 `json:"fixed_amount" db:"fixed_amount"`

	// 基础/绩效拆分比例，和必须为 1（容差 0.01）
	BaseAllocationRatio        float64 `json:"base_allocation_ratio" db:"base_allocation_ratio"`
	PerformanceAllocationRatio float64 `json:"performance_allocation_ratio" db:"performance_allocation_ratio"`

	ReserveRatio      float64 `json:"reserve_ratio" db:"reserve_ratio"`
	MinScoreThreshold float64 `json:"min_score_threshold" db:"min_score_threshold"`

	// 适用范围过滤（为空表示不限制）
	BusinessLines  []string        `json:"business_lines,omitempty" db:"business_lines"`
	DepartmentIDs  []uuid.UUID     `json:"department_ids,omitempty" db:"department_ids"`
	PositionLevels []PositionLevel `json:"position_levels,omitempty" db:"position_levels"`

	// 档位配置（tier_based / hybrid 使用），按 MinScore 降序生效
	TierConfig []Tier `json:"tier_config,omitempty" db:"tier_config"`

	// 单人金额护栏
	MinBonusAmount float64 `json:"min_bonus_amount" db:"min_bonus_amount"` // 绝对下限，0 表示不启用
	MaxBonusAmount float64 `json:"max_bonus_amount" db:"max_bonus_amount"` // 绝对上限，0 表示不启用
	MinBonusRatio  float64 `json:"min_bonus_ratio" db:"min_bonus_ratio"`   // 相对下限（×人均金额）
	MaxBonusRatio  float64 `json:"max_bonus_ratio" db:"max_bonus_ratio"`   // 相对上限（×人均金额）

	// 总额上限（占池子总额的比例）
	TotalAllocationLimit float64 `json:"total_allocation_limit" db:"total_allocation_limit"`

	// 层级/部门系数表
	LevelWeights      map[string]float64 `json:"level_weights,omitempty" db:"level_weights"`
	DepartmentWeights map[string]float64 `json:"department_weights,omitempty" db:"department_weights"`

	SpecialRules SpecialRules `json:"special_rules" db:"special_rules"`
}

// RatiosValid 检查基础/绩效拆分比例之和是否在容差范围内为 1
func (r *AllocationRule) RatiosValid() bool {
	return NearlyEqual(r.BaseAllocationRatio+r.PerformanceAllocationRatio, 1.0, WeightTolerance)
}

// AppliesTo 检查员工是否在规则适用范围内
func (r *AllocationRule) AppliesTo(e *Employee) bool {
	if len(r.DepartmentIDs) > 0 {
		found := false
		for _, id := range r.DepartmentIDs {
			if id == e.DepartmentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(r.PositionLevels) > 0 {
		found := false
		for _, lv := range r.PositionLevels {
			if lv == e.PositionLevel {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(r.BusinessLines) > 0 {
		found := false
		for _, line := range r.BusinessLines {
			if e.InBusinessLine(line) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Coefficients 五项分配系数
type Coefficients struct {
	Base        float64 `json:"base_coeff" db:"base_coeff"`               // 基础系数（恒为1，预留）
	Performance float64 `json:"performance_coeff" db:"performance_coeff"` // 绩效系数
	Position    float64 `json:"position_coeff" db:"position_coeff"`       // 岗位系数
	Department  float64 `json:"department_coeff" db:"department_coeff"`   // 部门系数
	Special     float64 `json:"special_coeff" db:"special_coeff"`         // 特殊规则系数
	Final       float64 `json:"final_coeff" db:"final_coeff"`             // 最终系数（下限0.1）
}

// AllocationResult 分配结果
// 每次分配运行创建一批，创建后不再修改；重跑生成新批次
type AllocationResult struct {
	BaseModel
	RunID      uuid.UUID `json:"run_id" db:"run_id"`
	PoolID     uuid.UUID `json:"pool_id" db:"pool_id"`
	RuleID     uuid.UUID `json:"rule_id" db:"rule_id"`
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id"`
	Period     Period    `json:"period" db:"period"`

	OriginalScore float64 `json:"original_score" db:"original_score"`
	FinalScore    float64 `json:"final_score" db:"final_score"`

	Coefficients

	BaseAmount        float64 `json:"base_amount" db:"base_amount"`
	PerformanceAmount float64 `json:"performance_amount" db:"performance_amount"`
	AdjustmentAmount  float64 `json:"adjustment_amount" db:"adjustment_amount"`
	TotalAmount       float64 `json:"total_amount" db:"total_amount"`

	// 护栏生效前的原始金额，仅在与最终金额不同时记录
	OriginalCalculatedAmount float64 `json:"original_calculated_amount,omitempty" db:"original_calculated_amount"`
	MinAmountApplied         bool    `json:"min_amount_applied" db:"min_amount_applied"`
	MaxAmountApplied         bool    `json:"max_amount_applied" db:"max_amount_applied"`

	Snapshot EmployeeSnapshot `json:"snapshot" db:"snapshot"`
}

// AmountsConsistent 检查 TotalAmount 是否等于三项金额之和（容差 0.01）
func (r *AllocationResult) AmountsConsistent() bool {
	sum := SumAmounts(r.BaseAmount, r.PerformanceAmount, r.AdjustmentAmount)
	return NearlyEqual(r.TotalAmount, sum, AmountTolerance)
}
