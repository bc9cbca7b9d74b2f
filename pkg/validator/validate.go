// Package validator 提供奖金池、分配规则与分配结果的结构校验
//
// 所有校验函数均为无副作用的纯函数，返回人类可读的违规信息列表，
// 从不返回 error：是否阻断流程由调用方决定。
package validator

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/model"
)

// maxRatioOfHalf 预留/专项计提比例的上限
const maxRatioOfHalf = 0.5

// ValidatePool 校验奖金池配置
func ValidatePool(pool *model.BonusPool) []string {
	var violations []string
	if pool == nil {
		return []string{"奖金池不能为空"}
	}

	if pool.TotalAmount <= 0 {
		violations = append(violations, fmt.Sprintf("池子总额必须大于0，当前为 %s", model.FormatAmount(pool.TotalAmount)))
	}
	if pool.PoolRatio <= 0 || pool.PoolRatio > 1 {
		violations = append(violations, fmt.Sprintf("计提比例必须在 (0,1] 区间，当前为 %v", pool.PoolRatio))
	}
	if pool.ReserveRatio < 0 || pool.ReserveRatio > maxRatioOfHalf {
		violations = append(violations, fmt.Sprintf("预留比例必须在 [0,0.5] 区间，当前为 %v", pool.ReserveRatio))
	}
	if pool.SpecialRatio < 0 || pool.SpecialRatio > maxRatioOfHalf {
		violations = append(violations, fmt.Sprintf("专项比例必须在 [0,0.5] 区间，当前为 %v", pool.SpecialRatio))
	}
	if pool.ReserveRatio+pool.SpecialRatio > 1 {
		violations = append(violations, "预留比例与专项比例之和不能超过1")
	}

	expected := pool.TotalAmount * pool.PoolRatio
	if !model.NearlyEqual(pool.PoolAmount, expected, model.AmountTolerance) {
		violations = append(violations, fmt.Sprintf(
			"池内金额 %s 与 总额×计提比例 %s 不一致",
			model.FormatAmount(pool.PoolAmount), model.FormatAmount(expected)))
	}

	return violations
}

// ValidateRule 校验分配规则配置，返回全部问题
// 包含仅提示性的档位比例和偏差，完整报告供配置校验接口使用
func ValidateRule(rule *model.AllocationRule) []string {
	violations := BlockingRuleViolations(rule)
	if rule == nil {
		return violations
	}
	if advisory := TierRatioAdvisory(rule.TierConfig); advisory != "" {
		violations = append(violations, advisory)
	}
	return violations
}

// BlockingRuleViolations 校验分配规则中阻断分配的配置问题
// 档位比例之和偏离1不在其中，分配时会自动归一化
func BlockingRuleViolations(rule *model.AllocationRule) []string {
	var violations []string
	if rule == nil {
		return []string{"分配规则不能为空"}
	}

	switch rule.AllocationMethod {
	case model.MethodScoreBased, model.MethodTierBased, model.MethodPoolPercentage,
		model.MethodFixedAmount, model.MethodHybrid:
	default:
		violations = append(violations, fmt.Sprintf("未知分配方法: %s", rule.AllocationMethod))
	}

	if rule.AllocationMethod == model.MethodScoreBased && rule.ScoreDistributionMethod != "" {
		switch rule.ScoreDistributionMethod {
		case model.DistLinear, model.DistExponential, model.DistLogarithmic, model.DistStep:
		default:
			violations = append(violations, fmt.Sprintf("未知分数分配曲线: %s", rule.ScoreDistributionMethod))
		}
	}

	violations = append(violations, checkRatio("基础分配比例", rule.BaseAllocationRatio)...)
	violations = append(violations, checkRatio("绩效分配比例", rule.PerformanceAllocationRatio)...)
	violations = append(violations, checkRatio("预留比例", rule.ReserveRatio)...)
	violations = append(violations, checkRatio("总额上限比例", rule.TotalAllocationLimit)...)

	if !rule.RatiosValid() {
		violations = append(violations, fmt.Sprintf(
			"基础与绩效分配比例之和必须为1（容差0.01），当前为 %v",
			rule.BaseAllocationRatio+rule.PerformanceAllocationRatio))
	}

	if rule.MinScoreThreshold < 0 || rule.MinScoreThreshold > 1 {
		violations = append(violations, fmt.Sprintf("最低分数门槛必须在 [0,1] 区间，当前为 %v", rule.MinScoreThreshold))
	}

	if rule.MinBonusAmount > 0 && rule.MaxBonusAmount > 0 && rule.MinBonusAmount > rule.MaxBonusAmount {
		violations = append(violations, "绝对下限金额不能大于绝对上限金额")
	}
	if rule.MinBonusRatio > 0 && rule.MaxBonusRatio > 0 && rule.MinBonusRatio > rule.MaxBonusRatio {
		violations = append(violations, "相对下限比例不能大于相对上限比例")
	}

	if len(rule.TierConfig) > 0 {
		violations = append(violations, validateTiers(rule.TierConfig)...)
	} else if rule.AllocationMethod == model.MethodTierBased {
		violations = append(violations, "tier_based 分配必须配置档位")
	}

	return violations
}

// validateTiers 校验档位配置
func validateTiers(tiers []model.Tier) []string {
	var violations []string

	names := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		if t.Name == "" {
			violations = append(violations, "档位名称不能为空")
		} else if names[t.Name] {
			violations = append(violations, fmt.Sprintf("档位名称重复: %s", t.Name))
		}
		names[t.Name] = true

		if t.Ratio <= 0 || t.Ratio > 1 {
			violations = append(violations, fmt.Sprintf("档位 %s 的比例必须在 (0,1] 区间，当前为 %v", t.Name, t.Ratio))
		}
		if t.MinScore < 0 || t.MinScore > 1 {
			violations = append(violations, fmt.Sprintf("档位 %s 的最低分数必须在 [0,1] 区间，当前为 %v", t.Name, t.MinScore))
		}
	}

	return violations
}

// TierRatioAdvisory 档位比例之和偏离1时返回提示，不阻断分配
func TierRatioAdvisory(tiers []model.Tier) string {
	if len(tiers) == 0 {
		return ""
	}
	sum := 0.0
	for _, t := range tiers {
		sum += t.Ratio
	}
	if model.NearlyEqual(sum, 1.0, model.WeightTolerance) {
		return ""
	}
	return fmt.Sprintf("档位比例之和为 %v，偏离1超过容差（分配时将自动归一化）", sum)
}

// ValidateWeightConfig 校验权重配置
func ValidateWeightConfig(cfg *model.WeightConfig) []string {
	var violations []string
	if cfg == nil {
		return []string{"权重配置不能为空"}
	}

	violations = append(violations, checkRatio("利润贡献权重", cfg.ProfitWeight)...)
	violations = append(violations, checkRatio("岗位价值权重", cfg.PositionWeight)...)
	violations = append(violations, checkRatio("绩效表现权重", cfg.PerformanceWeight)...)

	if !cfg.WeightsValid() {
		violations = append(violations, fmt.Sprintf("三维主权重之和必须为1（容差0.01），当前为 %v", cfg.WeightSum()))
	}

	switch cfg.CalculationMethod {
	case model.CalcWeightedSum, model.CalcWeightedProduct, model.CalcHybrid:
	default:
		violations = append(violations, fmt.Sprintf("未知计算方法: %s", cfg.CalculationMethod))
	}
	switch cfg.NormalizationMethod {
	case model.NormZScore, model.NormMinMax, model.NormRankBased, model.NormPercentile:
	default:
		violations = append(violations, fmt.Sprintf("未知标准化方法: %s", cfg.NormalizationMethod))
	}

	if cfg.ExcellenceBonus < 0 {
		violations = append(violations, "卓越加成比例不能为负数")
	}
	if cfg.PerformanceMultiplier < 0 {
		violations = append(violations, "绩效乘数不能为负数")
	}
	if cfg.PositionLevelMultiplier < 0 {
		violations = append(violations, "岗位层级乘数不能为负数")
	}

	return violations
}

// ValidateResult 校验单条分配结果
func ValidateResult(r *model.AllocationResult) []string {
	var violations []string
	if r == nil {
		return []string{"分配结果不能为空"}
	}

	if r.EmployeeID == uuid.Nil {
		violations = append(violations, "缺少员工ID")
	}
	if r.PoolID == uuid.Nil {
		violations = append(violations, "缺少奖金池ID")
	}
	if r.RuleID == uuid.Nil {
		violations = append(violations, "缺少分配规则ID")
	}

	violations = append(violations, checkAmount("基础金额", r.BaseAmount, false)...)
	violations = append(violations, checkAmount("绩效金额", r.PerformanceAmount, false)...)
	// 调整金额允许为负（预算缩减）
	violations = append(violations, checkAmount("调整金额", r.AdjustmentAmount, true)...)
	violations = append(violations, checkAmount("合计金额", r.TotalAmount, false)...)

	if !r.AmountsConsistent() {
		sum := model.SumAmounts(r.BaseAmount, r.PerformanceAmount, r.AdjustmentAmount)
		violations = append(violations, fmt.Sprintf(
			"合计金额 %s 与 基础+绩效+调整 %s 不一致",
			model.FormatAmount(r.TotalAmount), model.FormatAmount(sum)))
	}

	if r.Final < 0.1 {
		violations = append(violations, fmt.Sprintf("最终系数 %v 低于下限0.1", r.Final))
	}

	return violations
}

// ValidateResults 批量校验分配结果，违规信息带下标前缀
func ValidateResults(results []*model.AllocationResult) []string {
	var violations []string
	for i, r := range results {
		for _, v := range ValidateResult(r) {
			violations = append(violations, fmt.Sprintf("结果[%d]: %s", i, v))
		}
	}
	return violations
}

// checkRatio 比例字段必须在 [0,1] 且为有效数值
func checkRatio(name string, v float64) []string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []string{fmt.Sprintf("%s不是有效数值", name)}
	}
	if v < 0 || v > 1 {
		return []string{fmt.Sprintf("%s必须在 [0,1] 区间，当前为 %v", name, v)}
	}
	return nil
}

// checkAmount 金额字段必须为有效数值，allowNegative 控制是否允许负数
func checkAmount(name string, v float64, allowNegative bool) []string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []string{fmt.Sprintf("%s不是有效数值", name)}
	}
	if !allowNegative && v < 0 {
		return []string{fmt.Sprintf("%s不能为负数，当前为 %s", name, model.FormatAmount(v))}
	}
	return nil
}
