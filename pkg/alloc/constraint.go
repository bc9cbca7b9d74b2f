package alloc

import (
	"github.com/jixiao/jixiao/pkg/model"
)

// EnforcementSummary 约束执行汇总
type EnforcementSummary struct {
	Capped       bool    `json:"capped"`        // 是否触发总额上限
	CapFactor    float64 `json:"cap_factor"`    // 总额缩放因子（未触发为1）
	BudgetCap    float64 `json:"budget_cap"`    // 预算上限
	TotalBefore  float64 `json:"total_before"`  // 执行前合计
	TotalAfter   float64 `json:"total_after"`   // 执行后合计
	MinApplied   int     `json:"min_applied"`   // 触发下限护栏人数
	MaxApplied   int     `json:"max_applied"`   // 触发上限护栏人数
	AverageAfter float64 `json:"average_after"` // 总额上限执行后的人均金额
}

// EnforceConstraints 对策略原始输出执行两道有序约束
//
// 第一道：总额上限。cap = pool.TotalAmount × rule.TotalAllocationLimit，
// 原始合计超出时按比例缩减，缩减量记入每人的 AdjustmentAmount，
// 基础/绩效金额保持策略原值以便审计追溯。
//
// 第二道：单人护栏，固定顺序评估：绝对下限 → 相对下限 → 绝对上限 →
// 相对上限。相对护栏以上限执行后的人均金额为基准。每次触发改写该员工
// 的生效总额，差额累加进 AdjustmentAmount，护栏前总额记入
// OriginalCalculatedAmount。
func EnforceConstraints(pool *model.BonusPool, rule *model.AllocationRule, results []*model.AllocationResult) *EnforcementSummary {
	summary := &EnforcementSummary{CapFactor: 1.0}
	if len(results) == 0 {
		return summary
	}

	for _, r := range results {
		r.TotalAmount = model.SumAmounts(r.BaseAmount, r.PerformanceAmount, r.AdjustmentAmount)
		summary.TotalBefore = model.SumAmounts(summary.TotalBefore, r.TotalAmount)
	}

	applyBudgetCap(pool, rule, results, summary)
	applyGuardRails(rule, results, summary)

	summary.TotalAfter = 0
	for _, r := range results {
		summary.TotalAfter = model.SumAmounts(summary.TotalAfter, r.TotalAmount)
	}
	return summary
}

// applyBudgetCap 总额上限缩减
func applyBudgetCap(pool *model.BonusPool, rule *model.AllocationRule, results []*model.AllocationResult, summary *EnforcementSummary) {
	// 未配置上限比例时不限制
	if rule.TotalAllocationLimit <= 0 {
		return
	}

	cap := pool.TotalAmount * rule.TotalAllocationLimit
	summary.BudgetCap = model.Round2(cap)

	total := 0.0
	for _, r := range results {
		total = model.SumAmounts(total, r.BaseAmount, r.PerformanceAmount)
	}
	if total <= cap {
		return
	}

	factor := cap / total
	summary.Capped = true
	summary.CapFactor = factor

	for _, r := range results {
		raw := model.SumAmounts(r.BaseAmount, r.PerformanceAmount)
		scaled := model.Round2(raw * factor)
		r.AdjustmentAmount = model.Round2(scaled - raw)
		r.TotalAmount = model.SumAmounts(r.BaseAmount, r.PerformanceAmount, r.AdjustmentAmount)
	}
}

// applyGuardRails 单人金额护栏
func applyGuardRails(rule *model.AllocationRule, results []*model.AllocationResult, summary *EnforcementSummary) {
	// 相对护栏的基准：上限执行后的人均金额
	total := 0.0
	for _, r := range results {
		total = model.SumAmounts(total, r.TotalAmount)
	}
	average := total / float64(len(results))
	summary.AverageAfter = model.Round2(average)

	for _, r := range results {
		preGuard := r.TotalAmount
		current := preGuard
		minHit, maxHit := false, false

		if rule.MinBonusAmount > 0 && current < rule.MinBonusAmount {
			current = rule.MinBonusAmount
			minHit = true
		}
		if rule.MinBonusRatio > 0 {
			floor := model.Round2(rule.MinBonusRatio * average)
			if current < floor {
				current = floor
				minHit = true
			}
		}
		if rule.MaxBonusAmount > 0 && current > rule.MaxBonusAmount {
			current = rule.MaxBonusAmount
			maxHit = true
		}
		if rule.MaxBonusRatio > 0 {
			ceiling := model.Round2(rule.MaxBonusRatio * average)
			if current > ceiling {
				current = ceiling
				maxHit = true
			}
		}

		if current != preGuard {
			r.AdjustmentAmount = model.SumAmounts(r.AdjustmentAmount, current-preGuard)
			r.OriginalCalculatedAmount = preGuard
			r.TotalAmount = current
		}
		r.MinAmountApplied = minHit
		r.MaxAmountApplied = maxHit
		if minHit {
			summary.MinApplied++
		}
		if maxHit {
			summary.MaxApplied++
		}
	}
}
