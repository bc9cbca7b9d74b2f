package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/metrics"
	"github.com/jixiao/jixiao/pkg/alloc"
	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/logger"
	"github.com/jixiao/jixiao/pkg/model"
	"github.com/jixiao/jixiao/pkg/validator"
)

// AllocateRequest 分配请求
type AllocateRequest struct {
	PoolID         uuid.UUID    `json:"pool_id"`
	RuleID         uuid.UUID    `json:"rule_id"`
	Period         model.Period `json:"period"`
	WeightConfigID uuid.UUID    `json:"weight_config_id"`

	// Simulate 为真时完整执行分配流水线但不落库、不翻转池状态
	Simulate bool `json:"simulate"`
}

// AllocationOutcome 分配结果
type AllocationOutcome struct {
	RunID     uuid.UUID                 `json:"run_id"`
	PoolID    uuid.UUID                 `json:"pool_id"`
	RuleID    uuid.UUID                 `json:"rule_id"`
	Period    model.Period              `json:"period"`
	Simulated bool                      `json:"simulated"`
	Results   []*model.AllocationResult `json:"results"`
	Summary   *alloc.EnforcementSummary `json:"summary"`

	EligibleCount int     `json:"eligible_count"`
	SkippedCount  int     `json:"skipped_count"`
	TotalAmount   float64 `json:"total_amount"`
}

// AllocatePool 执行一次奖金池分配
//
// 流水线：加载并校验池与规则 → 资格筛选 → 系数计算 → 策略分配 →
// 约束执行 → 结果校验 → 原子落库（批次写入与池状态翻转同一事务）。
// 任何环节失败整次调用失败，不产生部分结果。
func (e *Engine) AllocatePool(ctx context.Context, req AllocateRequest) (*AllocationOutcome, error) {
	start := time.Now()

	if !req.Period.Valid() {
		return nil, errors.New(errors.CodeInvalidInput, "周期格式无效: "+req.Period.String())
	}

	pool, rule, err := e.loadPoolAndRule(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, results, skipped, err := e.collectCandidates(ctx, req, rule)
	if err != nil {
		return nil, err
	}

	availableAmount := model.Round2(pool.TotalAmount * (1 - rule.ReserveRatio))

	rawAllocs, err := alloc.Dispatch(alloc.Input{
		AvailableAmount: availableAmount,
		Rule:            rule,
		Candidates:      candidates,
	})
	if err != nil {
		metrics.RecordAllocationRun(string(rule.AllocationMethod), false, 0, time.Since(start))
		return nil, err
	}

	runID := uuid.New()
	allocResults, err := e.buildAllocationResults(ctx, runID, pool, rule, req.Period, candidates, results, rawAllocs)
	if err != nil {
		return nil, err
	}

	summary := alloc.EnforceConstraints(pool, rule, allocResults)
	metrics.RecordConstraintHits(summary.Capped, summary.MinApplied, summary.MaxApplied)

	if violations := validator.ValidateResults(allocResults); len(violations) > 0 {
		metrics.RecordAllocationRun(string(rule.AllocationMethod), false, 0, time.Since(start))
		return nil, errors.New(errors.CodeValidationFail, "分配结果校验失败").
			WithDetails(strings.Join(violations, "; "))
	}

	if !req.Simulate {
		if err := e.sink.SaveAllocationRun(ctx, pool.ID, allocResults); err != nil {
			metrics.RecordAllocationRun(string(rule.AllocationMethod), false, 0, time.Since(start))
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "写入分配批次失败")
		}
	}

	outcome := &AllocationOutcome{
		RunID:         runID,
		PoolID:        pool.ID,
		RuleID:        rule.ID,
		Period:        req.Period,
		Simulated:     req.Simulate,
		Results:       allocResults,
		Summary:       summary,
		EligibleCount: len(candidates),
		SkippedCount:  skipped,
		TotalAmount:   summary.TotalAfter,
	}

	metrics.RecordAllocationRun(string(rule.AllocationMethod), true, outcome.TotalAmount, time.Since(start))
	logger.Info().
		Str("run_id", runID.String()).
		Str("pool_id", pool.ID.String()).
		Str("method", string(rule.AllocationMethod)).
		Bool("simulated", req.Simulate).
		Int("eligible", outcome.EligibleCount).
		Int("skipped", outcome.SkippedCount).
		Float64("total_amount", outcome.TotalAmount).
		Dur("duration", time.Since(start)).
		Msg("奖金池分配完成")

	return outcome, nil
}

// ValidatePoolConfig 校验奖金池配置，返回违规描述列表
func (e *Engine) ValidatePoolConfig(ctx context.Context, poolID uuid.UUID) ([]string, error) {
	pool, err := e.configs.GetPool(ctx, poolID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取奖金池失败")
	}
	if pool == nil {
		return nil, errors.NotFoundf("奖金池", poolID.String())
	}
	return validator.ValidatePool(pool), nil
}

// ValidateRuleConfig 校验分配规则，返回违规描述列表
func (e *Engine) ValidateRuleConfig(ctx context.Context, ruleID uuid.UUID) ([]string, error) {
	rule, err := e.configs.GetRule(ctx, ruleID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取分配规则失败")
	}
	if rule == nil {
		return nil, errors.NotFoundf("分配规则", ruleID.String())
	}
	return validator.ValidateRule(rule), nil
}

// loadPoolAndRule 加载并校验奖金池与分配规则
func (e *Engine) loadPoolAndRule(ctx context.Context, req AllocateRequest) (*model.BonusPool, *model.AllocationRule, error) {
	pool, err := e.configs.GetPool(ctx, req.PoolID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "读取奖金池失败")
	}
	if pool == nil {
		return nil, nil, errors.NotFoundf("奖金池", req.PoolID.String())
	}
	if pool.Status == model.PoolAllocated {
		return nil, nil, errors.ErrPoolAlreadyAllocated.WithField("pool_id", pool.ID.String())
	}

	rule, err := e.configs.GetRule(ctx, req.RuleID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "读取分配规则失败")
	}
	if rule == nil {
		return nil, nil, errors.NotFoundf("分配规则", req.RuleID.String())
	}

	if violations := validator.ValidatePool(pool); len(violations) > 0 {
		return nil, nil, errors.New(errors.CodeInvalidRuleConfig, "奖金池配置无效").
			WithDetails(strings.Join(violations, "; "))
	}
	if violations := validator.BlockingRuleViolations(rule); len(violations) > 0 {
		return nil, nil, errors.InvalidRuleConfig(strings.Join(violations, "; "))
	}
	// 档位比例之和偏离1不阻断，分配策略会自动归一化
	if advisory := validator.TierRatioAdvisory(rule.TierConfig); advisory != "" {
		logger.Warn().
			Str("rule_id", rule.ID.String()).
			Msg(advisory)
	}

	return pool, rule, nil
}

// collectCandidates 从计分结果构建通过资格筛选的分配对象
//
// 资格条件：员工在职、最终分数大于0且不低于规则阈值、在规则适用范围内。
// 不满足的员工跳过，不算错误；筛选后为空集则整次分配失败。
func (e *Engine) collectCandidates(ctx context.Context, req AllocateRequest, rule *model.AllocationRule) ([]*alloc.Candidate, map[uuid.UUID]*model.CalculationResult, int, error) {
	calcResults, err := e.sink.ListCalculationResults(ctx, req.Period, req.WeightConfigID)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "读取计分结果失败")
	}

	ids := make([]uuid.UUID, 0, len(calcResults))
	for _, r := range calcResults {
		ids = append(ids, r.EmployeeID)
	}
	employees, err := e.directory.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "读取员工失败")
	}
	byID := make(map[uuid.UUID]*model.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}

	var candidates []*alloc.Candidate
	resultByEmp := make(map[uuid.UUID]*model.CalculationResult, len(calcResults))
	skipped := 0
	for _, r := range calcResults {
		emp, ok := byID[r.EmployeeID]
		if !ok || !emp.IsActive() {
			skipped++
			continue
		}
		if r.FinalScore <= 0 || r.FinalScore < rule.MinScoreThreshold {
			skipped++
			continue
		}
		if !rule.AppliesTo(emp) {
			skipped++
			continue
		}

		coeffs := alloc.CalculateCoefficients(alloc.CoeffInput{
			Employee:         emp,
			FinalScore:       r.FinalScore,
			PerformanceScore: r.RawPerformanceScore,
		}, rule)

		candidates = append(candidates, &alloc.Candidate{
			Employee:         emp,
			FinalScore:       r.FinalScore,
			PerformanceScore: r.RawPerformanceScore,
			Coefficients:     coeffs,
		})
		resultByEmp[r.EmployeeID] = r
	}

	if len(candidates) == 0 {
		return nil, nil, 0, errors.ErrEmptyEligibleSet.
			WithField("period", req.Period.String()).
			WithField("skipped", skipped)
	}

	return candidates, resultByEmp, skipped, nil
}

// buildAllocationResults 将策略原始输出组装为分配结果并固化员工快照
func (e *Engine) buildAllocationResults(ctx context.Context, runID uuid.UUID, pool *model.BonusPool, rule *model.AllocationRule, period model.Period, candidates []*alloc.Candidate, resultByEmp map[uuid.UUID]*model.CalculationResult, rawAllocs []alloc.RawAllocation) ([]*model.AllocationResult, error) {
	deptNames := make(map[uuid.UUID]string)

	out := make([]*model.AllocationResult, len(candidates))
	for i, c := range candidates {
		emp := c.Employee

		deptName, ok := deptNames[emp.DepartmentID]
		if !ok {
			dept, err := e.directory.GetDepartment(ctx, emp.DepartmentID)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取部门失败")
			}
			if dept != nil {
				deptName = dept.Name
			}
			deptNames[emp.DepartmentID] = deptName
		}

		calc := resultByEmp[emp.ID]
		out[i] = &model.AllocationResult{
			BaseModel:  model.NewBaseModel(),
			RunID:      runID,
			PoolID:     pool.ID,
			RuleID:     rule.ID,
			EmployeeID: emp.ID,
			Period:     period,

			OriginalScore: calc.TotalScore,
			FinalScore:    c.FinalScore,
			Coefficients:  c.Coefficients,

			BaseAmount:        rawAllocs[i].BaseAmount,
			PerformanceAmount: rawAllocs[i].PerformanceAmount,

			Snapshot: model.EmployeeSnapshot{
				Name:           emp.Name,
				DepartmentName: deptName,
				PositionName:   emp.PositionName,
			},
		}
	}
	return out, nil
}
