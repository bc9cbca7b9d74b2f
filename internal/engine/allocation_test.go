package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

// allocationFixture 两名员工的标准分配场景
// 池子总额100000，规则预留0.1，可分配90000；
// E1 分数0.8、E2 分数0.4，系数全部中性（绩效原始分0.5）
func allocationFixture() (*Engine, *fakeSink, *model.BonusPool, *model.AllocationRule, []*model.Employee, uuid.UUID) {
	dir := newFakeDirectory()
	scores := newFakeScores()
	configs := newFakeConfigs()
	sink := newFakeSink()

	weightConfigID := uuid.New()
	orgID := uuid.New()

	e1 := dir.add(testEmployee(orgID, "E1", model.LevelMiddle))
	e2 := dir.add(testEmployee(orgID, "E2", model.LevelMiddle))

	pool := testPool(100000)
	pool.OrgID = orgID
	configs.pools[pool.ID] = pool

	rule := testRule()
	rule.OrgID = orgID
	configs.rules[rule.ID] = rule

	sink.listResults = []*model.CalculationResult{
		testCalcResult(e1, testPeriod, weightConfigID, 0.8, 0.5),
		testCalcResult(e2, testPeriod, weightConfigID, 0.4, 0.5),
	}

	eng := testEngine(dir, scores, configs, sink)
	return eng, sink, pool, rule, []*model.Employee{e1, e2}, weightConfigID
}

func allocRequest(pool *model.BonusPool, rule *model.AllocationRule, weightConfigID uuid.UUID) AllocateRequest {
	return AllocateRequest{
		PoolID:         pool.ID,
		RuleID:         rule.ID,
		Period:         testPeriod,
		WeightConfigID: weightConfigID,
	}
}

func TestAllocatePoolLinear(t *testing.T) {
	eng, sink, pool, rule, emps, wcID := allocationFixture()
	defer eng.Close()

	outcome, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	if outcome.EligibleCount != 2 {
		t.Fatalf("符合条件人数 = %d, expected 2", outcome.EligibleCount)
	}

	byEmp := make(map[uuid.UUID]*model.AllocationResult)
	for _, r := range outcome.Results {
		byEmp[r.EmployeeID] = r
	}

	// 可分配 90000，线性占比 2/3 与 1/3
	e1 := byEmp[emps[0].ID]
	if e1.BaseAmount != 36000 {
		t.Errorf("E1 基础金额 = %v, expected 36000", e1.BaseAmount)
	}
	if e1.PerformanceAmount != 24000 {
		t.Errorf("E1 绩效金额 = %v, expected 24000", e1.PerformanceAmount)
	}
	if e1.TotalAmount != 60000 {
		t.Errorf("E1 合计 = %v, expected 60000", e1.TotalAmount)
	}

	e2 := byEmp[emps[1].ID]
	if e2.TotalAmount != 30000 {
		t.Errorf("E2 合计 = %v, expected 30000", e2.TotalAmount)
	}

	// 金额守恒：合计 = 基础+绩效+调整
	for _, r := range outcome.Results {
		if !r.AmountsConsistent() {
			t.Errorf("员工 %s 金额不守恒", r.EmployeeID)
		}
	}

	// 落库且与批次一致
	saved, ok := sink.runs[pool.ID]
	if !ok {
		t.Fatal("分配批次未落库")
	}
	if len(saved) != 2 {
		t.Errorf("落库结果数 = %d, expected 2", len(saved))
	}

	// 快照固化
	if e1.Snapshot.Name != "E1" {
		t.Errorf("快照姓名 = %q, expected E1", e1.Snapshot.Name)
	}
}

func TestAllocatePoolSimulate(t *testing.T) {
	eng, sink, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	req := allocRequest(pool, rule, wcID)
	req.Simulate = true

	outcome, err := eng.AllocatePool(context.Background(), req)
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	if !outcome.Simulated {
		t.Error("Simulated 应为 true")
	}
	if len(outcome.Results) != 2 {
		t.Errorf("试算结果数 = %d, expected 2", len(outcome.Results))
	}
	if len(sink.runs) != 0 {
		t.Error("试算模式不应落库")
	}
}

func TestAllocatePoolAlreadyAllocated(t *testing.T) {
	eng, _, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	pool.Status = model.PoolAllocated

	_, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if !errors.Is(err, errors.CodePoolAlreadyAllocated) {
		t.Errorf("错误码 = %v, expected POOL_ALREADY_ALLOCATED", errors.GetCode(err))
	}
}

func TestAllocatePoolEmptyEligibleSet(t *testing.T) {
	eng, _, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	rule.MinScoreThreshold = 0.95 // 所有人低于门槛

	_, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if !errors.Is(err, errors.CodeEmptyEligibleSet) {
		t.Errorf("错误码 = %v, expected EMPTY_ELIGIBLE_SET", errors.GetCode(err))
	}
}

func TestAllocatePoolScopeFilter(t *testing.T) {
	eng, _, pool, rule, emps, wcID := allocationFixture()
	defer eng.Close()

	// 只允许 E1 所在部门
	rule.DepartmentIDs = []uuid.UUID{emps[0].DepartmentID}

	outcome, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	if outcome.EligibleCount != 1 {
		t.Errorf("符合条件人数 = %d, expected 1", outcome.EligibleCount)
	}
	if outcome.SkippedCount != 1 {
		t.Errorf("跳过人数 = %d, expected 1", outcome.SkippedCount)
	}
	if outcome.Results[0].EmployeeID != emps[0].ID {
		t.Errorf("入选员工 = %s, expected E1", outcome.Results[0].EmployeeID)
	}
}

func TestAllocatePoolBudgetCap(t *testing.T) {
	eng, _, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	// 上限 = 100000 × 0.45 = 45000，原始合计 90000，缩放0.5
	rule.TotalAllocationLimit = 0.45

	outcome, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	if !outcome.Summary.Capped {
		t.Fatal("应触发总额上限")
	}
	if outcome.Summary.CapFactor != 0.5 {
		t.Errorf("缩放因子 = %v, expected 0.5", outcome.Summary.CapFactor)
	}
	if outcome.TotalAmount > 45000+model.AmountTolerance {
		t.Errorf("执行后合计 = %v, 超出上限45000", outcome.TotalAmount)
	}

	// 缩减量进入调整金额，基础/绩效保留策略原值
	for _, r := range outcome.Results {
		if r.AdjustmentAmount >= 0 {
			t.Errorf("员工 %s 调整金额 = %v, 应为负数", r.EmployeeID, r.AdjustmentAmount)
		}
		if !r.AmountsConsistent() {
			t.Errorf("员工 %s 金额不守恒", r.EmployeeID)
		}
	}
}

func TestAllocatePoolGuardRails(t *testing.T) {
	eng, _, pool, rule, emps, wcID := allocationFixture()
	defer eng.Close()

	rule.MaxBonusAmount = 50000

	outcome, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	byEmp := make(map[uuid.UUID]*model.AllocationResult)
	for _, r := range outcome.Results {
		byEmp[r.EmployeeID] = r
	}

	e1 := byEmp[emps[0].ID]
	if e1.TotalAmount != 50000 {
		t.Errorf("E1 合计 = %v, expected 钳制到50000", e1.TotalAmount)
	}
	if !e1.MaxAmountApplied {
		t.Error("E1 应标记触发上限护栏")
	}
	if e1.OriginalCalculatedAmount != 60000 {
		t.Errorf("E1 护栏前金额 = %v, expected 60000", e1.OriginalCalculatedAmount)
	}
	if outcome.Summary.MaxApplied != 1 {
		t.Errorf("触发上限人数 = %d, expected 1", outcome.Summary.MaxApplied)
	}
}

func TestAllocatePoolTierRenormalization(t *testing.T) {
	eng, sink, pool, rule, emps, wcID := allocationFixture()
	defer eng.Close()

	// 档位比例之和1.2，分配时归一化为 7/12 与 5/12
	rule.AllocationMethod = model.MethodTierBased
	rule.TierConfig = []model.Tier{
		{Name: "高档", MinScore: 0.6, Ratio: 0.7},
		{Name: "低档", MinScore: 0.0, Ratio: 0.5},
	}

	outcome, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if err != nil {
		t.Fatalf("AllocatePool() error = %v", err)
	}

	byEmp := make(map[uuid.UUID]*model.AllocationResult)
	for _, r := range outcome.Results {
		byEmp[r.EmployeeID] = r
	}

	// 可分配 90000：高档独占 52500，低档独占 37500
	if got := byEmp[emps[0].ID].TotalAmount; got != 52500 {
		t.Errorf("E1 合计 = %v, expected 52500", got)
	}
	if got := byEmp[emps[1].ID].TotalAmount; got != 37500 {
		t.Errorf("E2 合计 = %v, expected 37500", got)
	}
	if !model.NearlyEqual(outcome.TotalAmount, 90000, model.AmountTolerance) {
		t.Errorf("执行后合计 = %v, expected 90000", outcome.TotalAmount)
	}
	if _, ok := sink.runs[pool.ID]; !ok {
		t.Error("归一化后的分配应正常落库")
	}

	// 配置校验报告仍需提示偏差
	violations, err := eng.ValidateRuleConfig(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("ValidateRuleConfig() error = %v", err)
	}
	if len(violations) != 1 {
		t.Errorf("违规提示数 = %d, expected 1", len(violations))
	}
}

func TestAllocatePoolInvalidRule(t *testing.T) {
	eng, sink, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	rule.PerformanceAllocationRatio = 0.3 // 比例和变为0.9

	_, err := eng.AllocatePool(context.Background(), allocRequest(pool, rule, wcID))
	if !errors.Is(err, errors.CodeInvalidRuleConfig) {
		t.Errorf("错误码 = %v, expected INVALID_RULE_CONFIG", errors.GetCode(err))
	}
	if len(sink.runs) != 0 {
		t.Error("配置错误不应落库")
	}
}

func TestAllocatePoolNotFound(t *testing.T) {
	eng, _, pool, rule, _, wcID := allocationFixture()
	defer eng.Close()

	req := allocRequest(pool, rule, wcID)
	req.PoolID = uuid.New()

	_, err := eng.AllocatePool(context.Background(), req)
	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("错误码 = %v, expected NOT_FOUND", errors.GetCode(err))
	}
}

func TestValidateRuleConfig(t *testing.T) {
	eng, _, pool, rule, _, _ := allocationFixture()
	defer eng.Close()
	_ = pool

	rule.BaseAllocationRatio = 1.5

	violations, err := eng.ValidateRuleConfig(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("ValidateRuleConfig() error = %v", err)
	}
	if len(violations) == 0 {
		t.Error("比例越界应产生违规信息")
	}
}
