package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/config"
	"github.com/jixiao/jixiao/pkg/model"
)

// fakeDirectory 内存实现的员工目录
type fakeDirectory struct {
	employees   map[uuid.UUID]*model.Employee
	departments map[uuid.UUID]*model.Department
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		employees:   make(map[uuid.UUID]*model.Employee),
		departments: make(map[uuid.UUID]*model.Department),
	}
}

func (f *fakeDirectory) add(emp *model.Employee) *model.Employee {
	f.employees[emp.ID] = emp
	return emp
}

func (f *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*model.Employee, error) {
	return f.employees[id], nil
}

func (f *fakeDirectory) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*model.Employee, error) {
	var out []*model.Employee
	for _, id := range ids {
		if emp, ok := f.employees[id]; ok {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListActive(_ context.Context, orgID uuid.UUID) ([]*model.Employee, error) {
	var out []*model.Employee
	for _, emp := range f.employees {
		if emp.OrgID == orgID && emp.IsActive() {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (f *fakeDirectory) GetDepartment(_ context.Context, id uuid.UUID) (*model.Department, error) {
	return f.departments[id], nil
}

// fakeScores 内存实现的维度分数提供方
type fakeScores struct {
	raw map[uuid.UUID]model.RawScores
}

func newFakeScores() *fakeScores {
	return &fakeScores{raw: make(map[uuid.UUID]model.RawScores)}
}

func (f *fakeScores) set(id uuid.UUID, profit, position, performance float64) {
	f.raw[id] = model.RawScores{
		Profit:      model.DimensionScore{Dimension: model.DimensionProfit, Value: profit, Version: "v1"},
		Position:    model.DimensionScore{Dimension: model.DimensionPosition, Value: position, Version: "v1"},
		Performance: model.DimensionScore{Dimension: model.DimensionPerformance, Value: performance, Version: "v1"},
	}
}

func (f *fakeScores) BatchGetRawScores(_ context.Context, ids []uuid.UUID, _ model.Period) (map[uuid.UUID]model.RawScores, error) {
	out := make(map[uuid.UUID]model.RawScores)
	for _, id := range ids {
		if raw, ok := f.raw[id]; ok {
			out[id] = raw
		}
	}
	return out, nil
}

func (f *fakeScores) MissingDimensions(_ context.Context, id uuid.UUID, _ model.Period) ([]model.Dimension, error) {
	if _, ok := f.raw[id]; ok {
		return nil, nil
	}
	return []model.Dimension{model.DimensionProfit, model.DimensionPosition, model.DimensionPerformance}, nil
}

// fakeConfigs 内存实现的配置存储
type fakeConfigs struct {
	weights map[uuid.UUID]*model.WeightConfig
	pools   map[uuid.UUID]*model.BonusPool
	rules   map[uuid.UUID]*model.AllocationRule
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{
		weights: make(map[uuid.UUID]*model.WeightConfig),
		pools:   make(map[uuid.UUID]*model.BonusPool),
		rules:   make(map[uuid.UUID]*model.AllocationRule),
	}
}

func (f *fakeConfigs) GetWeightConfig(_ context.Context, id uuid.UUID) (*model.WeightConfig, error) {
	return f.weights[id], nil
}

func (f *fakeConfigs) GetPool(_ context.Context, id uuid.UUID) (*model.BonusPool, error) {
	return f.pools[id], nil
}

func (f *fakeConfigs) GetRule(_ context.Context, id uuid.UUID) (*model.AllocationRule, error) {
	return f.rules[id], nil
}

// fakeSink 内存实现的结果写入
type fakeSink struct {
	mu          sync.Mutex
	saved       []*model.CalculationResult
	listResults []*model.CalculationResult
	rankUpdates int
	runs        map[uuid.UUID][]*model.AllocationResult
}

func newFakeSink() *fakeSink {
	return &fakeSink{runs: make(map[uuid.UUID][]*model.AllocationResult)}
}

func (f *fakeSink) SaveCalculationResults(_ context.Context, results []*model.CalculationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, results...)
	return nil
}

func (f *fakeSink) ListCalculationResults(_ context.Context, _ model.Period, _ uuid.UUID) ([]*model.CalculationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// 返回副本：真实仓储每次查询返回新切片，
	// 调用方原地排序不应改变 fake 内部切片的顺序
	if f.listResults != nil {
		return append([]*model.CalculationResult(nil), f.listResults...), nil
	}
	return append([]*model.CalculationResult(nil), f.saved...), nil
}

func (f *fakeSink) UpdateRanks(_ context.Context, _ []*model.CalculationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rankUpdates++
	return nil
}

func (f *fakeSink) SaveAllocationRun(_ context.Context, poolID uuid.UUID, results []*model.AllocationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[poolID] = results
	return nil
}

// 测试夹具

func testEngine(dir *fakeDirectory, scores *fakeScores, configs *fakeConfigs, sink *fakeSink) *Engine {
	return New(dir, scores, configs, sink, config.EngineConfig{
		BatchSize:      2,
		MaxWorkers:     2,
		TaskTTL:        time.Minute,
		JanitorPeriod:  time.Minute,
		DefaultTimeout: 5 * time.Second,
	})
}

func testEmployee(orgID uuid.UUID, name string, level model.PositionLevel) *model.Employee {
	return &model.Employee{
		BaseModel:     model.NewBaseModel(),
		OrgID:         orgID,
		Name:          name,
		Code:          name,
		Status:        "active",
		DepartmentID:  uuid.New(),
		PositionID:    uuid.New(),
		PositionLevel: level,
		PositionName:  "工程师",
		TenureMonths:  24,
	}
}

func testWeightConfig() *model.WeightConfig {
	return &model.WeightConfig{
		BaseModel:               model.NewBaseModel(),
		OrgID:                   uuid.New(),
		Name:                    "默认权重",
		Version:                 1,
		ProfitWeight:            0.5,
		PositionWeight:          0.3,
		PerformanceWeight:       0.2,
		CalculationMethod:       model.CalcWeightedSum,
		NormalizationMethod:     model.NormMinMax,
		ExcellenceBonus:         0.2,
		PerformanceMultiplier:   1.2,
		PositionLevelMultiplier: 1.1,
		EffectiveFrom:           time.Now().Add(-24 * time.Hour),
	}
}

func testPool(totalAmount float64) *model.BonusPool {
	pool := &model.BonusPool{
		BaseModel:    model.NewBaseModel(),
		OrgID:        uuid.New(),
		Period:       "2025-06",
		Status:       model.PoolDraft,
		TotalAmount:  totalAmount,
		PoolRatio:    0.5,
		ReserveRatio: 0.1,
		SpecialRatio: 0.05,
	}
	pool.ComputeDistributable()
	return pool
}

func testRule() *model.AllocationRule {
	return &model.AllocationRule{
		BaseModel:                  model.NewBaseModel(),
		OrgID:                      uuid.New(),
		Name:                       "默认规则",
		Version:                    1,
		AllocationMethod:           model.MethodScoreBased,
		ScoreDistributionMethod:    model.DistLinear,
		BaseAllocationRatio:        0.6,
		PerformanceAllocationRatio: 0.4,
		ReserveRatio:               0.1,
	}
}

// testCalcResult 构造分配用的计分结果
func testCalcResult(emp *model.Employee, period model.Period, weightConfigID uuid.UUID, finalScore, rawPerf float64) *model.CalculationResult {
	return &model.CalculationResult{
		BaseModel:           model.NewBaseModel(),
		EmployeeID:          emp.ID,
		Period:              period,
		WeightConfigID:      weightConfigID,
		DepartmentID:        emp.DepartmentID,
		PositionLevel:       emp.PositionLevel,
		RawPerformanceScore: rawPerf,
		TotalScore:          finalScore,
		AdjustedScore:       finalScore,
		FinalScore:          finalScore,
	}
}
