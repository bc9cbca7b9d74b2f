package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/metrics"
	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/logger"
	"github.com/jixiao/jixiao/pkg/model"
	"github.com/jixiao/jixiao/pkg/scoring"
	"github.com/jixiao/jixiao/pkg/validator"
)

// EmployeeFailure 单员工计分失败记录
type EmployeeFailure struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	Reason     string    `json:"reason"`
	Err        error     `json:"-"`
}

// BatchOutcome 批量计分结果
// 数据问题按员工隔离：失败员工进入 Failures，不影响其他员工
type BatchOutcome struct {
	Period         model.Period               `json:"period"`
	WeightConfigID uuid.UUID                  `json:"weight_config_id"`
	Results        []*model.CalculationResult `json:"results"`
	Failures       []EmployeeFailure          `json:"failures"`
}

// populations 三维群体分数（标准化的参照群体）
type populations struct {
	profit      []float64
	position    []float64
	performance []float64
}

// scorePipeline 一次计分运行共享的纯计算组件
type scorePipeline struct {
	cfg        *model.WeightConfig
	weights    scoring.Weights
	normalizer scoring.Normalizer
	combiner   scoring.Combiner
	adjuster   *scoring.Adjuster
}

// newScorePipeline 校验权重配置并构建计算组件
// 配置问题导致整次运行失败，不产生部分结果
func newScorePipeline(cfg *model.WeightConfig) (*scorePipeline, error) {
	if violations := validator.ValidateWeightConfig(cfg); len(violations) > 0 {
		return nil, errors.InvalidWeightConfig(strings.Join(violations, "; "))
	}

	normalizer, err := scoring.NewNormalizer(cfg.NormalizationMethod)
	if err != nil {
		return nil, err
	}
	combiner, err := scoring.NewCombiner(cfg.CalculationMethod)
	if err != nil {
		return nil, err
	}

	return &scorePipeline{
		cfg:        cfg,
		weights:    scoring.WeightsFrom(cfg),
		normalizer: normalizer,
		combiner:   combiner,
		adjuster:   scoring.NewAdjuster(cfg),
	}, nil
}

// compute 计算单个员工的完整计分结果（排名字段留空）
func (p *scorePipeline) compute(emp *model.Employee, raw model.RawScores, period model.Period, pop populations) *model.CalculationResult {
	norm := scoring.NormalizedScores{
		Profit:      p.normalizer.Normalize(raw.Profit.Value, pop.profit),
		Position:    p.normalizer.Normalize(raw.Position.Value, pop.position),
		Performance: p.normalizer.Normalize(raw.Performance.Value, pop.performance),
	}

	total := p.combiner.Combine(norm, p.weights)
	final := p.adjuster.Apply(total, raw, emp.PositionLevel)

	res := &model.CalculationResult{
		BaseModel:      model.NewBaseModel(),
		EmployeeID:     emp.ID,
		Period:         period,
		WeightConfigID: p.cfg.ID,
		DepartmentID:   emp.DepartmentID,
		PositionLevel:  emp.PositionLevel,

		RawProfitScore:      raw.Profit.Value,
		RawPositionScore:    raw.Position.Value,
		RawPerformanceScore: raw.Performance.Value,
		ScoreVersion:        raw.Profit.Version,

		NormProfitScore:      norm.Profit,
		NormPositionScore:    norm.Position,
		NormPerformanceScore: norm.Performance,

		WeightedProfitScore:      norm.Profit * p.weights.Profit,
		WeightedPositionScore:    norm.Position * p.weights.Position,
		WeightedPerformanceScore: norm.Performance * p.weights.Performance,

		TotalScore:    total,
		AdjustedScore: final,
		FinalScore:    final,
	}
	return res
}

// ScoreEmployee 计算单个员工的多维得分
// 标准化参照群体为该员工所在组织全部在职员工的同周期分数；
// 员工缺失、分数缺失、群体为空均为致命错误。
func (e *Engine) ScoreEmployee(ctx context.Context, employeeID uuid.UUID, period model.Period, weightConfigID uuid.UUID) (*model.CalculationResult, error) {
	start := time.Now()

	if !period.Valid() {
		return nil, errors.New(errors.CodeInvalidInput, "周期格式无效: "+period.String())
	}

	emp, err := e.directory.GetByID(ctx, employeeID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工失败")
	}
	if emp == nil {
		return nil, errors.EmployeeNotFound(employeeID.String())
	}

	cfg, err := e.loadWeightConfig(ctx, weightConfigID)
	if err != nil {
		return nil, err
	}
	pipeline, err := newScorePipeline(cfg)
	if err != nil {
		return nil, err
	}

	actives, err := e.directory.ListActive(ctx, emp.OrgID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取在职员工失败")
	}
	activeIDs := make([]uuid.UUID, 0, len(actives)+1)
	for _, a := range actives {
		activeIDs = append(activeIDs, a.ID)
	}
	if !containsID(activeIDs, emp.ID) {
		activeIDs = append(activeIDs, emp.ID)
	}

	rawByEmp, err := e.scores.BatchGetRawScores(ctx, activeIDs, period)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取维度分数失败")
	}

	raw, ok := rawByEmp[emp.ID]
	if !ok {
		return nil, e.missingScoreError(ctx, emp.ID, period)
	}

	pop := buildPopulations(rawByEmp)
	result := pipeline.compute(emp, raw, period, pop)

	if err := e.sink.SaveCalculationResults(ctx, []*model.CalculationResult{result}); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存计分结果失败")
	}

	metrics.RecordScoringRun("single", true, time.Since(start))
	logger.Info().
		Str("employee_id", emp.ID.String()).
		Str("period", period.String()).
		Float64("final_score", result.FinalScore).
		Msg("单员工计分完成")

	return result, nil
}

// BatchScoreEmployees 批量计分
// 固定每批10人，批次间有界并发；数据问题按员工隔离，配置问题整次失败。
// 全部批次完成后对成功集合整体计算排名并持久化。
func (e *Engine) BatchScoreEmployees(ctx context.Context, employeeIDs []uuid.UUID, period model.Period, weightConfigID uuid.UUID) (*BatchOutcome, error) {
	start := time.Now()

	if !period.Valid() {
		return nil, errors.New(errors.CodeInvalidInput, "周期格式无效: "+period.String())
	}

	cfg, err := e.loadWeightConfig(ctx, weightConfigID)
	if err != nil {
		return nil, err
	}
	pipeline, err := newScorePipeline(cfg)
	if err != nil {
		return nil, err
	}

	outcome := &BatchOutcome{
		Period:         period,
		WeightConfigID: cfg.ID,
	}

	employees, err := e.directory.ListByIDs(ctx, employeeIDs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工失败")
	}
	byID := make(map[uuid.UUID]*model.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}
	for _, id := range employeeIDs {
		if _, ok := byID[id]; !ok {
			outcome.fail(id, errors.EmployeeNotFound(id.String()))
		}
	}

	foundIDs := make([]uuid.UUID, 0, len(employees))
	for _, emp := range employees {
		foundIDs = append(foundIDs, emp.ID)
	}
	rawByEmp, err := e.scores.BatchGetRawScores(ctx, foundIDs, period)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取维度分数失败")
	}

	var scoreable []*model.Employee
	for _, emp := range employees {
		if _, ok := rawByEmp[emp.ID]; ok {
			scoreable = append(scoreable, emp)
		} else {
			outcome.fail(emp.ID, e.missingScoreError(ctx, emp.ID, period))
		}
	}

	if len(scoreable) == 0 {
		metrics.RecordScoringRun("batch", false, time.Since(start))
		metrics.RecordScoredEmployees(0, len(outcome.Failures))
		logger.Warn().
			Str("period", period.String()).
			Int("failed", len(outcome.Failures)).
			Msg("批量计分无可计分员工")
		return outcome, nil
	}

	// 标准化参照群体为本次运行中分数齐全的员工
	pop := buildPopulations(rawByEmp)

	outcome.Results = e.runBatches(ctx, pipeline, scoreable, rawByEmp, period, pop)

	scoring.RankResults(outcome.Results)

	if err := e.sink.SaveCalculationResults(ctx, outcome.Results); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存计分结果失败")
	}

	metrics.RecordScoringRun("batch", true, time.Since(start))
	metrics.RecordScoredEmployees(len(outcome.Results), len(outcome.Failures))
	logger.Info().
		Str("period", period.String()).
		Int("scored", len(outcome.Results)).
		Int("failed", len(outcome.Failures)).
		Dur("duration", time.Since(start)).
		Msg("批量计分完成")

	return outcome, nil
}

// runBatches 将员工切为固定大小的批次，批次间有界并发计算
func (e *Engine) runBatches(ctx context.Context, pipeline *scorePipeline, employees []*model.Employee, rawByEmp map[uuid.UUID]model.RawScores, period model.Period, pop populations) []*model.CalculationResult {
	type batch struct {
		index     int
		employees []*model.Employee
	}

	var batches []batch
	for i := 0; i < len(employees); i += e.batchSize {
		end := i + e.batchSize
		if end > len(employees) {
			end = len(employees)
		}
		batches = append(batches, batch{index: len(batches), employees: employees[i:end]})
	}

	type batchResult struct {
		index   int
		results []*model.CalculationResult
	}

	jobChan := make(chan batch, len(batches))
	resultChan := make(chan batchResult, len(batches))

	workers := e.maxWorkers
	if workers > len(batches) {
		workers = len(batches)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					results := make([]*model.CalculationResult, 0, len(job.employees))
					for _, emp := range job.employees {
						results = append(results, pipeline.compute(emp, rawByEmp[emp.ID], period, pop))
					}
					resultChan <- batchResult{index: job.index, results: results}
				}
			}
		}()
	}

	for _, b := range batches {
		jobChan <- b
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	ordered := make([][]*model.CalculationResult, len(batches))
	for br := range resultChan {
		ordered[br.index] = br.results
	}

	var all []*model.CalculationResult
	for _, results := range ordered {
		all = append(all, results...)
	}
	return all
}

// RecalculateRankings 对某 (周期, 权重配置) 的已有结果整体重排
// 排名只在完整群体上有意义，任何成员变化都需要整体重算
func (e *Engine) RecalculateRankings(ctx context.Context, period model.Period, weightConfigID uuid.UUID) error {
	results, err := e.sink.ListCalculationResults(ctx, period, weightConfigID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "读取计分结果失败")
	}
	if len(results) == 0 {
		return nil
	}

	scoring.RankResults(results)

	if err := e.sink.UpdateRanks(ctx, results); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新排名失败")
	}

	logger.Info().
		Str("period", period.String()).
		Int("count", len(results)).
		Msg("排名重算完成")

	return nil
}

// loadWeightConfig 读取权重配置
func (e *Engine) loadWeightConfig(ctx context.Context, id uuid.UUID) (*model.WeightConfig, error) {
	cfg, err := e.configs.GetWeightConfig(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取权重配置失败")
	}
	if cfg == nil {
		return nil, errors.NotFoundf("权重配置", id.String())
	}
	return cfg, nil
}

// missingScoreError 构造指明缺失维度的数据错误
func (e *Engine) missingScoreError(ctx context.Context, employeeID uuid.UUID, period model.Period) error {
	missing, err := e.scores.MissingDimensions(ctx, employeeID, period)
	if err != nil || len(missing) == 0 {
		return errors.ScoreNotFound(employeeID.String(), string(model.DimensionProfit), period.String())
	}
	return errors.ScoreNotFound(employeeID.String(), string(missing[0]), period.String())
}

// fail 记录单员工失败
func (o *BatchOutcome) fail(employeeID uuid.UUID, err error) {
	o.Failures = append(o.Failures, EmployeeFailure{
		EmployeeID: employeeID,
		Reason:     err.Error(),
		Err:        err,
	})
}

// buildPopulations 从分数齐全的员工构建三维群体
func buildPopulations(rawByEmp map[uuid.UUID]model.RawScores) populations {
	pop := populations{
		profit:      make([]float64, 0, len(rawByEmp)),
		position:    make([]float64, 0, len(rawByEmp)),
		performance: make([]float64, 0, len(rawByEmp)),
	}
	for _, raw := range rawByEmp {
		pop.profit = append(pop.profit, raw.Profit.Value)
		pop.position = append(pop.position, raw.Position.Value)
		pop.performance = append(pop.performance, raw.Performance.Value)
	}
	return pop
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
