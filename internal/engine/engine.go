// Package engine 提供计分与分配的编排层
// 计分/分配的纯计算在 pkg/scoring 与 pkg/alloc 中，
// 本包负责加载协作方数据、组织批次与落库。
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/config"
	"github.com/jixiao/jixiao/pkg/model"
)

// Directory 员工目录服务
// 引擎对目录数据只读
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Employee, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.Employee, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error)
}

// ScoreProvider 维度原始分数提供方
type ScoreProvider interface {
	BatchGetRawScores(ctx context.Context, employeeIDs []uuid.UUID, period model.Period) (map[uuid.UUID]model.RawScores, error)
	MissingDimensions(ctx context.Context, employeeID uuid.UUID, period model.Period) ([]model.Dimension, error)
}

// ConfigStore 配置读取
type ConfigStore interface {
	GetWeightConfig(ctx context.Context, id uuid.UUID) (*model.WeightConfig, error)
	GetPool(ctx context.Context, id uuid.UUID) (*model.BonusPool, error)
	GetRule(ctx context.Context, id uuid.UUID) (*model.AllocationRule, error)
}

// ResultSink 结果写入
type ResultSink interface {
	SaveCalculationResults(ctx context.Context, results []*model.CalculationResult) error
	ListCalculationResults(ctx context.Context, period model.Period, weightConfigID uuid.UUID) ([]*model.CalculationResult, error)
	UpdateRanks(ctx context.Context, results []*model.CalculationResult) error
	// SaveAllocationRun 原子写入分配批次并将奖金池翻转为已分配
	SaveAllocationRun(ctx context.Context, poolID uuid.UUID, results []*model.AllocationResult) error
}

// Engine 绩效奖金引擎
type Engine struct {
	directory Directory
	scores    ScoreProvider
	configs   ConfigStore
	sink      ResultSink

	batchSize  int
	maxWorkers int
	timeout    time.Duration

	tasks *TaskCache
}

// 引擎默认参数
const (
	DefaultBatchSize  = 10
	DefaultMaxWorkers = 4
	DefaultTaskTTL    = 30 * time.Minute
)

// New 创建引擎
func New(directory Directory, scores ScoreProvider, configs ConfigStore, sink ResultSink, cfg config.EngineConfig) *Engine {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	ttl := cfg.TaskTTL
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	janitor := cfg.JanitorPeriod
	if janitor <= 0 {
		janitor = ttl / 6
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Engine{
		directory:  directory,
		scores:     scores,
		configs:    configs,
		sink:       sink,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		timeout:    timeout,
		tasks:      NewTaskCache(ttl, janitor),
	}
}

// Close 停止引擎的后台协程
func (e *Engine) Close() {
	e.tasks.Stop()
}
