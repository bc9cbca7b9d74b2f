package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/internal/database"
	"github.com/jixiao/jixiao/pkg/model"
)

// ResultStore 结果读写门面
// 聚合计分结果与分配结果仓储，分配批次落库与池状态翻转在同一事务内完成
type ResultStore struct {
	db     *database.DB
	calc   *CalculationResultRepository
	allocs *AllocationResultRepository
	config *ConfigRepository
}

// NewResultStore 创建结果读写门面
func NewResultStore(db *database.DB) *ResultStore {
	return &ResultStore{
		db:     db,
		calc:   NewCalculationResultRepository(db),
		allocs: NewAllocationResultRepository(db),
		config: NewConfigRepository(db),
	}
}

// SaveCalculationResults 批量保存计分结果
func (s *ResultStore) SaveCalculationResults(ctx context.Context, results []*model.CalculationResult) error {
	return s.calc.SaveBatch(ctx, results)
}

// ListCalculationResults 读取某 (周期, 权重配置) 的全部计分结果
func (s *ResultStore) ListCalculationResults(ctx context.Context, period model.Period, weightConfigID uuid.UUID) ([]*model.CalculationResult, error) {
	return s.calc.ListByPeriod(ctx, period, weightConfigID)
}

// UpdateRanks 回填排名字段
func (s *ResultStore) UpdateRanks(ctx context.Context, results []*model.CalculationResult) error {
	return s.calc.UpdateRanks(ctx, results)
}

// SaveAllocationRun 原子写入分配批次
// 批次结果与池状态翻转要么同时成功要么同时回滚
func (s *ResultStore) SaveAllocationRun(ctx context.Context, poolID uuid.UUID, results []*model.AllocationResult) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := s.allocs.SaveRun(ctx, tx, results); err != nil {
			return err
		}
		return s.config.MarkPoolAllocated(ctx, tx, poolID)
	})
}
