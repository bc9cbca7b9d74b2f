package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/pkg/model"
)

// AllocationResultRepository 分配结果仓储
// 分配结果按批次（RunID）写入，写入后不再修改
type AllocationResultRepository struct {
	db DB
}

// NewAllocationResultRepository 创建分配结果仓储
func NewAllocationResultRepository(db DB) *AllocationResultRepository {
	return &AllocationResultRepository{db: db}
}

// SaveRun 在事务内写入一个分配批次
// 调用方负责在同一事务内将奖金池状态翻转为已分配
func (r *AllocationResultRepository) SaveRun(ctx context.Context, tx DB, results []*model.AllocationResult) error {
	query := `
		INSERT INTO allocation_results (
			id, run_id, pool_id, rule_id, employee_id, period,
			original_score, final_score,
			base_coeff, performance_coeff, position_coeff, department_coeff, special_coeff, final_coeff,
			base_amount, performance_amount, adjustment_amount, total_amount,
			original_calculated_amount, min_amount_applied, max_amount_applied,
			snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	now := time.Now()
	for _, res := range results {
		if res.ID == uuid.Nil {
			res.ID = uuid.New()
		}
		res.CreatedAt = now
		res.UpdatedAt = now

		snapJSON, _ := json.Marshal(res.Snapshot)

		if _, err := tx.ExecContext(ctx, query,
			res.ID, res.RunID, res.PoolID, res.RuleID, res.EmployeeID, res.Period,
			res.OriginalScore, res.FinalScore,
			res.Base, res.Performance, res.Position, res.Department, res.Special, res.Final,
			res.BaseAmount, res.PerformanceAmount, res.AdjustmentAmount, res.TotalAmount,
			res.OriginalCalculatedAmount, res.MinAmountApplied, res.MaxAmountApplied,
			snapJSON, res.CreatedAt, res.UpdatedAt,
		); err != nil {
			return fmt.Errorf("写入分配结果失败: %w", err)
		}
	}

	return nil
}

// ListByRun 获取某分配批次的全部结果
func (r *AllocationResultRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*model.AllocationResult, error) {
	query := `
		SELECT id, run_id, pool_id, rule_id, employee_id, period,
			original_score, final_score,
			base_coeff, performance_coeff, position_coeff, department_coeff, special_coeff, final_coeff,
			base_amount, performance_amount, adjustment_amount, total_amount,
			original_calculated_amount, min_amount_applied, max_amount_applied,
			snapshot, created_at, updated_at
		FROM allocation_results
		WHERE run_id = $1 AND deleted_at IS NULL
		ORDER BY total_amount DESC, employee_id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("查询分配结果失败: %w", err)
	}
	defer rows.Close()

	var results []*model.AllocationResult
	for rows.Next() {
		res := &model.AllocationResult{}
		var snapJSON []byte

		err := rows.Scan(
			&res.ID, &res.RunID, &res.PoolID, &res.RuleID, &res.EmployeeID, &res.Period,
			&res.OriginalScore, &res.FinalScore,
			&res.Base, &res.Performance, &res.Position, &res.Department, &res.Special, &res.Final,
			&res.BaseAmount, &res.PerformanceAmount, &res.AdjustmentAmount, &res.TotalAmount,
			&res.OriginalCalculatedAmount, &res.MinAmountApplied, &res.MaxAmountApplied,
			&snapJSON, &res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描分配结果失败: %w", err)
		}

		json.Unmarshal(snapJSON, &res.Snapshot)
		results = append(results, res)
	}

	return results, rows.Err()
}

// SumByPool 统计某奖金池的已分配总额
func (r *AllocationResultRepository) SumByPool(ctx context.Context, poolID uuid.UUID) (float64, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM allocation_results
		WHERE pool_id = $1 AND deleted_at IS NULL
	`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, poolID).Scan(&total); err != nil {
		return 0, fmt.Errorf("统计已分配总额失败: %w", err)
	}

	return total, nil
}
