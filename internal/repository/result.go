package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/pkg/model"
)

// CalculationResultRepository 计分结果仓储
type CalculationResultRepository struct {
	db DB
}

// NewCalculationResultRepository 创建计分结果仓储
func NewCalculationResultRepository(db DB) *CalculationResultRepository {
	return &CalculationResultRepository{db: db}
}

const calcResultColumns = `id, employee_id, period, weight_config_id, department_id, position_level,
	raw_profit_score, raw_position_score, raw_performance_score, score_version,
	norm_profit_score, norm_position_score, norm_performance_score,
	weighted_profit_score, weighted_position_score, weighted_performance_score,
	total_score, adjusted_score, final_score,
	score_rank, percentile_rank, department_rank, level_rank,
	created_at, updated_at`

// Save 保存计分结果
// 同一 (员工, 周期, 权重配置) 重复计算时覆盖旧结果，保证幂等
func (r *CalculationResultRepository) Save(ctx context.Context, res *model.CalculationResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now

	query := `
		INSERT INTO calculation_results (
			id, employee_id, period, weight_config_id, department_id, position_level,
			raw_profit_score, raw_position_score, raw_performance_score, score_version,
			norm_profit_score, norm_position_score, norm_performance_score,
			weighted_profit_score, weighted_position_score, weighted_performance_score,
			total_score, adjusted_score, final_score,
			score_rank, percentile_rank, department_rank, level_rank,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (employee_id, period, weight_config_id) DO UPDATE SET
			department_id = EXCLUDED.department_id,
			position_level = EXCLUDED.position_level,
			raw_profit_score = EXCLUDED.raw_profit_score,
			raw_position_score = EXCLUDED.raw_position_score,
			raw_performance_score = EXCLUDED.raw_performance_score,
			score_version = EXCLUDED.score_version,
			norm_profit_score = EXCLUDED.norm_profit_score,
			norm_position_score = EXCLUDED.norm_position_score,
			norm_performance_score = EXCLUDED.norm_performance_score,
			weighted_profit_score = EXCLUDED.weighted_profit_score,
			weighted_position_score = EXCLUDED.weighted_position_score,
			weighted_performance_score = EXCLUDED.weighted_performance_score,
			total_score = EXCLUDED.total_score,
			adjusted_score = EXCLUDED.adjusted_score,
			final_score = EXCLUDED.final_score,
			score_rank = EXCLUDED.score_rank,
			percentile_rank = EXCLUDED.percentile_rank,
			department_rank = EXCLUDED.department_rank,
			level_rank = EXCLUDED.level_rank,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.EmployeeID, res.Period, res.WeightConfigID, res.DepartmentID, res.PositionLevel,
		res.RawProfitScore, res.RawPositionScore, res.RawPerformanceScore, res.ScoreVersion,
		res.NormProfitScore, res.NormPositionScore, res.NormPerformanceScore,
		res.WeightedProfitScore, res.WeightedPositionScore, res.WeightedPerformanceScore,
		res.TotalScore, res.AdjustedScore, res.FinalScore,
		res.ScoreRank, res.PercentileRank, res.DepartmentRank, res.LevelRank,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存计分结果失败: %w", err)
	}

	return nil
}

// SaveBatch 批量保存计分结果
func (r *CalculationResultRepository) SaveBatch(ctx context.Context, results []*model.CalculationResult) error {
	for _, res := range results {
		if err := r.Save(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// ListByPeriod 获取某周期某权重配置下的全部计分结果
func (r *CalculationResultRepository) ListByPeriod(ctx context.Context, period model.Period, weightConfigID uuid.UUID) ([]*model.CalculationResult, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM calculation_results
		WHERE period = $1 AND weight_config_id = $2 AND deleted_at IS NULL
		ORDER BY final_score DESC, employee_id
	`, calcResultColumns)

	rows, err := r.db.QueryContext(ctx, query, string(period), weightConfigID)
	if err != nil {
		return nil, fmt.Errorf("查询计分结果失败: %w", err)
	}
	defer rows.Close()

	var results []*model.CalculationResult
	for rows.Next() {
		res := &model.CalculationResult{}
		err := rows.Scan(
			&res.ID, &res.EmployeeID, &res.Period, &res.WeightConfigID, &res.DepartmentID, &res.PositionLevel,
			&res.RawProfitScore, &res.RawPositionScore, &res.RawPerformanceScore, &res.ScoreVersion,
			&res.NormProfitScore, &res.NormPositionScore, &res.NormPerformanceScore,
			&res.WeightedProfitScore, &res.WeightedPositionScore, &res.WeightedPerformanceScore,
			&res.TotalScore, &res.AdjustedScore, &res.FinalScore,
			&res.ScoreRank, &res.PercentileRank, &res.DepartmentRank, &res.LevelRank,
			&res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描计分结果失败: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// UpdateRanks 回填排名字段
func (r *CalculationResultRepository) UpdateRanks(ctx context.Context, results []*model.CalculationResult) error {
	query := `
		UPDATE calculation_results
		SET score_rank = $2, percentile_rank = $3, department_rank = $4, level_rank = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`

	now := time.Now()
	for _, res := range results {
		if _, err := r.db.ExecContext(ctx, query,
			res.ID, res.ScoreRank, res.PercentileRank, res.DepartmentRank, res.LevelRank, now,
		); err != nil {
			return fmt.Errorf("更新排名失败: %w", err)
		}
	}

	return nil
}
