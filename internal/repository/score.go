package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

// ScoreRepository 维度原始分数仓储
// 原始分数由上游评分系统写入，引擎只读
type ScoreRepository struct {
	db DB
}

// NewScoreRepository 创建维度分数仓储
func NewScoreRepository(db DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// GetRawScores 获取员工在某周期的三维原始分数
// 任一维度缺失时返回该维度的 ScoreNotFound 错误
func (r *ScoreRepository) GetRawScores(ctx context.Context, employeeID uuid.UUID, period model.Period) (model.RawScores, error) {
	all, err := r.BatchGetRawScores(ctx, []uuid.UUID{employeeID}, period)
	if err != nil {
		return model.RawScores{}, err
	}

	scores, ok := all[employeeID]
	if !ok {
		missing, mErr := r.MissingDimensions(ctx, employeeID, period)
		if mErr != nil {
			return model.RawScores{}, mErr
		}
		dim := model.DimensionProfit
		if len(missing) > 0 {
			dim = missing[0]
		}
		return model.RawScores{}, errors.ScoreNotFound(employeeID.String(), string(dim), string(period))
	}
	return scores, nil
}

// BatchGetRawScores 批量获取员工三维原始分数
// 返回映射中只包含三个维度齐全的员工；维度不全的员工不出现在结果中
func (r *ScoreRepository) BatchGetRawScores(ctx context.Context, employeeIDs []uuid.UUID, period model.Period) (map[uuid.UUID]model.RawScores, error) {
	if len(employeeIDs) == 0 {
		return map[uuid.UUID]model.RawScores{}, nil
	}

	placeholders := make([]string, len(employeeIDs))
	args := make([]interface{}, 0, len(employeeIDs)+1)
	args = append(args, string(period))
	for i, id := range employeeIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT employee_id, dimension, value, version
		FROM dimension_scores
		WHERE period = $1 AND employee_id IN (%s) AND deleted_at IS NULL
	`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询维度分数失败: %w", err)
	}
	defer rows.Close()

	type partial struct {
		scores model.RawScores
		seen   map[model.Dimension]bool
	}
	byEmployee := make(map[uuid.UUID]*partial)

	for rows.Next() {
		var empID uuid.UUID
		var score model.DimensionScore
		if err := rows.Scan(&empID, &score.Dimension, &score.Value, &score.Version); err != nil {
			return nil, fmt.Errorf("扫描维度分数失败: %w", err)
		}

		p, ok := byEmployee[empID]
		if !ok {
			p = &partial{seen: make(map[model.Dimension]bool)}
			byEmployee[empID] = p
		}
		switch score.Dimension {
		case model.DimensionProfit:
			p.scores.Profit = score
		case model.DimensionPosition:
			p.scores.Position = score
		case model.DimensionPerformance:
			p.scores.Performance = score
		default:
			continue
		}
		p.seen[score.Dimension] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历维度分数失败: %w", err)
	}

	result := make(map[uuid.UUID]model.RawScores, len(byEmployee))
	for empID, p := range byEmployee {
		if len(p.seen) == 3 {
			result[empID] = p.scores
		}
	}

	return result, nil
}

// MissingDimensions 返回员工缺失的维度列表（用于构造明确的数据错误）
func (r *ScoreRepository) MissingDimensions(ctx context.Context, employeeID uuid.UUID, period model.Period) ([]model.Dimension, error) {
	query := `
		SELECT dimension
		FROM dimension_scores
		WHERE period = $1 AND employee_id = $2 AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, string(period), employeeID)
	if err != nil {
		return nil, fmt.Errorf("查询维度分数失败: %w", err)
	}
	defer rows.Close()

	seen := make(map[model.Dimension]bool)
	for rows.Next() {
		var d model.Dimension
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("扫描维度失败: %w", err)
		}
		seen[d] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []model.Dimension
	for _, d := range []model.Dimension{model.DimensionProfit, model.DimensionPosition, model.DimensionPerformance} {
		if !seen[d] {
			missing = append(missing, d)
		}
	}

	return missing, nil
}
