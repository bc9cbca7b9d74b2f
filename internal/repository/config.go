package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/pkg/model"
)

// ConfigRepository 配置仓储
// 覆盖权重配置、奖金池与分配规则三类配置对象
type ConfigRepository struct {
	db DB
}

// NewConfigRepository 创建配置仓储
func NewConfigRepository(db DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetWeightConfig 根据ID获取权重配置
func (r *ConfigRepository) GetWeightConfig(ctx context.Context, id uuid.UUID) (*model.WeightConfig, error) {
	query := `
		SELECT id, org_id, name, version,
			profit_weight, position_weight, performance_weight, sub_weights,
			calculation_method, normalization_method,
			excellence_bonus, performance_multiplier, position_level_multiplier,
			effective_from, effective_to, created_at, updated_at
		FROM weight_configs
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanWeightConfig(r.db.QueryRowContext(ctx, query, id))
}

// GetEffectiveWeightConfig 获取组织在某时刻生效的权重配置
// 多个生效版本时取版本号最大的一个
func (r *ConfigRepository) GetEffectiveWeightConfig(ctx context.Context, orgID uuid.UUID, at time.Time) (*model.WeightConfig, error) {
	query := `
		SELECT id, org_id, name, version,
			profit_weight, position_weight, performance_weight, sub_weights,
			calculation_method, normalization_method,
			excellence_bonus, performance_multiplier, position_level_multiplier,
			effective_from, effective_to, created_at, updated_at
		FROM weight_configs
		WHERE org_id = $1
			AND effective_from <= $2
			AND (effective_to IS NULL OR effective_to > $2)
			AND deleted_at IS NULL
		ORDER BY version DESC
		LIMIT 1
	`

	return r.scanWeightConfig(r.db.QueryRowContext(ctx, query, orgID, at))
}

// CreateWeightConfig 创建权重配置
// 已被计算结果引用的配置不允许修改，调整只能新建版本
func (r *ConfigRepository) CreateWeightConfig(ctx context.Context, cfg *model.WeightConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	subJSON, _ := json.Marshal(cfg.SubWeights)

	query := `
		INSERT INTO weight_configs (
			id, org_id, name, version,
			profit_weight, position_weight, performance_weight, sub_weights,
			calculation_method, normalization_method,
			excellence_bonus, performance_multiplier, position_level_multiplier,
			effective_from, effective_to, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.OrgID, cfg.Name, cfg.Version,
		cfg.ProfitWeight, cfg.PositionWeight, cfg.PerformanceWeight, subJSON,
		cfg.CalculationMethod, cfg.NormalizationMethod,
		cfg.ExcellenceBonus, cfg.PerformanceMultiplier, cfg.PositionLevelMultiplier,
		cfg.EffectiveFrom, cfg.EffectiveTo, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建权重配置失败: %w", err)
	}

	return nil
}

// GetPool 根据ID获取奖金池
func (r *ConfigRepository) GetPool(ctx context.Context, id uuid.UUID) (*model.BonusPool, error) {
	query := `
		SELECT id, org_id, period, status,
			total_amount, pool_ratio, pool_amount,
			reserve_ratio, special_ratio, distributable_amount,
			created_at, updated_at
		FROM bonus_pools
		WHERE id = $1 AND deleted_at IS NULL
	`

	pool := &model.BonusPool{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pool.ID, &pool.OrgID, &pool.Period, &pool.Status,
		&pool.TotalAmount, &pool.PoolRatio, &pool.PoolAmount,
		&pool.ReserveRatio, &pool.SpecialRatio, &pool.DistributableAmount,
		&pool.CreatedAt, &pool.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询奖金池失败: %w", err)
	}

	return pool, nil
}

// CreatePool 创建奖金池
func (r *ConfigRepository) CreatePool(ctx context.Context, pool *model.BonusPool) error {
	if pool.ID == uuid.Nil {
		pool.ID = uuid.New()
	}
	now := time.Now()
	pool.CreatedAt = now
	pool.UpdatedAt = now
	pool.ComputeDistributable()

	query := `
		INSERT INTO bonus_pools (
			id, org_id, period, status,
			total_amount, pool_ratio, pool_amount,
			reserve_ratio, special_ratio, distributable_amount,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		pool.ID, pool.OrgID, pool.Period, pool.Status,
		pool.TotalAmount, pool.PoolRatio, pool.PoolAmount,
		pool.ReserveRatio, pool.SpecialRatio, pool.DistributableAmount,
		pool.CreatedAt, pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建奖金池失败: %w", err)
	}

	return nil
}

// MarkPoolAllocated 将奖金池标记为已分配（在事务内调用）
// 只有草稿状态的池子可以完成分配，返回影响行数为0表示状态竞争
func (r *ConfigRepository) MarkPoolAllocated(ctx context.Context, tx DB, poolID uuid.UUID) error {
	query := `
		UPDATE bonus_pools
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL
	`

	result, err := tx.ExecContext(ctx, query, poolID, model.PoolAllocated, time.Now(), model.PoolDraft)
	if err != nil {
		return fmt.Errorf("更新奖金池状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("奖金池 %s 不是草稿状态", poolID)
	}

	return nil
}

// GetRule 根据ID获取分配规则
func (r *ConfigRepository) GetRule(ctx context.Context, id uuid.UUID) (*model.AllocationRule, error) {
	query := `
		SELECT id, org_id, name, version,
			allocation_method, score_distribution_method, score_distribution_exponent, fixed_amount,
			base_allocation_ratio, performance_allocation_ratio,
			reserve_ratio, min_score_threshold,
			business_lines, department_ids, position_levels, tier_config,
			min_bonus_amount, max_bonus_amount, min_bonus_ratio, max_bonus_ratio,
			total_allocation_limit, level_weights, department_weights, special_rules,
			created_at, updated_at
		FROM allocation_rules
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanRule(r.db.QueryRowContext(ctx, query, id))
}

// CreateRule 创建分配规则
func (r *ConfigRepository) CreateRule(ctx context.Context, rule *model.AllocationRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	linesJSON, _ := json.Marshal(rule.BusinessLines)
	deptsJSON, _ := json.Marshal(rule.DepartmentIDs)
	levelsJSON, _ := json.Marshal(rule.PositionLevels)
	tiersJSON, _ := json.Marshal(rule.TierConfig)
	levelWeightsJSON, _ := json.Marshal(rule.LevelWeights)
	deptWeightsJSON, _ := json.Marshal(rule.DepartmentWeights)
	specialJSON, _ := json.Marshal(rule.SpecialRules)

	query := `
		INSERT INTO allocation_rules (
			id, org_id, name, version,
			allocation_method, score_distribution_method, score_distribution_exponent, fixed_amount,
			base_allocation_ratio, performance_allocation_ratio,
			reserve_ratio, min_score_threshold,
			business_lines, department_ids, position_levels, tier_config,
			min_bonus_amount, max_bonus_amount, min_bonus_ratio, max_bonus_ratio,
			total_allocation_limit, level_weights, department_weights, special_rules,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.OrgID, rule.Name, rule.Version,
		rule.AllocationMethod, rule.ScoreDistributionMethod, rule.ScoreDistributionExponent, rule.FixedAmount,
		rule.BaseAllocationRatio, rule.PerformanceAllocationRatio,
		rule.ReserveRatio, rule.MinScoreThreshold,
		linesJSON, deptsJSON, levelsJSON, tiersJSON,
		rule.MinBonusAmount, rule.MaxBonusAmount, rule.MinBonusRatio, rule.MaxBonusRatio,
		rule.TotalAllocationLimit, levelWeightsJSON, deptWeightsJSON, specialJSON,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建分配规则失败: %w", err)
	}

	return nil
}

// scanWeightConfig 扫描单行权重配置
func (r *ConfigRepository) scanWeightConfig(row *sql.Row) (*model.WeightConfig, error) {
	cfg := &model.WeightConfig{}
	var subJSON []byte

	err := row.Scan(
		&cfg.ID, &cfg.OrgID, &cfg.Name, &cfg.Version,
		&cfg.ProfitWeight, &cfg.PositionWeight, &cfg.PerformanceWeight, &subJSON,
		&cfg.CalculationMethod, &cfg.NormalizationMethod,
		&cfg.ExcellenceBonus, &cfg.PerformanceMultiplier, &cfg.PositionLevelMultiplier,
		&cfg.EffectiveFrom, &cfg.EffectiveTo, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描权重配置失败: %w", err)
	}

	json.Unmarshal(subJSON, &cfg.SubWeights)

	return cfg, nil
}

// scanRule 扫描单行分配规则
func (r *ConfigRepository) scanRule(row *sql.Row) (*model.AllocationRule, error) {
	rule := &model.AllocationRule{}
	var linesJSON, deptsJSON, levelsJSON, tiersJSON, levelWeightsJSON, deptWeightsJSON, specialJSON []byte

	err := row.Scan(
		&rule.ID, &rule.OrgID, &rule.Name, &rule.Version,
		&rule.AllocationMethod, &rule.ScoreDistributionMethod, &rule.ScoreDistributionExponent, &rule.FixedAmount,
		&rule.BaseAllocationRatio, &rule.PerformanceAllocationRatio,
		&rule.ReserveRatio, &rule.MinScoreThreshold,
		&linesJSON, &deptsJSON, &levelsJSON, &tiersJSON,
		&rule.MinBonusAmount, &rule.MaxBonusAmount, &rule.MinBonusRatio, &rule.MaxBonusRatio,
		&rule.TotalAllocationLimit, &levelWeightsJSON, &deptWeightsJSON, &specialJSON,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描分配规则失败: %w", err)
	}

	json.Unmarshal(linesJSON, &rule.BusinessLines)
	json.Unmarshal(deptsJSON, &rule.DepartmentIDs)
	json.Unmarshal(levelsJSON, &rule.PositionLevels)
	json.Unmarshal(tiersJSON, &rule.TierConfig)
	json.Unmarshal(levelWeightsJSON, &rule.LevelWeights)
	json.Unmarshal(deptWeightsJSON, &rule.DepartmentWeights)
	json.Unmarshal(specialJSON, &rule.SpecialRules)

	return rule, nil
}
