// Package model 定义绩效奖金引擎的核心数据模型
package model

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 数值容差
const (
	// WeightTolerance 权重/比例求和的允许误差
	WeightTolerance = 0.01
	// AmountTolerance 金额校验的允许误差（元）
	AmountTolerance = 0.01
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// Period 考核周期，格式 YYYY-MM
type Period string

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Valid 检查周期格式
func (p Period) Valid() bool {
	return periodPattern.MatchString(string(p))
}

// String 实现 fmt.Stringer
func (p Period) String() string {
	return string(p)
}

// PositionLevel 岗位层级
type PositionLevel string

const (
	LevelSenior PositionLevel = "senior" // 高级
	LevelMiddle PositionLevel = "middle" // 中级
	LevelJunior PositionLevel = "junior" // 初级
)

// Round2 金额保留两位小数
// 使用 decimal 避免 float64 累计误差
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round 保留 n 位小数
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// SumAmounts 精确求和一组金额
func SumAmounts(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	f, _ := sum.Float64()
	return f
}

// NearlyEqual 检查两个数值在容差范围内相等
func NearlyEqual(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// FormatAmount 格式化金额（用于日志与违规信息）
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
