// Package scoring 提供三维计分引擎：标准化、加权合成、调整与排名
package scoring

import (
	"gonum.org/v1/gonum/stat"

	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

// Normalizer 分数标准化器
// 四种实现均为 (value, population) 的纯函数，结果可重算、可审计
type Normalizer interface {
	// Normalize 将原始分数转换为群体相对值
	Normalize(value float64, population []float64) float64
	// Method 返回标准化方法
	Method() model.NormalizationMethod
}

// NewNormalizer 按方法创建标准化器
func NewNormalizer(method model.NormalizationMethod) (Normalizer, error) {
	switch method {
	case model.NormZScore:
		return zScoreNormalizer{}, nil
	case model.NormMinMax:
		return minMaxNormalizer{}, nil
	case model.NormRankBased:
		return rankBasedNormalizer{}, nil
	case model.NormPercentile:
		return percentileNormalizer{}, nil
	default:
		return nil, errors.UnsupportedMethod("标准化方法", string(method))
	}
}

// zScoreNormalizer Z分数标准化：(value − μ) / σ
type zScoreNormalizer struct{}

func (zScoreNormalizer) Method() model.NormalizationMethod { return model.NormZScore }

func (zScoreNormalizer) Normalize(value float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	mean := stat.Mean(population, nil)
	stdDev := stat.PopStdDev(population, nil)
	// 群体无差异时标准差为0，约定结果为0
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// minMaxNormalizer 极差标准化：(value − min) / (max − min)
type minMaxNormalizer struct{}

func (minMaxNormalizer) Method() model.NormalizationMethod { return model.NormMinMax }

func (minMaxNormalizer) Normalize(value float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	min, max := population[0], population[0]
	for _, v := range population[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	// 群体无差异时约定结果为0.5
	if max == min {
		return 0.5
	}
	return (value - min) / (max - min)
}

// rankBasedNormalizer 排名标准化：1 − (降序排名−1)/N，第1名接近1
type rankBasedNormalizer struct{}

func (rankBasedNormalizer) Method() model.NormalizationMethod { return model.NormRankBased }

func (rankBasedNormalizer) Normalize(value float64, population []float64) float64 {
	n := len(population)
	if n == 0 {
		return 0
	}
	// 降序排名 = 严格大于该值的数量 + 1，同分共享排名
	rank := 1
	for _, v := range population {
		if v > value {
			rank++
		}
	}
	return 1 - float64(rank-1)/float64(n)
}

// percentileNormalizer 百分位标准化：群体中 ≤ value 的占比
type percentileNormalizer struct{}

func (percentileNormalizer) Method() model.NormalizationMethod { return model.NormPercentile }

func (percentileNormalizer) Normalize(value float64, population []float64) float64 {
	n := len(population)
	if n == 0 {
		return 0
	}
	count := 0
	for _, v := range population {
		if v <= value {
			count++
		}
	}
	return float64(count) / float64(n)
}
