// Package alloc 提供奖金池分配引擎：系数计算、分配策略与约束执行
package alloc

import (
	"math"

	"github.com/jixiao/jixiao/pkg/model"
)

// 系数相关阈值与边界
const (
	perfCoeffHighThreshold = 0.8 // 绩效分数高于该值系数取1.2
	perfCoeffLowThreshold  = 0.4 // 绩效分数低于该值系数取0.8
	perfCoeffHigh          = 1.2
	perfCoeffLow           = 0.8

	newEmployeeFactor      = 0.5
	excellentFactor        = 1.3
	keyPositionFactor      = 1.1
	excellentScoreMinimum  = 0.9
	specialCoeffFloor      = 0.1
	specialCoeffCeiling    = 5.0
	finalCoeffFloor        = 0.1
	neutralCoeff           = 1.0
)

// safeValue 数值安全解析
// NaN/Inf/非正数统一退化为中性默认值，返回是否发生了退化。
// 系数计算全程不抛错，单条脏数据不能中断整批资金计算。
func safeValue(v float64, fallback float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fallback, true
	}
	return v, false
}

// CoeffInput 系数计算输入
type CoeffInput struct {
	Employee         *model.Employee
	FinalScore       float64
	PerformanceScore float64 // 原始绩效维度分数
}

// CalculateCoefficients 计算五项独立乘法系数
// 每项在输入缺失/无效时退化为1.0；最终系数为五项乘积，下限0.1
func CalculateCoefficients(in CoeffInput, rule *model.AllocationRule) model.Coefficients {
	c := model.Coefficients{
		Base:        neutralCoeff, // 预留，恒为1
		Performance: performanceCoeff(in.PerformanceScore),
		Position:    lookupCoeff(rule.LevelWeights, string(in.Employee.PositionLevel)),
		Department:  lookupCoeff(rule.DepartmentWeights, in.Employee.DepartmentID.String()),
		Special:     specialCoeff(in, rule.SpecialRules),
	}

	final := c.Base * c.Performance * c.Position * c.Department * c.Special
	if math.IsNaN(final) || final < finalCoeffFloor {
		final = finalCoeffFloor
	}
	c.Final = final
	return c
}

// performanceCoeff 绩效系数：>0.8取1.2，<0.4取0.8，其余1.0
func performanceCoeff(score float64) float64 {
	if math.IsNaN(score) {
		return neutralCoeff
	}
	switch {
	case score > perfCoeffHighThreshold:
		return perfCoeffHigh
	case score < perfCoeffLowThreshold:
		return perfCoeffLow
	default:
		return neutralCoeff
	}
}

// lookupCoeff 从系数表查找，缺失或无效时退化为1.0
func lookupCoeff(weights map[string]float64, key string) float64 {
	v, ok := weights[key]
	if !ok {
		return neutralCoeff
	}
	coeff, _ := safeValue(v, neutralCoeff)
	return coeff
}

// specialCoeff 特殊规则系数，各开关独立叠乘后钳制到 [0.1, 5.0]
func specialCoeff(in CoeffInput, rules model.SpecialRules) float64 {
	coeff := neutralCoeff

	if rules.NewEmployeeReduction && in.Employee.IsNewEmployee() {
		coeff *= newEmployeeFactor
	}
	if rules.ExcellentEmployeeBonus && !math.IsNaN(in.FinalScore) && in.FinalScore > excellentScoreMinimum {
		coeff *= excellentFactor
	}
	if rules.KeyPositionBonus && in.Employee.PositionLevel == model.LevelSenior {
		coeff *= keyPositionFactor
	}

	if coeff < specialCoeffFloor {
		return specialCoeffFloor
	}
	if coeff > specialCoeffCeiling {
		return specialCoeffCeiling
	}
	return coeff
}
