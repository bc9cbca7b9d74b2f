// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 配置错误：整次计算/分配立即失败，不产生部分结果
	CodeUnsupportedMethod   Code = "UNSUPPORTED_METHOD"
	CodeInvalidWeightConfig Code = "INVALID_WEIGHT_CONFIG"
	CodeInvalidRuleConfig   Code = "INVALID_RULE_CONFIG"
	CodeInvalidTierConfig   Code = "INVALID_TIER_CONFIG"

	// 数据错误：批量计分中按员工隔离，单员工调用中为致命错误
	CodeEmployeeNotFound Code = "EMPLOYEE_NOT_FOUND"
	CodeScoreNotFound    Code = "SCORE_NOT_FOUND"
	CodeEmptyPopulation  Code = "EMPTY_POPULATION"

	// 预算错误：分配调用整体失败，不落库
	CodeEmptyEligibleSet      Code = "EMPTY_ELIGIBLE_SET"
	CodeNoDistributableAmount Code = "NO_DISTRIBUTABLE_AMOUNT"
	CodePoolAlreadyAllocated  Code = "POOL_ALREADY_ALLOCATED"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
	CodeTaskNotFound   Code = "TASK_NOT_FOUND"
)

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// clone 复制错误供 With* 方法修改
// 预定义的哨兵错误是包级共享变量，必须在副本上追加信息，
// 否则已返回的错误会被后续调用改写，并发下还会竞争 Fields
func (e *AppError) clone() *AppError {
	c := *e
	if e.Fields != nil {
		c.Fields = make(map[string]interface{}, len(e.Fields))
		for k, v := range e.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// WithDetails 添加详细信息，返回副本
func (e *AppError) WithDetails(details string) *AppError {
	c := e.clone()
	c.Details = details
	return c
}

// WithCause 添加原因，返回副本
func (e *AppError) WithCause(cause error) *AppError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithField 添加字段，返回副本
func (e *AppError) WithField(key string, value interface{}) *AppError {
	c := e.clone()
	if c.Fields == nil {
		c.Fields = make(map[string]interface{})
	}
	c.Fields[key] = value
	return c
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is 检查错误是否为特定错误码
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsConfigError 检查是否为配置错误（导致整次调用失败）
func IsConfigError(err error) bool {
	switch GetCode(err) {
	case CodeUnsupportedMethod, CodeInvalidWeightConfig, CodeInvalidRuleConfig, CodeInvalidTierConfig:
		return true
	}
	return false
}

// IsDataError 检查是否为数据错误（批量计分中按员工隔离）
func IsDataError(err error) bool {
	switch GetCode(err) {
	case CodeEmployeeNotFound, CodeScoreNotFound, CodeEmptyPopulation:
		return true
	}
	return false
}

// 预定义错误
var (
	ErrNotFound             = New(CodeNotFound, "资源不存在")
	ErrInvalidInput         = New(CodeInvalidInput, "输入参数无效")
	ErrInternal             = New(CodeInternal, "内部错误")
	ErrEmptyEligibleSet     = New(CodeEmptyEligibleSet, "无符合条件的分配对象")
	ErrNoDistributable      = New(CodeNoDistributableAmount, "可分配金额不足")
	ErrPoolAlreadyAllocated = New(CodePoolAlreadyAllocated, "奖金池已完成分配")
)

// UnsupportedMethod 创建不支持的方法错误
func UnsupportedMethod(kind, method string) *AppError {
	return New(CodeUnsupportedMethod, fmt.Sprintf("不支持的%s: %s", kind, method))
}

// NotFoundf 创建资源不存在错误
func NotFoundf(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// EmployeeNotFound 创建员工不存在错误
func EmployeeNotFound(empID string) *AppError {
	return New(CodeEmployeeNotFound, fmt.Sprintf("员工 %s 不存在", empID))
}

// ScoreNotFound 创建原始分数缺失错误
func ScoreNotFound(empID, dimension, period string) *AppError {
	return New(CodeScoreNotFound, fmt.Sprintf("员工 %s 在周期 %s 缺少 %s 维度分数", empID, period, dimension))
}

// InvalidWeightConfig 创建权重配置无效错误
func InvalidWeightConfig(reason string) *AppError {
	return New(CodeInvalidWeightConfig, fmt.Sprintf("权重配置无效: %s", reason))
}

// InvalidRuleConfig 创建分配规则无效错误
func InvalidRuleConfig(reason string) *AppError {
	return New(CodeInvalidRuleConfig, fmt.Sprintf("分配规则无效: %s", reason))
}
