// Package model 定义绩效奖金引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Employee 员工（目录服务视图）
// 引擎只读取目录服务提供的字段，不负责员工数据的维护
type Employee struct {
	BaseModel
	OrgID        uuid.UUID `json:"org_id" db:"org_id"`
	Name         string    `json:"name" db:"name"`
	Code         string    `json:"code" db:"code"`
	Status       string    `json:"status" db:"status"` // active/inactive/leave
	DepartmentID uuid.UUID `json:"department_id" db:"department_id"`
	PositionID   uuid.UUID `json:"position_id" db:"position_id"`

	// 计分/分配相关
	PositionLevel PositionLevel `json:"position_level" db:"position_level"`
	PositionName  string        `json:"position_name" db:"position_name"`
	BusinessLines []string      `json:"business_lines,omitempty" db:"business_lines"`
	HireDate      string        `json:"hire_date" db:"hire_date"` // YYYY-MM-DD
	TenureMonths  int           `json:"tenure_months" db:"tenure_months"`
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Status == "active"
}

// IsNewEmployee 检查是否为新员工（入职不满12个月）
func (e *Employee) IsNewEmployee() bool {
	return e.TenureMonths < 12
}

// InBusinessLine 检查员工是否属于某业务线
func (e *Employee) InBusinessLine(line string) bool {
	for _, l := range e.BusinessLines {
		if l == line {
			return true
		}
	}
	return false
}

// Department 部门
type Department struct {
	BaseModel
	OrgID uuid.UUID `json:"org_id" db:"org_id"`
	Name  string    `json:"name" db:"name"`
	Code  string    `json:"code" db:"code"`
}

// Position 岗位
type Position struct {
	BaseModel
	OrgID uuid.UUID     `json:"org_id" db:"org_id"`
	Name  string        `json:"name" db:"name"`
	Level PositionLevel `json:"level" db:"level"`
}

// EmployeeSnapshot 员工快照
// 分配结果创建时固化，员工后续调岗/改名不影响历史结果
type EmployeeSnapshot struct {
	Name           string `json:"name"`
	DepartmentName string `json:"department_name"`
	PositionName   string `json:"position_name"`
}
