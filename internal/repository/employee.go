package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jixiao/jixiao/pkg/model"
)

// EmployeeRepository 员工目录仓储
// 引擎对员工数据只读，员工的增删改由目录服务负责
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工目录仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, org_id, name, code, status, department_id, position_id,
	position_level, position_name, business_lines, hire_date, tenure_months,
	created_at, updated_at`

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM employees
		WHERE id = $1 AND deleted_at IS NULL
	`, employeeColumns)

	return r.scanEmployee(r.db.QueryRowContext(ctx, query, id))
}

// ListByIDs 根据ID列表获取员工
func (r *EmployeeRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM employees
		WHERE id IN (%s) AND deleted_at IS NULL
	`, employeeColumns, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, rows.Err()
}

// ListActive 获取组织下所有在职员工
func (r *EmployeeRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM employees
		WHERE org_id = $1 AND status = 'active' AND deleted_at IS NULL
		ORDER BY code
	`, employeeColumns)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询在职员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, rows.Err()
}

// GetDepartment 根据ID获取部门
func (r *EmployeeRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	query := `
		SELECT id, org_id, name, code, created_at, updated_at
		FROM departments
		WHERE id = $1 AND deleted_at IS NULL
	`

	dept := &model.Department{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&dept.ID, &dept.OrgID, &dept.Name, &dept.Code, &dept.CreatedAt, &dept.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询部门失败: %w", err)
	}

	return dept, nil
}

// GetPosition 根据ID获取岗位
func (r *EmployeeRepository) GetPosition(ctx context.Context, id uuid.UUID) (*model.Position, error) {
	query := `
		SELECT id, org_id, name, level, created_at, updated_at
		FROM positions
		WHERE id = $1 AND deleted_at IS NULL
	`

	pos := &model.Position{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pos.ID, &pos.OrgID, &pos.Name, &pos.Level, &pos.CreatedAt, &pos.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}

	return pos, nil
}

// scanEmployee 扫描一行员工数据，单行查询未命中时返回 nil
func (r *EmployeeRepository) scanEmployee(row Scanner) (*model.Employee, error) {
	emp := &model.Employee{}
	var linesJSON []byte

	err := row.Scan(
		&emp.ID, &emp.OrgID, &emp.Name, &emp.Code, &emp.Status, &emp.DepartmentID, &emp.PositionID,
		&emp.PositionLevel, &emp.PositionName, &linesJSON, &emp.HireDate, &emp.TenureMonths,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	json.Unmarshal(linesJSON, &emp.BusinessLines)

	return emp, nil
}
