package alloc

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/model"
)

func testEmployee(level model.PositionLevel, tenureMonths int) *model.Employee {
	e := &model.Employee{
		BaseModel:     model.NewBaseModel(),
		Name:          "测试员工",
		Status:        "active",
		DepartmentID:  uuid.New(),
		PositionLevel: level,
		TenureMonths:  tenureMonths,
	}
	return e
}

func TestCalculateCoefficients_AllNeutral(t *testing.T) {
	in := CoeffInput{
		Employee:         testEmployee(model.LevelMiddle, 36),
		FinalScore:       0.6,
		PerformanceScore: 0.6,
	}
	c := CalculateCoefficients(in, &model.AllocationRule{})

	if c.Final != 1.0 {
		t.Errorf("全中性输入 Final = %v, expected 1.0", c.Final)
	}
}

func TestPerformanceCoeff(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"高绩效", 0.85, 1.2},
		{"低绩效", 0.3, 0.8},
		{"中等绩效", 0.6, 1.0},
		{"边界0.8不触发", 0.8, 1.0},
		{"边界0.4不触发", 0.4, 1.0},
		{"NaN退化为1.0", math.NaN(), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := CoeffInput{
				Employee:         testEmployee(model.LevelMiddle, 36),
				FinalScore:       0.6,
				PerformanceScore: tt.score,
			}
			c := CalculateCoefficients(in, &model.AllocationRule{})
			if c.Performance != tt.expected {
				t.Errorf("Performance = %v, expected %v", c.Performance, tt.expected)
			}
		})
	}
}

func TestPositionAndDepartmentCoeff(t *testing.T) {
	emp := testEmployee(model.LevelSenior, 36)
	rule := &model.AllocationRule{
		LevelWeights: map[string]float64{
			"senior": 1.2,
			"junior": math.NaN(), // 无效值退化为1.0
		},
		DepartmentWeights: map[string]float64{
			emp.DepartmentID.String(): 1.1,
		},
	}

	c := CalculateCoefficients(CoeffInput{Employee: emp, FinalScore: 0.6, PerformanceScore: 0.6}, rule)
	if c.Position != 1.2 {
		t.Errorf("Position = %v, expected 1.2", c.Position)
	}
	if c.Department != 1.1 {
		t.Errorf("Department = %v, expected 1.1", c.Department)
	}

	// 查表缺失退化为1.0
	other := testEmployee(model.LevelMiddle, 36)
	c = CalculateCoefficients(CoeffInput{Employee: other, FinalScore: 0.6, PerformanceScore: 0.6}, rule)
	if c.Position != 1.0 || c.Department != 1.0 {
		t.Errorf("缺失查表应退化为1.0, got position=%v department=%v", c.Position, c.Department)
	}

	// NaN权重退化为1.0
	junior := testEmployee(model.LevelJunior, 36)
	c = CalculateCoefficients(CoeffInput{Employee: junior, FinalScore: 0.6, PerformanceScore: 0.6}, rule)
	if c.Position != 1.0 {
		t.Errorf("NaN层级权重应退化为1.0, got %v", c.Position)
	}
}

func TestSpecialCoeff(t *testing.T) {
	allRules := model.SpecialRules{
		NewEmployeeReduction:   true,
		ExcellentEmployeeBonus: true,
		KeyPositionBonus:       true,
	}

	tests := []struct {
		name     string
		employee *model.Employee
		score    float64
		expected float64
	}{
		{"新员工减半", testEmployee(model.LevelMiddle, 6), 0.6, 0.5},
		{"优秀员工加成", testEmployee(model.LevelMiddle, 36), 0.95, 1.3},
		{"关键岗位加成", testEmployee(model.LevelSenior, 36), 0.6, 1.1},
		{"叠加：新员工+优秀+关键岗位", testEmployee(model.LevelSenior, 6), 0.95, 0.5 * 1.3 * 1.1},
		{"无触发", testEmployee(model.LevelMiddle, 36), 0.6, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := CoeffInput{Employee: tt.employee, FinalScore: tt.score, PerformanceScore: 0.6}
			c := CalculateCoefficients(in, &model.AllocationRule{SpecialRules: allRules})
			if math.Abs(c.Special-tt.expected) > 1e-9 {
				t.Errorf("Special = %v, expected %v", c.Special, tt.expected)
			}
		})
	}
}

func TestFinalCoeff_Floor(t *testing.T) {
	emp := testEmployee(model.LevelSenior, 36)
	rule := &model.AllocationRule{
		LevelWeights: map[string]float64{"senior": 0.05},
	}

	// 1.0 × 0.8 × 0.05 × 1.0 × 1.0 = 0.04，低于下限0.1
	c := CalculateCoefficients(CoeffInput{Employee: emp, FinalScore: 0.3, PerformanceScore: 0.3}, rule)
	if c.Final != 0.1 {
		t.Errorf("Final = %v, expected 下限0.1", c.Final)
	}
}

func TestFinalCoeff_NeverNaN(t *testing.T) {
	emp := testEmployee(model.LevelSenior, 6)
	rule := &model.AllocationRule{
		LevelWeights:      map[string]float64{"senior": math.NaN()},
		DepartmentWeights: map[string]float64{emp.DepartmentID.String(): math.Inf(1)},
		SpecialRules:      model.SpecialRules{ExcellentEmployeeBonus: true},
	}

	c := CalculateCoefficients(CoeffInput{Employee: emp, FinalScore: math.NaN(), PerformanceScore: math.NaN()}, rule)
	if math.IsNaN(c.Final) {
		t.Fatal("Final 不应为NaN")
	}
	if c.Final < 0.1 {
		t.Errorf("Final = %v, 不应低于0.1", c.Final)
	}
}
