package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/model"
)

func TestRankResults(t *testing.T) {
	deptA := uuid.New()
	deptB := uuid.New()

	results := []*model.CalculationResult{
		{EmployeeID: uuid.New(), DepartmentID: deptA, PositionLevel: model.LevelSenior, FinalScore: 0.6},
		{EmployeeID: uuid.New(), DepartmentID: deptB, PositionLevel: model.LevelMiddle, FinalScore: 0.9},
		{EmployeeID: uuid.New(), DepartmentID: deptA, PositionLevel: model.LevelMiddle, FinalScore: 0.8},
	}

	RankResults(results)

	// 排序后 results 为 0.9, 0.8, 0.6
	if results[0].FinalScore != 0.9 || results[0].ScoreRank != 1 {
		t.Errorf("最高分排名 = %d, expected 1", results[0].ScoreRank)
	}
	if results[2].ScoreRank != 3 {
		t.Errorf("最低分排名 = %d, expected 3", results[2].ScoreRank)
	}

	// 百分位：第1名100，第3名100/3
	if !approxEqual(results[0].PercentileRank, 100, 1e-9) {
		t.Errorf("第1名百分位 = %v, expected 100", results[0].PercentileRank)
	}
	if !approxEqual(results[2].PercentileRank, 100.0/3, 1e-9) {
		t.Errorf("第3名百分位 = %v, expected %v", results[2].PercentileRank, 100.0/3)
	}

	// 部门A内：0.8 第1名，0.6 第2名
	for _, r := range results {
		if r.DepartmentID == deptA {
			switch r.FinalScore {
			case 0.8:
				if r.DepartmentRank != 1 {
					t.Errorf("部门排名 = %d, expected 1", r.DepartmentRank)
				}
			case 0.6:
				if r.DepartmentRank != 2 {
					t.Errorf("部门排名 = %d, expected 2", r.DepartmentRank)
				}
			}
		}
	}

	// 中级层级内：0.9 第1名，0.8 第2名
	for _, r := range results {
		if r.PositionLevel == model.LevelMiddle {
			switch r.FinalScore {
			case 0.9:
				if r.LevelRank != 1 {
					t.Errorf("层级排名 = %d, expected 1", r.LevelRank)
				}
			case 0.8:
				if r.LevelRank != 2 {
					t.Errorf("层级排名 = %d, expected 2", r.LevelRank)
				}
			}
		}
	}
}

func TestRankResults_TieBreakByEmployeeID(t *testing.T) {
	idSmall := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idLarge := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	// 故意倒序传入，同分时按员工ID升序保证跨运行确定性
	results := []*model.CalculationResult{
		{EmployeeID: idLarge, FinalScore: 0.8},
		{EmployeeID: idSmall, FinalScore: 0.8},
	}

	RankResults(results)

	if results[0].EmployeeID != idSmall || results[0].ScoreRank != 1 {
		t.Errorf("同分时ID较小者应排第1, got %s rank=%d", results[0].EmployeeID, results[0].ScoreRank)
	}
	if results[1].EmployeeID != idLarge || results[1].ScoreRank != 2 {
		t.Errorf("同分时ID较大者应排第2, got %s rank=%d", results[1].EmployeeID, results[1].ScoreRank)
	}
}

func TestRankResults_Empty(t *testing.T) {
	// 空集不应panic
	RankResults(nil)
	RankResults([]*model.CalculationResult{})
}
