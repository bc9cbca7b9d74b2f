package scoring

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/model"
)

// RankResults 对一个 (周期, 权重配置) 的完整结果集计算排名字段
// 全局排名/百分位按最终分数降序，同分按员工ID升序保证跨运行稳定；
// 部门排名与层级排名分别在各自分组内重新计算。
// 排名只有在完整闭合的群体上才有意义，部分重算需要整体重排。
func RankResults(results []*model.CalculationResult) {
	n := len(results)
	if n == 0 {
		return
	}

	sortByScore(results)

	for i, r := range results {
		r.ScoreRank = i + 1
		r.PercentileRank = float64(n-i) / float64(n) * 100
	}

	byDepartment := make(map[uuid.UUID][]*model.CalculationResult)
	for _, r := range results {
		byDepartment[r.DepartmentID] = append(byDepartment[r.DepartmentID], r)
	}
	for _, group := range byDepartment {
		sortByScore(group)
		for i, r := range group {
			r.DepartmentRank = i + 1
		}
	}

	byLevel := make(map[model.PositionLevel][]*model.CalculationResult)
	for _, r := range results {
		byLevel[r.PositionLevel] = append(byLevel[r.PositionLevel], r)
	}
	for _, group := range byLevel {
		sortByScore(group)
		for i, r := range group {
			r.LevelRank = i + 1
		}
	}
}

// sortByScore 按最终分数降序排序，同分按员工ID升序
func sortByScore(results []*model.CalculationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].EmployeeID.String() < results[j].EmployeeID.String()
	})
}
