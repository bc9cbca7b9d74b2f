package alloc

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/model"
)

// 默认参数
const (
	DefaultDistributionExponent = 2.0   // 指数曲线默认幂
	DefaultFixedAmount          = 10000 // fixed_amount 默认单人金额
)

// hybrid 方法的固定混合权重
const (
	hybridScoreWeight = 0.5
	hybridTierWeight  = 0.3
	hybridPoolWeight  = 0.2
)

// Candidate 已通过资格筛选的分配对象
type Candidate struct {
	Employee         *model.Employee
	FinalScore       float64
	PerformanceScore float64
	Coefficients     model.Coefficients
}

// RawAllocation 策略输出的单人原始金额（基础/绩效拆分）
type RawAllocation struct {
	EmployeeID        uuid.UUID
	BaseAmount        float64
	PerformanceAmount float64
}

// Total 单人原始金额合计
func (r RawAllocation) Total() float64 {
	return model.SumAmounts(r.BaseAmount, r.PerformanceAmount)
}

// Input 分配策略输入
type Input struct {
	AvailableAmount float64 // pool.TotalAmount × (1 − rule.ReserveRatio)
	Rule            *model.AllocationRule
	Candidates      []*Candidate
}

// Strategy 分配策略
type Strategy interface {
	// Allocate 产出每人原始金额，输出顺序与 Candidates 一致
	Allocate(in Input) ([]RawAllocation, error)
	// Method 返回分配方法
	Method() model.AllocationMethod
}

// NewStrategy 按方法创建分配策略
func NewStrategy(method model.AllocationMethod) (Strategy, error) {
	switch method {
	case model.MethodScoreBased:
		return scoreBasedStrategy{}, nil
	case model.MethodTierBased:
		return tierBasedStrategy{}, nil
	case model.MethodPoolPercentage:
		return poolPercentageStrategy{}, nil
	case model.MethodFixedAmount:
		return fixedAmountStrategy{}, nil
	case model.MethodHybrid:
		return hybridStrategy{}, nil
	default:
		return nil, errors.UnsupportedMethod("分配方法", string(method))
	}
}

// Dispatch 校验输入并执行规则指定的分配策略
func Dispatch(in Input) ([]RawAllocation, error) {
	if in.AvailableAmount <= 0 {
		return nil, errors.ErrNoDistributable.WithField("available", in.AvailableAmount)
	}
	if len(in.Candidates) == 0 {
		return nil, errors.ErrEmptyEligibleSet
	}
	strategy, err := NewStrategy(in.Rule.AllocationMethod)
	if err != nil {
		return nil, err
	}
	return strategy.Allocate(in)
}

// ============================================================
// score_based：按分数比例分配，支持四种分配曲线
// ============================================================

type scoreBasedStrategy struct{}

func (scoreBasedStrategy) Method() model.AllocationMethod { return model.MethodScoreBased }

func (scoreBasedStrategy) Allocate(in Input) ([]RawAllocation, error) {
	ratios, err := scoreRatios(in.Rule, in.Candidates)
	if err != nil {
		return nil, err
	}

	out := make([]RawAllocation, len(in.Candidates))
	for i, c := range in.Candidates {
		base := in.AvailableAmount * in.Rule.BaseAllocationRatio * ratios[i] * c.Coefficients.Final
		perf := in.AvailableAmount * in.Rule.PerformanceAllocationRatio * ratios[i] * c.Coefficients.Final
		out[i] = RawAllocation{
			EmployeeID:        c.Employee.ID,
			BaseAmount:        model.Round2(floorZero(base)),
			PerformanceAmount: model.Round2(floorZero(perf)),
		}
	}
	return out, nil
}

// scoreRatios 按分配曲线计算每人的分数占比
func scoreRatios(rule *model.AllocationRule, candidates []*Candidate) ([]float64, error) {
	method := rule.ScoreDistributionMethod
	if method == "" {
		method = model.DistLinear
	}

	switch method {
	case model.DistLinear:
		return proportionalRatios(candidates, func(score float64) float64 { return score }), nil
	case model.DistExponential:
		k := rule.ScoreDistributionExponent
		if k <= 0 || math.IsNaN(k) {
			k = DefaultDistributionExponent
		}
		return proportionalRatios(candidates, func(score float64) float64 { return math.Pow(score, k) }), nil
	case model.DistLogarithmic:
		return proportionalRatios(candidates, func(score float64) float64 { return math.Log(score + 1) }), nil
	case model.DistStep:
		return stepRatios(candidates), nil
	default:
		return nil, errors.UnsupportedMethod("分数分配曲线", string(method))
	}
}

// proportionalRatios 按变换后分数占总和的比例计算占比
// 总和为0时退化为均分，避免除零中断资金计算
func proportionalRatios(candidates []*Candidate, transform func(float64) float64) []float64 {
	n := len(candidates)
	weights := make([]float64, n)
	sum := 0.0
	for i, c := range candidates {
		w := transform(c.FinalScore)
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		weights[i] = w
		sum += w
	}

	ratios := make([]float64, n)
	if sum <= 0 {
		for i := range ratios {
			ratios[i] = 1.0 / float64(n)
		}
		return ratios
	}
	for i, w := range weights {
		ratios[i] = w / sum
	}
	return ratios
}

// stepRatios 线性占比乘以百分位阶梯乘数
// 前10%→2.0，前30%→1.5，前60%→1.0，前80%→0.8，后20%→0.6
func stepRatios(candidates []*Candidate) []float64 {
	n := len(candidates)
	base := proportionalRatios(candidates, func(score float64) float64 { return score })

	// 按分数降序求每人的名次百分位
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].FinalScore > candidates[order[b]].FinalScore
	})

	ratios := make([]float64, n)
	for pos, idx := range order {
		percentile := float64(pos+1) / float64(n)
		ratios[idx] = base[idx] * stepMultiplier(percentile)
	}
	return ratios
}

// stepMultiplier 百分位阶梯乘数
func stepMultiplier(percentile float64) float64 {
	switch {
	case percentile <= 0.1:
		return 2.0
	case percentile <= 0.3:
		return 1.5
	case percentile <= 0.6:
		return 1.0
	case percentile <= 0.8:
		return 0.8
	default:
		return 0.6
	}
}

// ============================================================
// tier_based：按档位分配
// ============================================================

type tierBasedStrategy struct{}

func (tierBasedStrategy) Method() model.AllocationMethod { return model.MethodTierBased }

func (tierBasedStrategy) Allocate(in Input) ([]RawAllocation, error) {
	if len(in.Rule.TierConfig) == 0 {
		return nil, errors.New(errors.CodeInvalidTierConfig, "tier_based 分配缺少档位配置")
	}

	tiers := NormalizeTierRatios(in.Rule.TierConfig)

	// 按 MinScore 降序，员工归入满足的最高档位
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinScore > tiers[j].MinScore
	})

	members := make(map[string][]int)
	for i, c := range in.Candidates {
		name := assignTier(tiers, c.FinalScore)
		members[name] = append(members[name], i)
	}

	out := make([]RawAllocation, len(in.Candidates))
	for _, tier := range tiers {
		idxs := members[tier.Name]
		if len(idxs) == 0 {
			continue
		}
		perMember := in.AvailableAmount * tier.Ratio / float64(len(idxs))
		for _, i := range idxs {
			c := in.Candidates[i]
			base := perMember * in.Rule.BaseAllocationRatio * c.Coefficients.Final
			perf := perMember * in.Rule.PerformanceAllocationRatio * c.Coefficients.Final
			out[i] = RawAllocation{
				EmployeeID:        c.Employee.ID,
				BaseAmount:        model.Round2(floorZero(base)),
				PerformanceAmount: model.Round2(floorZero(perf)),
			}
		}
	}
	for i, c := range in.Candidates {
		if out[i].EmployeeID == uuid.Nil {
			out[i].EmployeeID = c.Employee.ID
		}
	}
	return out, nil
}

// assignTier 返回员工应归入的档位名
// 未达到任何档位的落入 MinScore 最低的档位
func assignTier(tiersDesc []model.Tier, score float64) string {
	for _, t := range tiersDesc {
		if score >= t.MinScore {
			return t.Name
		}
	}
	return tiersDesc[len(tiersDesc)-1].Name
}

// NormalizeTierRatios 归一化档位比例
// 比例之和在容差内为1时原样返回；否则按总和缩放每档比例
func NormalizeTierRatios(tiers []model.Tier) []model.Tier {
	sum := 0.0
	for _, t := range tiers {
		sum += t.Ratio
	}

	out := make([]model.Tier, len(tiers))
	copy(out, tiers)
	if sum <= 0 || model.NearlyEqual(sum, 1.0, model.WeightTolerance) {
		return out
	}
	for i := range out {
		out[i].Ratio = out[i].Ratio / sum
	}
	return out
}

// ============================================================
// pool_percentage：可分配金额均分
// ============================================================

type poolPercentageStrategy struct{}

func (poolPercentageStrategy) Method() model.AllocationMethod { return model.MethodPoolPercentage }

func (poolPercentageStrategy) Allocate(in Input) ([]RawAllocation, error) {
	perMember := in.AvailableAmount / float64(len(in.Candidates))

	out := make([]RawAllocation, len(in.Candidates))
	for i, c := range in.Candidates {
		base := perMember * in.Rule.BaseAllocationRatio * c.Coefficients.Final
		perf := perMember * in.Rule.PerformanceAllocationRatio * c.Coefficients.Final
		out[i] = RawAllocation{
			EmployeeID:        c.Employee.ID,
			BaseAmount:        model.Round2(floorZero(base)),
			PerformanceAmount: model.Round2(floorZero(perf)),
		}
	}
	return out, nil
}

// ============================================================
// fixed_amount：固定单人金额
// ============================================================

type fixedAmountStrategy struct{}

func (fixedAmountStrategy) Method() model.AllocationMethod { return model.MethodFixedAmount }

func (fixedAmountStrategy) Allocate(in Input) ([]RawAllocation, error) {
	amount := in.Rule.FixedAmount
	if amount <= 0 || math.IsNaN(amount) {
		amount = DefaultFixedAmount
	}

	out := make([]RawAllocation, len(in.Candidates))
	for i, c := range in.Candidates {
		base := amount * in.Rule.BaseAllocationRatio * c.Coefficients.Final
		perf := amount * in.Rule.PerformanceAllocationRatio * c.Coefficients.Final
		out[i] = RawAllocation{
			EmployeeID:        c.Employee.ID,
			BaseAmount:        model.Round2(floorZero(base)),
			PerformanceAmount: model.Round2(floorZero(perf)),
		}
	}
	return out, nil
}

// ============================================================
// hybrid：0.5×score_based + 0.3×tier_based + 0.2×pool_percentage
// ============================================================

type hybridStrategy struct{}

func (hybridStrategy) Method() model.AllocationMethod { return model.MethodHybrid }

func (hybridStrategy) Allocate(in Input) ([]RawAllocation, error) {
	scorePart, err := scoreBasedStrategy{}.Allocate(in)
	if err != nil {
		return nil, err
	}

	// 未配置档位时 tier 分量按0计
	var tierPart []RawAllocation
	if len(in.Rule.TierConfig) > 0 {
		tierPart, err = tierBasedStrategy{}.Allocate(in)
		if err != nil {
			return nil, err
		}
	}

	poolPart, err := poolPercentageStrategy{}.Allocate(in)
	if err != nil {
		return nil, err
	}

	out := make([]RawAllocation, len(in.Candidates))
	for i, c := range in.Candidates {
		total := hybridScoreWeight * scorePart[i].Total()
		if tierPart != nil {
			total += hybridTierWeight * tierPart[i].Total()
		}
		total += hybridPoolWeight * poolPart[i].Total()

		// 合计后按规则比例重新拆分基础/绩效
		out[i] = RawAllocation{
			EmployeeID:        c.Employee.ID,
			BaseAmount:        model.Round2(floorZero(total * in.Rule.BaseAllocationRatio)),
			PerformanceAmount: model.Round2(floorZero(total * in.Rule.PerformanceAllocationRatio)),
		}
	}
	return out, nil
}

// floorZero 金额下限为0
func floorZero(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
