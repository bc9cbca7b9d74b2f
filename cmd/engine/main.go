// JiXiao 绩效奖金引擎
// 主程序入口

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/config"
	"github.com/jixiao/jixiao/internal/database"
	"github.com/jixiao/jixiao/internal/engine"
	"github.com/jixiao/jixiao/internal/metrics"
	"github.com/jixiao/jixiao/internal/repository"
	"github.com/jixiao/jixiao/pkg/logger"
	"github.com/jixiao/jixiao/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		job            = flag.String("job", "", "任务类型: score | allocate | validate")
		orgID          = flag.String("org", "", "组织ID")
		period         = flag.String("period", "", "考核周期 (YYYY-MM)")
		weightConfigID = flag.String("weight-config", "", "权重配置ID")
		poolID         = flag.String("pool", "", "奖金池ID")
		ruleID         = flag.String("rule", "", "分配规则ID")
		simulate       = flag.Bool("simulate", false, "试算模式，不落库")
		showVersion    = flag.Bool("version", false, "打印版本信息")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("JiXiao 绩效奖金引擎 v%s\n", Version)
		fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	logger.Info().
		Str("version", Version).
		Str("env", cfg.App.Env).
		Msg("绩效奖金引擎启动")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("数据库连接失败")
	}
	defer db.Close()

	eng := engine.New(
		repository.NewEmployeeRepository(db),
		repository.NewScoreRepository(db),
		repository.NewConfigRepository(db),
		repository.NewResultStore(db),
		cfg.Engine,
	)
	defer eng.Close()

	ctx := context.Background()

	var runErr error
	switch *job {
	case "score":
		runErr = runScore(ctx, eng, db, *orgID, *period, *weightConfigID)
	case "allocate":
		runErr = runAllocate(ctx, eng, *poolID, *ruleID, *period, *weightConfigID, *simulate)
	case "validate":
		runErr = runValidate(ctx, eng, *poolID, *ruleID)
	default:
		fmt.Fprintln(os.Stderr, "用法: engine -job score|allocate|validate [参数]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if cfg.Metrics.Enabled {
		db.ReportStats()
		metrics.WriteTo(os.Stdout)
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("job", *job).Msg("任务执行失败")
		os.Exit(1)
	}
}

// runScore 对组织全部在职员工执行一次批量计分
func runScore(ctx context.Context, eng *engine.Engine, db *database.DB, orgID, period, weightConfigID string) error {
	org, err := uuid.Parse(orgID)
	if err != nil {
		return fmt.Errorf("组织ID无效: %w", err)
	}
	wcID, err := uuid.Parse(weightConfigID)
	if err != nil {
		return fmt.Errorf("权重配置ID无效: %w", err)
	}

	employees, err := repository.NewEmployeeRepository(db).ListActive(ctx, org)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(employees))
	for i, emp := range employees {
		ids[i] = emp.ID
	}

	outcome, err := eng.BatchScoreEmployees(ctx, ids, model.Period(period), wcID)
	if err != nil {
		return err
	}

	fmt.Printf("计分完成: 成功 %d 人, 失败 %d 人\n", len(outcome.Results), len(outcome.Failures))
	for _, f := range outcome.Failures {
		fmt.Printf("  失败 %s: %s\n", f.EmployeeID, f.Reason)
	}
	return nil
}

// runAllocate 执行一次奖金池分配
func runAllocate(ctx context.Context, eng *engine.Engine, poolID, ruleID, period, weightConfigID string, simulate bool) error {
	pID, err := uuid.Parse(poolID)
	if err != nil {
		return fmt.Errorf("奖金池ID无效: %w", err)
	}
	rID, err := uuid.Parse(ruleID)
	if err != nil {
		return fmt.Errorf("分配规则ID无效: %w", err)
	}
	wcID, err := uuid.Parse(weightConfigID)
	if err != nil {
		return fmt.Errorf("权重配置ID无效: %w", err)
	}

	outcome, err := eng.AllocatePool(ctx, engine.AllocateRequest{
		PoolID:         pID,
		RuleID:         rID,
		Period:         model.Period(period),
		WeightConfigID: wcID,
		Simulate:       simulate,
	})
	if err != nil {
		return err
	}

	mode := "分配"
	if outcome.Simulated {
		mode = "试算"
	}
	fmt.Printf("%s完成: 批次 %s, %d 人, 合计 %s\n",
		mode, outcome.RunID, outcome.EligibleCount, model.FormatAmount(outcome.TotalAmount))
	if outcome.Summary.Capped {
		fmt.Printf("  触发总额上限: 上限 %s, 缩放因子 %.4f\n",
			model.FormatAmount(outcome.Summary.BudgetCap), outcome.Summary.CapFactor)
	}
	return nil
}

// runValidate 校验奖金池与分配规则配置
func runValidate(ctx context.Context, eng *engine.Engine, poolID, ruleID string) error {
	var allViolations []string

	if poolID != "" {
		id, err := uuid.Parse(poolID)
		if err != nil {
			return fmt.Errorf("奖金池ID无效: %w", err)
		}
		violations, err := eng.ValidatePoolConfig(ctx, id)
		if err != nil {
			return err
		}
		for _, v := range violations {
			allViolations = append(allViolations, "奖金池: "+v)
		}
	}

	if ruleID != "" {
		id, err := uuid.Parse(ruleID)
		if err != nil {
			return fmt.Errorf("分配规则ID无效: %w", err)
		}
		violations, err := eng.ValidateRuleConfig(ctx, id)
		if err != nil {
			return err
		}
		for _, v := range violations {
			allViolations = append(allViolations, "规则: "+v)
		}
	}

	if len(allViolations) > 0 {
		fmt.Printf("发现 %d 项配置问题:\n  %s\n", len(allViolations), strings.Join(allViolations, "\n  "))
		return fmt.Errorf("配置校验未通过")
	}

	fmt.Println("配置校验通过")
	return nil
}
