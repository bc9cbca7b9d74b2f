// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// 批量计分会对全员工集发大IN查询，慢查询阈值按部署环境调整
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// EngineConfig 计算引擎配置
type EngineConfig struct {
	BatchSize      int           `yaml:"batch_size"`      // 批量计算每批人数
	MaxWorkers     int           `yaml:"max_workers"`     // 批次并发上限
	TaskTTL        time.Duration `yaml:"task_ttl"`        // 异步任务结果保留时长
	JanitorPeriod  time.Duration `yaml:"janitor_period"`  // 过期任务清理周期
	DefaultTimeout time.Duration `yaml:"default_timeout"` // 单次计算超时
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "jixiao"),
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "jixiao"),
			User:               getEnv("DB_USER", "jixiao"),
			Password:           getEnv("DB_PASSWORD", "jixiao123"),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		},
		Engine: EngineConfig{
			BatchSize:      getEnvInt("ENGINE_BATCH_SIZE", 10),
			MaxWorkers:     getEnvInt("ENGINE_MAX_WORKERS", 4),
			TaskTTL:        getEnvDuration("ENGINE_TASK_TTL", 30*time.Minute),
			JanitorPeriod:  getEnvDuration("ENGINE_JANITOR_PERIOD", 5*time.Minute),
			DefaultTimeout: getEnvDuration("ENGINE_TIMEOUT", 60*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Engine.BatchSize <= 0 {
		cfg.Engine.BatchSize = 10
	}
	if cfg.Engine.MaxWorkers <= 0 {
		cfg.Engine.MaxWorkers = 1
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
