// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// DB 数据库接口
// *sql.DB、*sql.Tx 与 database.DB 均满足该接口，
// 仓储方法通过它同时支持直连与事务内执行。
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口，统一 *sql.Row 与 *sql.Rows 的扫描逻辑
type Scanner interface {
	Scan(dest ...interface{}) error
}
