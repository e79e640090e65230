package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"PaperSieve/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB 打开（或新建）数据库并执行迁移。
// 文件不存在时视为全新状态；文件存在但无法读取或完整性检查失败时返回 models.ErrDedupStoreCorrupted。
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("无法创建目录，请检查权限问题: %w", err)
	}

	existed := true
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		existed = false
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("无法打开数据库，请检查权限问题: %w", err)
	}
	// 写入都在单一的汇合点完成，一个连接足够
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		if existed {
			return nil, fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
		}
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	sqlDB := &SQLiteDB{db: db}

	if existed {
		if err := sqlDB.CheckIntegrity(context.Background()); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	if _, err := sqlDB.runMigrations(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库创建失败: %w", err)
	}

	return sqlDB, nil
}

func (d *SQLiteDB) Close() error { return d.db.Close() }

// CheckIntegrity PRAGMA quick_check，结果不是 ok 即视为损坏
func (d *SQLiteDB) CheckIntegrity(ctx context.Context) error {
	rows, err := d.db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrDedupStoreCorrupted, err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: quick_check: %v", models.ErrDedupStoreCorrupted, problems)
	}
	return nil
}
