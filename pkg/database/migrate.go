package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable 迁移版本表，与共享库中其他服务的 schema_migrations 区分
const migrationsTable = "roadmap_schema_migrations"

// RunMigrations 执行数据库迁移
// 自动检测当前版本并应用所有未执行的迁移；dirty 状态直接报错，需人工修复
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db, logger)
	if err != nil {
		return err
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态（version=%d），请人工修复后重试", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	logger.Info("数据库迁移完成", zap.Uint("version", version))
	return nil
}

func newMigrator(db *sql.DB, logger *zap.Logger) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	m.Log = &migrateLogger{logger: logger.Named("migrate")}
	return m, nil
}

// migrateLogger 将 golang-migrate 日志接入 zap
type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
