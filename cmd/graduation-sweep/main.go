// graduation-sweep 运维命令行：批量毕业审核、单个学生审核、导入培养方案文件
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"edu-records/config"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
	"edu-records/internal/service"
	"edu-records/pkg/database"
	applogger "edu-records/pkg/logger"
	"edu-records/pkg/redis"
)

func main() {
	cfg, err := config.Load(os.Getenv("EDU_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis 可用时与服务端共用可选课程缓存，写入毕业标记后清除对应学生的缓存
	var cache service.RoadmapCache
	if rdb, err := redis.NewClient(&cfg.Redis, logger); err != nil {
		logger.Warn("Redis 连接失败，服务端可选课程缓存将按 TTL 过期", zap.Error(err))
	} else {
		defer rdb.Close()
		cache = rdb
	}

	svc := service.NewService(cfg, repository.NewRepository(db), roadmap.NewCatalog(), cache, logger)
	if err := svc.Curriculum.LoadCatalog(ctx); err != nil {
		logger.Fatal("加载培养方案失败", zap.Error(err))
	}

	cli := commandLine{
		curricula:  svc.Curriculum,
		graduation: svc.Graduation,
		out:        os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
