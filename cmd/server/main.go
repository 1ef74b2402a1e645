package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"edu-records/config"
	"edu-records/internal/api/handler"
	"edu-records/internal/api/middleware"
	"edu-records/internal/api/router"
	"edu-records/internal/repository"
	"edu-records/internal/roadmap"
	"edu-records/internal/service"
	"edu-records/pkg/database"
	"edu-records/pkg/jwt"
	applogger "edu-records/pkg/logger"
	"edu-records/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Float64("passing_threshold", cfg.Roadmap.PassingThreshold),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，可选课程缓存、Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 接口变量只在 Redis 可用时赋值，避免 nil 指针被包装成非 nil 接口
	var (
		cache     service.RoadmapCache
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		cache, blacklist, limiter = rdb, rdb, rdb
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	catalog := roadmap.NewCatalog()
	svc := service.NewService(cfg, repo, catalog, cache, logger)

	// 5.1 构建培养方案依赖图：任一方案不合法即中止启动
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Curriculum.LoadCatalog(bootCtx); err != nil {
		bootCancel()
		logger.Fatal("加载培养方案失败", zap.Error(err))
	}
	if cfg.Roadmap.CurriculumFile != "" {
		imported, err := svc.Curriculum.ImportFile(bootCtx, cfg.Roadmap.CurriculumFile, "")
		if err != nil {
			bootCancel()
			logger.Fatal("导入培养方案文件失败",
				zap.String("file", cfg.Roadmap.CurriculumFile),
				zap.Error(err),
			)
		}
		logger.Info("培养方案文件已导入",
			zap.String("file", cfg.Roadmap.CurriculumFile),
			zap.Int("count", len(imported)),
		)
	}
	bootCancel()
	logger.Info("培养方案依赖图已就绪", zap.Int("curricula", catalog.Len()))

	h := handler.NewHandler(svc)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:       jwt.NewManager(&cfg.Auth),
		Blacklist: blacklist,
		Limiter:   limiter,
		Logger:    logger,
	})

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 批量毕业审核与导出耗时较长
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
