package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jurisrank/jurisapi/internal/api"
	"github.com/jurisrank/jurisapi/internal/config"
	"github.com/jurisrank/jurisapi/internal/core"
	"github.com/jurisrank/jurisapi/internal/logger"
	"github.com/jurisrank/jurisapi/internal/stats"
	"github.com/jurisrank/jurisapi/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		return
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.Info("config loaded", "path", *configPath)

	// 初始化审计存储
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to init database", "error", err)
		return
	}
	defer db.Close()
	logger.Info("database initialized", "path", cfg.Database.Path)

	// 初始化统计接收器
	var sink stats.Sink
	switch cfg.Stats.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.Redis.Addr,
			Password: cfg.Stats.Redis.Password,
			DB:       cfg.Stats.Redis.DB,
		})
		defer rdb.Close()
		sink = stats.NewRedisSink(rdb, cfg.Stats.Redis.Prefix)
		logger.Info("stats sink: redis", "addr", cfg.Stats.Redis.Addr)
	default:
		sink = stats.NewMemorySink()
		logger.Info("stats sink: memory")
	}

	// 初始化准入控制引擎，启动后台驱逐
	rateLimiter := core.NewRateLimiter(&cfg.RateLimit)
	rateLimiter.StartReaper()
	defer rateLimiter.Stop()
	logger.Info("rate limiter initialized",
		"tiers", len(cfg.RateLimit.Tiers),
		"endpoint_overrides", len(cfg.RateLimit.Endpoints),
		"burst_smoothing", cfg.RateLimit.BurstSmoothing)

	// 定期清理过期审计日志
	retention := time.NewTicker(12 * time.Hour)
	defer retention.Stop()
	go func() {
		for range retention.C {
			if n, err := db.CleanOldLogs(cfg.Database.RetentionDays); err == nil && n > 0 {
				logger.Info("cleaned old decision logs", "count", n)
			}
		}
	}()

	// 设置路由
	r := api.SetupRouter(cfg, rateLimiter, sink, db)

	// 使用 http.Server 以支持 Graceful Shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 创建一个 context，监听 SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 在 goroutine 中启动 HTTP server
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("jurisapi starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// 等待信号或服务器错误
	select {
	case err := <-srvErr:
		if err != nil {
			logger.Error("failed to start server", "error", err)
			return
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
	}

	// 给在途请求 15 秒的时间完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}

	logger.Info("server stopped gracefully")
}
