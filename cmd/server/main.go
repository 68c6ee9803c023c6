package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"snapmail/backend/internal/address"
	"snapmail/backend/internal/config"
	"snapmail/backend/internal/health"
	"snapmail/backend/internal/logger"
	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/pool"
	"snapmail/backend/internal/service"
	"snapmail/backend/internal/storage"
	"snapmail/backend/internal/storage/hybrid"
	"snapmail/backend/internal/storage/memory"
	"snapmail/backend/internal/storage/sql"
	httptransport "snapmail/backend/internal/transport/http"
)

// main 启动临时邮箱 HTTP 服务和过期回收循环。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting snapmail server",
		zap.String("domain", cfg.Mailbox.Domain),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 根据配置选择存储后端
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log)

	// 服务层
	generator := address.NewGenerator(cfg.Mailbox.Domain)
	mailboxService := service.NewMailboxService(store, generator, log)
	messageService := service.NewMessageService(store, store, cfg.Mailbox.ListLimit)
	deliveryService := service.NewDeliveryService(store, store, log)

	workers := pool.NewWorkerPool(cfg.Sweep.Workers, cfg.Sweep.BatchSize, log)
	reclaimService := service.NewReclaimService(store, cfg.Sweep.Interval, cfg.Sweep.BatchSize, workers, metrics, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		MailboxService:  mailboxService,
		MessageService:  messageService,
		DeliveryService: deliveryService,
		Store:           store,
		Metrics:         metrics,
		HealthChecker:   healthChecker,
		Logger:          log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	workers.Start(groupCtx)

	// HTTP 服务器
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 过期邮箱回收循环
	group.Go(func() error {
		reclaimService.Run(groupCtx)
		return nil
	})

	// 优雅关闭
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workers.Stop()
		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置组装存储后端。
//
// 配置了数据库与 Redis 时使用混合存储，单独配置数据库时使用
// SQL 存储，默认回落到内存存储（开发环境）。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch {
	case cfg.Database.Type != "" && cfg.Redis.Enabled:
		log.Info("using hybrid storage",
			zap.String("database_type", cfg.Database.Type),
			zap.String("redis_address", cfg.Redis.Address),
		)
		return hybrid.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
	case cfg.Database.Type == "mysql":
		log.Info("using mysql storage")
		return sql.NewMySQLStore(cfg.Database.DSN)
	case cfg.Database.Type != "":
		log.Info("using postgres storage")
		return sql.NewStore(cfg.Database.DSN)
	default:
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}
}
