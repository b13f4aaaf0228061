package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"autodca/internal/bridge"
	"autodca/internal/config"
	cronrunner "autodca/internal/cron"
	"autodca/internal/db"
	"autodca/internal/events"
	"autodca/internal/handler"
	"autodca/internal/ledger"
	"autodca/internal/logger"
	gormrepository "autodca/internal/repository/gorm"
	"autodca/internal/scheduler"
	"autodca/internal/service"
	"autodca/internal/swap"

	_ "autodca/docs"
)

func main() {
	cfgPath := os.Getenv("ADCA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ADCA_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	hub := events.NewHub(logger)

	bridgeAccount, ledgerMem, err := buildExecutionStack(cfg, logger)
	if err != nil {
		logger.Fatal("execution stack init failed", zap.Error(err))
	}
	swapSvc := &swap.Service{
		Assets: cfg.Assets,
		Vault:  ledgerMem,
		Router: ledgerMem,
		Bridge: bridgeAccount,
		Logger: logger,
		Config: swap.Config{
			Timeout:    cfg.Swap.Timeout,
			FeeTierBps: cfg.Swap.FeeTierBps,
		},
	}
	planSvc := &service.PlanService{
		Repo:   store,
		Assets: cfg.Assets,
		Events: hub,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	planHandler := &handler.PlanHandler{Plans: planSvc}
	planHandler.Register(engine)
	ctrlHandler := &handler.ControllerHandler{Plans: planSvc}
	ctrlHandler.Register(engine)
	bridgeHandler := &handler.BridgeHandler{Bridge: bridgeAccount, Assets: cfg.Assets}
	bridgeHandler.Register(engine)
	eventHandler := &handler.EventHandler{Repo: store, Hub: hub, Logger: logger}
	eventHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		sched := &scheduler.Service{
			Repo:   store,
			Exec:   swapSvc,
			Events: hub,
			Logger: logger,
			Config: cfg.Scheduler,
		}
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped", zap.Error(err))
			}
		}()
	}

	cronRunner := cronrunner.New(logger, ctx)
	gasMonitor := &service.GasMonitor{
		Bridge: bridgeAccount,
		Repo:   store,
		Events: hub,
		Logger: logger,
	}
	_, err = cronRunner.Add(cfg.Cron.GasMonitor, func(ctx context.Context) {
		if err := gasMonitor.CheckOnce(ctx); err != nil {
			logger.Warn("gas monitor check failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("cron register gas monitor failed", zap.Error(err))
	}
	retention := cfg.Events.RetentionDays
	if retention > 0 {
		_, err = cronRunner.Add(cfg.Cron.EventRetention, func(ctx context.Context) {
			cutoff := time.Now().UTC().AddDate(0, 0, -retention)
			n, err := store.DeleteEventsBefore(ctx, cutoff)
			if err != nil {
				logger.Warn("event retention sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("deleted expired events", zap.Int64("count", n))
			}
		})
		if err != nil {
			logger.Warn("cron register event retention failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.Server.HTTPAddr),
			zap.String("swap_mode", cfg.Swap.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildExecutionStack wires the swap backends for the configured mode.
// Dry-run uses permissive in-memory backends that fabricate liquidity, so the
// full pipeline runs without touching a chain or a vault. The native ledger
// stays in-memory in both modes; the vault environment is reached through it
// as an opaque interface.
func buildExecutionStack(cfg config.Config, logger *zap.Logger) (*bridge.Account, *ledger.Memory, error) {
	mem := ledger.NewMemory()

	var backend bridge.Backend
	var account common.Address
	switch strings.ToLower(strings.TrimSpace(cfg.Swap.Mode)) {
	case "", "dry-run":
		mem.Permissive = true
		account = common.HexToAddress(cfg.Bridge.AccountAddress)
		memBackend := bridge.NewMemoryBackend(account)
		memBackend.Permissive = true
		backend = memBackend
	case "live":
		evm, err := bridge.NewEVMBackend(cfg.Bridge, cfg.Assets)
		if err != nil {
			return nil, nil, err
		}
		addr, err := bridge.ParseAddress(cfg.Bridge.AccountAddress)
		if err != nil {
			return nil, nil, err
		}
		backend = evm
		account = addr
	default:
		return nil, nil, errors.New("unknown swap mode: " + cfg.Swap.Mode)
	}

	bridgeAccount := &bridge.Account{
		Backend:       backend,
		Address:       account,
		MinGasBalance: decimal.NewFromFloat(cfg.Bridge.MinGasBalance),
		Logger:        logger,
	}
	return bridgeAccount, mem, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
