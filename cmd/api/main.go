package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // PRICING_TIMEZONE must resolve in minimal images

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/audit"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/auth"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/config"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/httpapi"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/pricing"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/reporting"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/pkg/logger"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		slog.Error("logger init failed", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(rootCtx, stop, cfg, log); err != nil {
		log.Error("api failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, log *slog.Logger) error {
	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}
	if cfg.Admin.PasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH not set; admin token issuance disabled")
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("pricing timezone: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pricing.NewMetrics(reg)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.Pricing.RatesFile != "" {
		catalog, err := pricing.LoadCatalogFile(cfg.Pricing.RatesFile)
		if err != nil {
			return err
		}
		st.rates = catalog
	} else if cfg.Store.Backend != config.BackendPostgres {
		log.Warn("PRICING_RATES_FILE not set; all rooms quote the default nightly rate")
	}

	svc := pricing.NewService(st.rates, st.overrides, st.boundary, pricing.Options{
		Location:       loc,
		DefaultNightly: cfg.Pricing.DefaultNightly,
		Locker:         st.locker,
		Audit:          pricing.AuditAdapter{Audit: audit.NewService(st.audit)},
		Metrics:        metrics,
	})

	if cfg.Pricing.RevertInterval > 0 {
		go svc.Scheduler().Run(ctx, cfg.Pricing.RevertInterval)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:    authManager,
		Admin:   cfg.Admin,
		Pricing: svc,
		Reports: reporting.NewService(st.audit),
		Ready:   st.ready,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"store", cfg.Store.Backend,
			"timezone", loc.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	return nil
}

// stores is the backend-specific wiring behind the pricing service.
type stores struct {
	overrides pricing.OverrideStore
	boundary  pricing.BoundaryStore
	rates     pricing.RateSource
	locker    pricing.Locker
	audit     auditLog

	ready   func(ctx context.Context) error
	closers []func() error
}

// auditLog is written by the pricing service and read by reports.
type auditLog interface {
	audit.Repository
	reporting.Repository
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := utils.OpenPostgres(ctx, utils.PostgresConfig{DSN: cfg.PostgresDSN()})
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		if err := pricing.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pricing migrate: %w", err)
		}
		auditRepo := audit.NewPostgresRepo(db)
		if err := auditRepo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit migrate: %w", err)
		}
		repo := pricing.NewPostgresRepo(db)
		return &stores{
			overrides: repo,
			boundary:  repo,
			rates:     pricing.NewPostgresCatalog(db),
			locker:    pricing.NewPostgresLocker(db),
			audit:     auditRepo,
			ready: func(ctx context.Context) error {
				return utils.HealthCheck(ctx, db, 2*time.Second)
			},
			closers: []func() error{db.Close},
		}, nil

	case config.BackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis init: %w", err)
		}
		repo := pricing.NewRedisRepo(rdb, cfg.Store.RedisPrefix)
		return &stores{
			overrides: repo,
			boundary:  repo,
			rates:     pricing.NewMemoryCatalog(),
			locker:    utils.NewRedisLocker(rdb),
			audit:     audit.NewMemoryRepo(),
			ready:     redisReady(rdb),
			closers:   []func() error{rdb.Close},
		}, nil

	default:
		repo := pricing.NewMemoryRepo()
		return &stores{
			overrides: repo,
			boundary:  repo,
			rates:     pricing.NewMemoryCatalog(),
			locker:    pricing.NewMutexLocker(),
			audit:     audit.NewMemoryRepo(),
		}, nil
	}
}

func redisReady(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}
}
