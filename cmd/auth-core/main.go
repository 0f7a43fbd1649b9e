package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"
	"github.com/pribylovaa/booking-platform/auth-core/internal/counters"
	"github.com/pribylovaa/booking-platform/auth-core/internal/ledger"
	"github.com/pribylovaa/booking-platform/auth-core/internal/lockout"
	"github.com/pribylovaa/booking-platform/auth-core/internal/metrics"
	"github.com/pribylovaa/booking-platform/auth-core/internal/middleware"
	"github.com/pribylovaa/booking-platform/auth-core/internal/service"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage/postgres"
	"github.com/pribylovaa/booking-platform/auth-core/internal/token"
	transport "github.com/pribylovaa/booking-platform/auth-core/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	clk := clock.System{}

	// Подписной материал проверяется до любых сетевых подключений:
	// при короткой/пустой конфигурации секрета сервис не стартует.
	signer, err := token.New(cfg.Auth, clk)
	if err != nil {
		log.Error("signer_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	// Счётчики блокировок в Redis (fail-fast на старте).
	cstore, err := counters.NewRedisStore(cfg.Redis.RedisURL, "")
	if err != nil {
		log.Error("redis_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = cstore.Close() }()
	log.Info("redis_connected")

	guard := lockout.New(cstore, cfg.Lockout, clk)
	ldg := ledger.New(str, cfg.Auth, clk, nil)

	srvc, err := service.New(str, ldg, guard, signer, cfg.Auth, clk, nil)
	if err != nil {
		log.Error("service_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready

	if cfg.Env == envProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recover(log),
		middleware.RequestLogger(log),
		middleware.WithTimeout(cfg.Timeouts.Service),
	)

	router.GET("/livez", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/healthz", func(c *gin.Context) {
		if atomic.LoadInt32(&ready) == 1 {
			c.String(http.StatusOK, "ok")
			return
		}
		c.String(http.StatusServiceUnavailable, "not ready")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	transport.NewAuthHandler(srvc).Register(router)

	// Фоновая уборка отозванных/просроченных refresh-токенов.
	startTokenJanitor(rootCtx, ldg, log, cfg.Auth.SweepPeriod)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startTokenJanitor запускает фоновую задачу, которая периодически
// удаляет отозванные и просроченные refresh-токены старше горизонта
// хранения (ledger.Sweep).
func startTokenJanitor(ctx context.Context, ldg *ledger.Ledger, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := ldg.Sweep(ctx)
				if err != nil {
					log.Error("token_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				if n > 0 {
					metrics.TokensSwept.Add(float64(n))
					log.Info("token_janitor_swept", slog.Int64("count", n))
				}
			}
		}
	}()
}
