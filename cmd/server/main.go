package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"

	"github.com/dragonseats/optimizer/config"
	"github.com/dragonseats/optimizer/internal/handler"
	"github.com/dragonseats/optimizer/internal/middleware"
	"github.com/dragonseats/optimizer/internal/provider"
	"github.com/dragonseats/optimizer/internal/repository"
	"github.com/dragonseats/optimizer/internal/service"
	"github.com/dragonseats/optimizer/internal/solver"
	"github.com/dragonseats/optimizer/pkg/cache"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Telemetry (optional) ────────────────────────────
	if cfg.Telemetry.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Telemetry.SentryDSN,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Fatalf("failed to init telemetry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Println("[main] telemetry enabled")
	}

	// ── Redis hot cache (optional) ──────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("[main] Redis connected")
	}

	// ── Store + repositories ────────────────────────────
	store := repository.NewStoreClient(cfg.Store.URL, cfg.Store.ServiceKey)
	if !store.Configured() {
		log.Println("[main] store not configured — running without persistence")
	}
	weekRepo := repository.NewWeekRepository(store)
	distCache := repository.NewDistanceCacheRepository(store, redisClient)
	runWriter := repository.NewRunWriter(store)

	// ── Planner wiring ──────────────────────────────────
	distProvider := provider.New(cfg.Provider.APIKey)
	matrixBuilder := solver.NewMatrixBuilder(
		distCache, distProvider,
		cfg.Solver.CacheTolerance, cfg.Provider.BatchSize, cfg.Provider.RateLimitDelay)

	plannerSvc := service.NewPlannerService(weekRepo, matrixBuilder, runWriter, service.Params{
		Timeout:             cfg.Solver.Timeout,
		MaxClusterRadiusMi:  cfg.Solver.MaxClusterRadiusMi,
		MaxStopsPerTrip:     cfg.Solver.MaxStopsPerTrip,
		SetupBufferHours:    cfg.Solver.SetupBufferHours,
		TeardownBufferHours: cfg.Solver.TeardownBufferHours,
	})

	optimizeHandler := handler.NewOptimizeHandler(plannerSvc)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	router.HandleFunc("/optimize", optimizeHandler.Optimize).Methods(http.MethodPost)

	handlerChain := middleware.CORS(middleware.RequestLogger(middleware.Recoverer(router)))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      handlerChain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("[main] optimizer listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[main] shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("[main] server stopped")
}
