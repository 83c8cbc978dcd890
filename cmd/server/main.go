package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"vigil/internal/analysis"
	analysishandler "vigil/internal/analysis/handler"
	"vigil/internal/caretaker"
	caretakerhandler "vigil/internal/caretaker/handler"
	"vigil/internal/dashboard"
	dashboardhandler "vigil/internal/dashboard/handler"
	"vigil/internal/history"
	"vigil/internal/jwtauth"
	"vigil/internal/notification"
	notificationhandler "vigil/internal/notification/handler"
	"vigil/internal/notification/registry"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/metrics"
	"vigil/internal/subject"
	subjecthandler "vigil/internal/subject/handler"
	"vigil/internal/transition"
)

// main wires the stores, the transition engine with its subscribers, and the
// HTTP surface. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db         *sql.DB
		subjects   subject.Store
		outcomes   analysis.Store
		records    history.Store
		inbox      notification.Store
		caretakers caretaker.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		subjects = subject.NewPostgres(db)
		outcomes = analysis.NewPostgres(db)
		records = history.NewPostgres(db)
		inbox = notification.NewPostgres(db)
		caretakers = caretaker.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		subjects = subject.NewInMemoryStore()
		outcomes = analysis.NewInMemoryStore()
		records = history.NewInMemoryStore()
		inbox = notification.NewInMemoryStore()
		caretakers = caretaker.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	reg := registry.New(cfg.StreamIdleTimeout, log, m)
	defer reg.Close()

	var bridge *notification.Bridge
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("parse redis url failed", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		bridge = notification.NewBridge(rdb, reg, log)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("push bridge stopped", "error", err)
			}
		}()
		log.Info("cross-instance push bridge enabled")
	}

	caretakerSvc := caretaker.NewService(caretakers, log)
	dispatcher := notification.NewDispatcher(inbox, caretakerSvc, reg, bridge, log, m)

	// Subscriber order is delivery order: the audit record lands before any
	// alert goes out.
	bus := transition.NewBus(log)
	bus.Subscribe(history.NewListener(records, log))
	bus.Subscribe(dispatcher)

	engine := transition.NewEngine(subjects, outcomes, bus, log, m)

	subjectSvc := subject.NewService(subjects, records, engine, bus, db, log)
	analysisSvc := analysis.NewService(outcomes, subjects, engine, dispatcher, db, log)
	dashboardSvc := dashboard.NewService(subjects, records, outcomes, log)
	notificationSvc := notification.NewService(inbox, reg, log)

	validator := jwtauth.NewValidator(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	subjecthandler.New(subjectSvc, log, m, validator).Register(router)
	analysishandler.New(analysisSvc, log, m, validator).Register(router)
	dashboardhandler.New(dashboardSvc, log, m, validator).Register(router)
	caretakerhandler.New(caretakerSvc, log, m, validator).Register(router)
	notificationhandler.New(notificationSvc, log, m, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
