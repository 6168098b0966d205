package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"catalog-sales/internal/auth"
	"catalog-sales/internal/catalog"
	"catalog-sales/internal/config"
	"catalog-sales/internal/featureflags"
	mw "catalog-sales/internal/http/middleware"
	"catalog-sales/internal/logger"
	"catalog-sales/internal/storefactory"
)

func main() {
	// 1) Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	// 2) Feature flags init (non-fatal)
	featureflags.SetDefaults(featureflags.Defaults{
		LogLevel:          cfg.LogLevel,
		SalesRequireAdmin: cfg.SalesRequireAdmin,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	if err := featureflags.Init(ctx, cfg.RolloutKey); err != nil {
		logger.Warnf("feature flags init warning: %v", err)
	} else {
		logger.Infof("feature flags ready: offline=%v, logLevel=%s",
			featureflags.Offline(), featureflags.LogLevel())
	}
	cancel()

	// 2a) Levelled logger from flag & watch for flips
	logger.SetLevel(featureflags.LogLevel())
	logger.Infof("log level set to %s", logger.GetLevel())
	go watchLogLevel(5 * time.Second)

	// 3) Store
	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Second)
	store, closeStore, err := storefactory.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}

	// 4) Router
	s := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg, store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("catalog-sales listening on %s", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 5) Graceful shutdown on SIGINT/SIGTERM
	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return s.Shutdown(ctx)
			},
			"feature-flags": func(ctx context.Context) error {
				return featureflags.Shutdown(ctx)
			},
			"store": func(context.Context) error {
				return closeStore()
			},
		})

	exitCode := <-wait
	logger.Infof("catalog-sales exited with code %d", exitCode)
	os.Exit(exitCode)
}

func newRouter(cfg *config.Config, store catalog.Store) http.Handler {
	r := mux.NewRouter()

	// Offline kill-switch, health checks always pass
	r.Use(mw.OfflineGate(featureflags.Offline, "/health", "/ready"))

	// Request logger (skip noisy health endpoints)
	r.Use(mw.LogRequests(mw.WithSkips("/health", "/ready")))

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.Warnf("ready: %v", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(featureflags.Snapshot())
	}).Methods(http.MethodGet)

	// Catalog & sales endpoints
	svc := catalog.NewService(store)
	catalogHandler := catalog.NewHandler(svc, auth.NewVerifier(cfg.JWTSecret),
		catalog.WithStoreTimeout(cfg.StoreTimeout),
		catalog.WithAdminGate(featureflags.SalesRequireAdmin),
	)
	catalogHandler.Register(r)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", auth.UserIDHeader}),
		handlers.ExposedHeaders([]string{mw.RequestIDHeader}),
	)(r)
}

func watchLogLevel(every time.Duration) {
	prev := featureflags.LogLevel()
	for {
		time.Sleep(every)
		cur := featureflags.LogLevel()
		if cur != prev {
			logger.SetLevel(cur)
			logger.Infof("log level changed to %s", logger.GetLevel())
			prev = cur
		}
	}
}
