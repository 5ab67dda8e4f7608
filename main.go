package main

// GET  /customers/{id}/open-cart               - current open cart with items
// PUT  /customers/{id}/add-to-cart             - add product (sets quantity)
// POST /customers/{id}/update-product-quantity - change quantity of a cart item
// POST /customers/{id}/remove-product          - drop a product from the cart
// POST /customers/{id}/checkout                - deduct stock and close the cart
// GET  /products, POST /products, PUT /products/{id}/stock

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

	"cart-checkout/config"
	"cart-checkout/handler"
	"cart-checkout/logger"
	"cart-checkout/metrics"
	"cart-checkout/service"
	"cart-checkout/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "cart-checkout", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer st.Close()

	// --- Service ---
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var svc service.ServiceInterface = service.NewService(st, log, m)

	// --- Router ---
	r := mux.NewRouter()
	handler.NewHandler(svc, log, m).RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler(reg)).Methods("GET")

	// --- Server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("server running", slog.String("addr", srv.Addr), slog.String("store", cfg.Store))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := store.NewPostgresStore(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.RunMigrations {
		if err := pg.Migrate(connectCtx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		log.Info("database migrations executed")
	}
	return pg, nil
}
