package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shop-api/internal/adapter/handler"
	"github.com/rl1809/shop-api/internal/adapter/storage"
	"github.com/rl1809/shop-api/internal/config"
	"github.com/rl1809/shop-api/internal/core/service"
	"github.com/rl1809/shop-api/internal/pkg/keylock"
	"github.com/rl1809/shop-api/internal/pkg/logger"
	"github.com/rl1809/shop-api/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup := openStore(ctx, cfg, log)
	defer cleanup()

	if cfg.SeedDemoData {
		if err := storage.SeedDemoData(ctx, store); err != nil {
			log.Fatal("seed demo data", "error", err)
		}
		log.Info("demo data seeded")
	}

	guard := openGuard(ctx, cfg, log)

	locks := keylock.New()
	authService := service.NewAuthService(store, log, cfg.JWTSecret, cfg.TokenTTL)
	productService := service.NewProductService(store, log)
	cartService := service.NewCartService(store, store, locks, log)
	orderService := service.NewOrderService(store, store, store, guard, locks, log)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:     authService,
		Products: productService,
		Carts:    cartService,
		Orders:   orderService,
	})

	httpServer := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.ServerAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", "error", err)
	}
	log.Info("HTTP server stopped")
}

// openStore selects the storage backend once at startup. With the mysql
// backend and the fallback flag set, an unreachable database degrades to the
// in-memory store instead of refusing to start.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (port.Store, func()) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Info("using in-memory storage")
		return storage.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err == nil {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		err = db.PingContext(ctx)
	}
	if err != nil {
		if !cfg.FallbackToMemory {
			log.Fatal("failed to connect mysql", "error", err)
		}
		log.Warn("mysql unreachable, degrading to in-memory storage", "error", err)
		return storage.NewMemoryStore(), func() {}
	}

	mysqlStore := storage.NewMySQLStore(db)
	if err := mysqlStore.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to ensure schema", "error", err)
	}
	log.Info("connected to mysql")
	return mysqlStore, func() { db.Close() }
}

// openGuard wires the Redis checkout guard when configured, otherwise the
// in-process one.
func openGuard(ctx context.Context, cfg *config.Config, log *logger.Logger) port.CheckoutGuard {
	if cfg.RedisAddr == "" {
		return storage.NewMemoryCheckoutGuard()
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-process checkout guard", "error", err)
		return storage.NewMemoryCheckoutGuard()
	}
	log.Info("connected to redis")
	return storage.NewRedisCheckoutGuard(rdb)
}
