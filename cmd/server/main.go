package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
	"github.com/tunelink/jamsync/internal/config"
	"github.com/tunelink/jamsync/internal/httpapi"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	clk := clock.Real{}

	var (
		store session.Store
		cat   catalog.Resolver
	)
	if cfg.Database.Disabled {
		// Dev mode: everything in process, nothing survives a restart.
		c := catalog.NewStatic()
		store = session.NewMemStore(clk, c)
		cat = c
		logger.Warn("database disabled, running with in-memory store")
	} else {
		db, err := openDB(cfg)
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		if err := session.Migrate(db); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		if err := db.AutoMigrate(&catalog.Track{}); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		cat = catalog.NewGormResolver(db)
		store = session.NewGormStore(db, clk, cat)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := transport.NewHub(ctx, logger)
	handler := httpapi.SetupRoutes(store, hub, logger)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		hub.Shutdown()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		return server.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
