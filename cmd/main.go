package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/config"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/db"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/handlers"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/middleware"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/router"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/services"
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	if !envLoaded {
		logger.Warn("no .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer func() {
		if err := db.Disconnect(client); err != nil {
			logger.Error("error disconnecting from MongoDB", "error", err)
		}
	}()
	logger.Info("connected to MongoDB", "database", cfg.MongoDB)

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.Warn("failed to create indexes", "error", err)
	}

	transactionService := services.NewTransactionService(services.NewMongoTransactionStore(database))
	fareService := services.NewFareService(services.NewMongoFareStore(client, database), cfg.DefaultFare)

	checks := map[string]handlers.Check{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
	redisClient := middleware.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := router.New(router.Deps{
		Esewa:         handlers.NewEsewaHandler(transactionService),
		Fare:          handlers.NewFareHandler(fareService),
		Health:        handlers.NewHealthHandler(checks),
		RateLimiter:   middleware.NewRateLimiter(redisClient, cfg.CallbackRateLimit, cfg.CallbackRateWindow),
		CallbackToken: cfg.CallbackToken,
	})

	var workers sync.WaitGroup
	if cfg.WatchFareEvents {
		watcher := services.NewFareWatcher(database, fareService)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := watcher.Run(ctx); err != nil {
				logger.Error("tap event watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// the watcher may be inside a fare transaction; wait before the client disconnects
	workers.Wait()
	logger.Info("server exited")
}
