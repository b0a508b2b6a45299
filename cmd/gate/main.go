package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/checkin"
	"github.com/cipherhq/ticketrack-sub010/internal/config"
	"github.com/cipherhq/ticketrack-sub010/internal/handler"
	"github.com/cipherhq/ticketrack-sub010/internal/logger"
	"github.com/cipherhq/ticketrack-sub010/internal/remote/rest"
	"github.com/cipherhq/ticketrack-sub010/internal/service"
	"github.com/cipherhq/ticketrack-sub010/internal/store/sqlite"
	syncengine "github.com/cipherhq/ticketrack-sub010/internal/sync"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting gate service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the local durable store
	storeClient, err := sqlite.NewClient(ctx, &cfg.Store, log)
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}

	localStore := sqlite.NewStore(storeClient, log)
	defer func() {
		if err := localStore.Close(); err != nil {
			log.Error("Failed to close local store", zap.Error(err))
		}
	}()

	if err := localStore.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize local store schema", zap.Error(err))
	}

	// Remote ticketing authority
	authority, err := rest.NewClient(cfg.Remote, log)
	if err != nil {
		log.Fatal("Failed to create remote authority client", zap.Error(err))
	}

	// Check-in processor and sync engine
	processor := checkin.NewProcessor(localStore, cfg.Checkin.DefaultZone, log)
	engine := syncengine.NewEngine(localStore, authority,
		time.Duration(cfg.Remote.TimeoutSec)*time.Second, log)

	// Background drain of the pending queue
	if cfg.Sync.AutoIntervalSec > 0 {
		go engine.Run(ctx, time.Duration(cfg.Sync.AutoIntervalSec)*time.Second)
	}

	gateService := service.NewGateService(localStore, authority, processor, engine, log)
	h := handler.NewHandler(gateService, localStore, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	srv := &http.Server{Addr: addr, Handler: h}

	go func() {
		log.Info("Gate API server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start gate API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gate service gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down gate API server", zap.Error(err))
	}
}
