package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltwatch/voltwatch/internal/comed"
	"github.com/voltwatch/voltwatch/internal/config"
	"github.com/voltwatch/voltwatch/internal/engine"
	"github.com/voltwatch/voltwatch/internal/logger"
	"github.com/voltwatch/voltwatch/internal/storage"
	"github.com/voltwatch/voltwatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	comedClient := comed.NewClient(
		cfg.ComEd.APIURL,
		cfg.ComEd.ReferenceURL,
		cfg.ComEd.Timeout,
		comed.ClientConfig{
			MaxRetries:     cfg.ComEd.MaxRetries,
			RetryDelayBase: cfg.ComEd.RetryDelayBase,
		},
	)

	var telegramClient *telegram.Client
	eng := engine.New(store, comedClient, nil, engine.Config{
		DefaultThreshold: cfg.Alert.DefaultThreshold,
		DeliveryTimeout:  cfg.Alert.DeliveryTimeout,
	})

	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, eng, store, cfg.ComEd.MaxRetries, cfg.ComEd.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		eng.SetNotifier(telegramClient)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting price watch (interval: %v, default threshold: %.1f¢/kWh)",
		cfg.Alert.PollInterval,
		cfg.Alert.DefaultThreshold,
	)

	// Best-effort seed of the reference price before the first cycle; on
	// failure the configured default stays in effect.
	refCtx, refCancel := context.WithTimeout(ctx, 30*time.Second)
	eng.RefreshReferencePrice(refCtx)
	refCancel()

	pollTicker := time.NewTicker(cfg.Alert.PollInterval)
	defer pollTicker.Stop()
	refTicker := time.NewTicker(cfg.Alert.ReferenceRefreshInterval)
	defer refTicker.Stop()

	logger.Debug("Running initial polling cycle")
	if err := eng.PollTick(ctx); err != nil {
		logger.Error("Polling cycle failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-pollTicker.C:
			logger.Debug("Starting scheduled polling cycle")
			if err := eng.PollTick(ctx); err != nil {
				logger.Error("Polling cycle failed: %v", err)
			}

		case <-refTicker.C:
			eng.RefreshReferencePrice(ctx)
		}
	}
}
