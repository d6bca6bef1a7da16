package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pansobot/internal/bot"
	"pansobot/internal/config"
	"pansobot/internal/pansou"
	"pansobot/internal/session"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"search_api_url": cfg.SearchAPIURL,
		"allowed_users":  len(cfg.AllowedUsers),
		"session_ttl":    cfg.SessionTTL.String(),
	}).Info("Configuration loaded successfully")

	// --- Initialize Components ---
	log.Info("Initializing components...")

	// Session store
	store, err := session.NewBadgerStore(cfg.SessionTTL, log)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer func() {
		log.Info("Closing session store...")
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Error closing session store")
		}
	}()

	// Search service clients
	creds, err := pansou.NewCredentialManager(cfg.SearchAPIURL, cfg.Username, cfg.Password, log)
	if err != nil {
		log.Fatalf("Failed to initialize credential manager: %v", err)
	}
	searchClient := pansou.NewClient(cfg.SearchAPIURL, creds, log)

	// Bot Handler
	botHandler, err := bot.NewHandler(cfg, store, searchClient, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
	}

	// --- Application Startup ---
	log.Info("Starting pansobot...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the bot polling in a separate goroutine
	go botHandler.Start(ctx)

	log.Info("pansobot is running. Press Ctrl+C to exit.")

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	log.Info("Shutting down pansobot...")
	stop()

	// The deferred store.Close() will run now.
	log.Info("pansobot shut down gracefully.")
}
