package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediastock/internal/alert"
	"mediastock/internal/backup"
	"mediastock/internal/config"
	"mediastock/internal/database"
	"mediastock/internal/docstore"
	"mediastock/internal/eventbus"
	"mediastock/internal/inventory"
	"mediastock/internal/logging"
	"mediastock/internal/middleware"
	"mediastock/internal/server"
	"mediastock/internal/websocket"
)

func main() {
	genKeys := flag.Bool("genkeys", false, "print a fresh VAPID key pair and exit")
	flag.Parse()
	if *genKeys {
		pub, priv, err := alert.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	var store docstore.Store
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		store = docstore.NewSQLite(db, logger.With("component", "docstore"))
	case config.BackendFile:
		blobs, err := docstore.NewFileBlobStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open data dir: %v", err)
		}
		store = docstore.NewFile(blobs, eventbus.New(), logger.With("component", "docstore"))
	}
	defer store.Close()

	tracker, err := inventory.New(store, inventory.Config{
		OutboundPolicy: inventory.OutboundPolicy(cfg.OutboundPolicy),
	}, logger.With("component", "tracker"))
	if err != nil {
		log.Fatalf("failed to start tracker: %v", err)
	}
	defer tracker.Close()

	hub := websocket.NewHub(logger.With("component", "websocket"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		pushSvc  *alert.Service
		notifier *alert.Notifier
	)
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = alert.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		notifier, err = alert.NewNotifier(pushSvc, tracker, store, cfg.AlertInterval, logger.With("component", "alert"))
		if err != nil {
			log.Fatalf("failed to start alert notifier: %v", err)
		}
		notifier.Start(ctx)
		defer notifier.Stop()
	} else {
		logger.Info("push alerts disabled, VAPID keys not set")
	}

	backupMgr := backup.NewManager(backup.Config{
		S3:         cfg.BackupS3,
		Passphrase: cfg.BackupPassphrase,
		Interval:   cfg.BackupInterval,
	}, store, func(status backup.Status) {
		hub.Broadcast(websocket.NewEvent("backup", "status", string(status.State), map[string]any{
			"in_progress": status.InProgress,
		}))
	}, logger.With("component", "backup"))
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	limiter := middleware.NewRateLimiter(120, time.Minute)
	limiter.StartCleanup(ctx)

	srv := server.New(tracker, hub, pushSvc, notifier, backupMgr, limiter, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Mediastock running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
