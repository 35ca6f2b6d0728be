package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"classreviews/internal/app"
	"classreviews/internal/middleware"
	"classreviews/internal/reviews"
	synchub "classreviews/internal/sync"
	"classreviews/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.LogEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	if cfg.LogEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start TCP sync first (so binding errors surface early)
	hub := synchub.NewHub(logger)
	router.GET("/ws", synchub.WSHandler(hub, synchub.WSOptions{Origins: cfg.CORSOrigins}))
	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreBackend, "blobs": cfg.BlobBackend})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		snap := a.Store.Get()
		if !a.Ready() || snap.Version == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"reviews":     len(snap.Reviews),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	if cfg.BlobBackend == utils.BackendLocal {
		router.Static("/uploads", cfg.UploadDir)
	}

	h := reviews.NewHandler(a.Service, cfg.SharedUserID)
	h.MaxUpload = cfg.UploadMaxBytes
	h.RegisterRoutes(router.Group("/api"))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", reviews.ReviewerHeader},
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP API server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.Service.Run(ctx, cfg.RefreshInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Bus.Forward(ctx, hub); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down servers")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	if err := tcpSrv.Close(); err != nil {
		logger.Warn("tcp shutdown error", zap.Error(err))
	}
	hub.Close()

	wg.Wait()
	logger.Info("servers stopped")
}
