package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adams521/everything-gift/internal/bootstrap"
	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/handler"
	"github.com/Adams521/everything-gift/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Everything Gift recommendation server")

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize services")
	}

	if app.Engine == nil || !app.Engine.IsEnabled() {
		logging.Warn().Str("provider", cfg.AI.Provider).
			Msg("AI engine is disabled, recommendations use rule-based filtering and template reasoning")
	}
	logging.Info().Str("catalog_driver", cfg.Catalog.Driver).Msg("Services initialized")

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", handler.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{handler.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"service":        "everything-gift",
			"ai_enabled":     app.Engine != nil && app.Engine.IsEnabled(),
			"catalog_driver": cfg.Catalog.Driver,
			"cache_enabled":  app.Cache != nil,
			"version":        Version,
			"build_time":     BuildTime,
			"git_commit":     GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	handler.RegisterRoutes(router, handler.Handlers{
		Recommendation: handler.NewRecommendationHandler(app.Recommend),
		Feedback:       handler.NewFeedbackHandler(app.Catalog),
		Embedding:      handler.NewEmbeddingHandler(app.Catalog),
		Catalog:        handler.NewCatalogHandler(app.Catalog),
		Source:         handler.NewSourceHandler(app.Sources),
	})

	// Serve static files (frontend)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := serve(ctx, srv, app); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

// serve runs srv until ctx is done or the listener fails, then shuts it down.
// app is closed on every path before serve returns.
func serve(ctx context.Context, srv *http.Server, app io.Closer) error {
	defer func() {
		if err := app.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to release resources")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
