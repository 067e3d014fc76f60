package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkup/backend/internal/cache"
	"linkup/backend/internal/config"
	"linkup/backend/internal/database"
	"linkup/backend/internal/events"
	"linkup/backend/internal/handler"
	"linkup/backend/internal/hub"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store"
	"linkup/backend/internal/store/gormstore"
	"linkup/backend/internal/store/memstore"

	// Swagger imports
	_ "linkup/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Linkup API
// @version         1.0
// @description     Relationship graph API: connections, follows, blocks, contacts and suggestions between individuals and organizations.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := config.LoadConfig(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	eventHub := hub.NewHub(logger)
	publishers := events.Fanout{eventHub}
	opts := []relations.Option{relations.WithLogger(logger)}

	if cfg.NatsURL != "" {
		nats, err := events.NewNatsPublisher(ctx, cfg.NatsURL)
		if err != nil {
			return err
		}
		defer nats.Close()
		publishers = append(publishers, nats)
		logger.Info("publishing relationship events to NATS", "stream", events.StreamName)
	}
	opts = append(opts, relations.WithPublisher(publishers))

	if cfg.RedisURL != "" {
		client, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, relations.WithSuggestionCache(cache.NewSuggestionCache(client, cfg.SuggestionCacheTTL)))
		logger.Info("suggestion cache enabled", "ttl", cfg.SuggestionCacheTTL)
	}

	engine := relations.NewEngine(st, opts...)
	h := handler.New(st, engine, eventHub, logger, handler.Options{
		SuggestionDefaultLimit: cfg.SuggestionDefaultLimit,
		SuggestionMaxLimit:     cfg.SuggestionMaxLimit,
	})

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "addr", srv.Addr, "swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		slog.Warn("using the in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return gormstore.New(db), nil
}
