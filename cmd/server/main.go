package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raisket/audittrail/internal/alerts"
	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/handler"
	"github.com/raisket/audittrail/internal/middleware"
	"github.com/raisket/audittrail/internal/pkg/logger"
	"github.com/raisket/audittrail/internal/repository"
	"github.com/raisket/audittrail/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Connected to PostgreSQL")

	eventRepo := repository.NewPostgresEventRepo(db)
	violationRepo := repository.NewPostgresViolationRepo(db)
	accountRepo := repository.NewPostgresAccountRepo(db)

	// Recent-event cache and pub/sub (optional)
	var cache service.RecentCache
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			cache = redisClient
			defer redisClient.Close()
		} else {
			logger.Error("Failed to connect to Redis, live cache disabled", "error", err)
		}
	}

	// 3. Rule registry
	var ruleSource service.RuleSource
	switch cfg.Rules.Source {
	case "file":
		ruleSource = service.NewFileRuleSource(cfg.Rules.FilePath)
	default:
		ruleSource = repository.NewPostgresRuleRepo(db)
	}
	registry := service.NewRuleRegistry(ruleSource)
	if err := registry.Reload(context.Background()); err != nil {
		logger.Warn("Initial rule load failed, starting with empty rule set", "error", err)
	} else {
		logger.Info("Compliance rules loaded", "count", len(registry.Rules()))
	}

	// 4. Alert channels and collaborators. Unconfigured constructors
	// return nil concrete pointers; wrap only the configured ones so the
	// registry and dispatcher never hold a typed-nil interface.
	var configured []alerts.Channel
	if ch := alerts.NewEmailChannel(cfg.Alerts.Email); ch != nil {
		configured = append(configured, ch)
	}
	if ch := alerts.NewSlackChannel(cfg.Alerts.Slack); ch != nil {
		configured = append(configured, ch)
	}
	if ch := alerts.NewWebhookChannel(cfg.Alerts.Webhook); ch != nil {
		configured = append(configured, ch)
	}
	if ch := alerts.NewSMSChannel(cfg.Alerts.SMS); ch != nil {
		configured = append(configured, ch)
	}
	channels := alerts.NewRegistry(configured...)

	var compliance, ticketing service.Collaborator
	if c := alerts.NewHTTPCollaborator(cfg.Alerts.ComplianceURL); c != nil {
		compliance = c
	}
	if c := alerts.NewHTTPCollaborator(cfg.Alerts.TicketingURL); c != nil {
		ticketing = c
	}
	dispatcher := service.NewDispatcher(channels, accountRepo, compliance, ticketing, violationRepo)

	// 5. Pipeline, reporter, feed, sweeper
	hub := service.NewFeedHub(cfg.Feed.BufferSize)
	pipeline := service.NewPipeline(registry, dispatcher, eventRepo, cache, hub)
	reporter := service.NewReporter(eventRepo)
	sweeper := service.NewSweeper(eventRepo, pipeline, cfg.Retention.SweepInterval)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	pipeline.StartRuleReloader(bgCtx, cfg.Rules.ReloadInterval)
	sweeper.Start(bgCtx)

	// 6. Handlers and router
	eventHandler := handler.NewEventHandler(pipeline)
	reportHandler := handler.NewReportHandler(reporter)
	ruleHandler := handler.NewRuleHandler(pipeline)
	feedHandler := handler.NewFeedHandler(hub)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "audittrail"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1/audit")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(cfg))
	{
		v1.POST("/events", eventHandler.Log)
		v1.GET("/trail", eventHandler.Trail)
		v1.GET("/reports", reportHandler.Get)
		v1.GET("/rules", ruleHandler.List)
		v1.GET("/feed", feedHandler.Stream)

		admin := v1.Group("")
		admin.Use(middleware.AdminMiddleware(cfg))
		admin.POST("/rules/reload", ruleHandler.Reload)
	}

	// 7. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("audittrail started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	bgCancel()
	sweeper.Stop()
	hub.Close()

	logger.Info("Server exiting")
}
