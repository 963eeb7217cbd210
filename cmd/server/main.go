package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/config"
	navEvents "github.com/Kilat-Pet-Delivery/service-navigation/internal/events"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider/osrm"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider/routecache"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider/simulator"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/repository"
)

const serviceName = "service-navigation"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&repository.SessionModel{}); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}
	log.Info("database migration completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Kafka producer and the event fan-out
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	hub := navEvents.NewHub(log)
	fanout := navEvents.NewFanout(log, navEvents.NewKafkaTarget(kafkaProducer), hub)
	fanoutDone := make(chan struct{})
	go func() {
		defer close(fanoutDone)
		fanout.Run(ctx)
	}()

	// Initialize route calculation, cached when Redis is configured
	var calc provider.Calculator = osrm.NewClient(cfg.RoutingConfig.OSRMURL, cfg.RoutingConfig.OSRMTimeout, log)
	if cfg.RedisConfig.Addr != "" {
		store, err := routecache.Connect(ctx, routecache.RedisConfig{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		}, log)
		if err != nil {
			log.Warn("route cache unavailable, calculating without it", zap.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			calc = routecache.New(calc, store, cfg.RedisConfig.TTL, log)
		}
	}

	// Initialize application service
	sessionRepo := repository.NewGormSessionRepository(db)
	sessionService := application.NewSessionService(
		sessionRepo,
		calc,
		fanout,
		log,
		application.WithAwaitSurface(cfg.AwaitSurface),
		application.WithGuideFactory(func() provider.Guide {
			return simulator.New(cfg.SimulatorConfig.Tick, cfg.SimulatorConfig.SpeedMps, log)
		}),
	)

	// Initialize and start command consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "navigation-service"
	commandConsumer := navEvents.NewCommandConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		sessionService,
		log,
	)
	defer func() { _ = commandConsumer.Close() }()

	go func() {
		log.Info("starting navigation command consumer")
		if err := commandConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("navigation command consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	// Register routes
	handler.NewHealthHandler(db, serviceName).RegisterRoutes(router)
	handler.NewSessionHandler(sessionService, hub).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminSessionHandler(sessionService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. WriteTimeout is left unset for the websocket stream.
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	hub.Close()

	// Close live sessions before the fan-out drains so their final state is persisted.
	sessionService.Shutdown(shutdownCtx)
	cancel()
	<-fanoutDone

	log.Info(serviceName + " stopped")
}
