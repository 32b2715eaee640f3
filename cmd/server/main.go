// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/imaging"
	"github.com/javajoker/projectstore/internal/router"
	"github.com/javajoker/projectstore/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.SeedInitialData(db, cfg.Email.AdminEmail); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	// OTP challenges live in Redis when it is configured.
	var challenges services.ChallengeStore = services.NewMemoryChallengeStore()
	redisClient, err := database.InitRedis(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		challenges = services.NewRedisChallengeStore(redisClient)
	} else {
		logrus.Warn("Redis not configured, verification codes are kept in memory")
	}

	notifier := services.NewNotificationService(db, cfg, services.NewMailer(cfg.Email))

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	publisher, err := newPublisher(consumerCtx, cfg, notifier)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize event publisher")
	}

	svc := router.NewServices(db, cfg, router.Infrastructure{
		Storage:    storage,
		Images:     imaging.New(cfg.Media, storage),
		Challenges: challenges,
		Notifier:   notifier,
		Publisher:  publisher,
	})

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, svc)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	// Let queued notifications finish
	stopConsumer()
	if err := publisher.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close event publisher")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

// newPublisher publishes to RabbitMQ and starts the notification consumer
// when AMQP_URL is set. Otherwise events are handled in-process.
func newPublisher(ctx context.Context, cfg *config.Config, notifier *services.NotificationService) (events.Publisher, error) {
	retry := events.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Queue.MaxRetries

	if cfg.Queue.AMQPURL == "" {
		logrus.Info("AMQP not configured, notifications are dispatched in-process")
		return events.NewDispatcher(notifier.HandleEvent, retry), nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.Queue.AMQPURL, cfg.Queue.Exchange)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			err := events.Consume(ctx, cfg.Queue.AMQPURL, cfg.Queue.Exchange, cfg.Queue.Queue, notifier.HandleEvent, retry)
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("Event consumer stopped, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()

	return publisher, nil
}
