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

	"github.com/Wuchinator/story-analytics/internal/config"
	"github.com/Wuchinator/story-analytics/internal/geoip"
	"github.com/Wuchinator/story-analytics/internal/stats"
	"github.com/Wuchinator/story-analytics/internal/view"
	"github.com/Wuchinator/story-analytics/internal/visitor"
	"github.com/Wuchinator/story-analytics/pkg/kafka"
	"github.com/Wuchinator/story-analytics/pkg/logger"
	"github.com/Wuchinator/story-analytics/pkg/postgres"
	"github.com/Wuchinator/story-analytics/pkg/rediskv"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "tracking-service")
	log.Info("Starting Tracking Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTPPort),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Error initializing postgres client", zap.Error(err))
	}
	defer db.Close()

	kv, err := rediskv.New(rediskv.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log)
	if err != nil {
		log.Fatal("Error initializing redis client", zap.Error(err))
	}
	defer kv.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Retries:          cfg.Kafka.ProducerRetries,
		Timeout:          cfg.Kafka.ProducerTimeout,
		RequiredAcks:     cfg.Kafka.RequiredAcks,
		Compression:      cfg.Kafka.CompressionType,
		IdempotentWrites: cfg.Kafka.IdempotentWrites,
		MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
	}, log)
	if err != nil {
		log.Fatal("Error initializing kafka producer", zap.Error(err))
	}
	defer producer.Close()

	geoClient := geoip.NewClient(geoip.Config{
		IPEndpoint:  cfg.GeoIP.IPEndpoint,
		GeoEndpoint: cfg.GeoIP.GeoEndpoint,
		GeoFallback: cfg.GeoIP.GeoFallback,
		Timeout:     cfg.GeoIP.Timeout,
	}, log)

	resolver := visitor.NewResolver(kv, log)
	sessions := visitor.NewSessions(kv, log)

	viewRepo := view.NewRepository(db, log)
	recorder := view.NewRecorder(viewRepo, producer, geoClient, sessions, view.RecorderConfig{
		DedupWindow:     cfg.Tracking.DedupWindow,
		MetadataTimeout: cfg.Tracking.MetadataTimeout,
	}, log)
	viewHandler := view.NewHandler(recorder, resolver, log)

	summaryRepo := stats.NewSummaryRepository(db.DB, log)
	statsService := stats.NewService(viewRepo, summaryRepo, cfg.Tracking.StoryIDs, log)
	holder := stats.NewSnapshotHolder()
	statsHandler := stats.NewHandler(statsService, holder, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := stats.NewPoller(statsService, holder, cfg.Tracking.PollInterval, log)
	go poller.Run(ctx)

	mux := http.NewServeMux()
	viewHandler.Register(mux)
	statsHandler.Register(mux)
	mux.HandleFunc("/healthz", healthHandler(db, kv))

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      loggingMiddleware(log)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown HTTP server timed out", zap.Error(err))
	}
	log.Info("HTTP server stopped")
}

func healthHandler(db *postgres.DB, kv *rediskv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		if db.HealthCheck(ctx) != nil || kv.HealthCheck(ctx) != nil {
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
	}
}

func loggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)

			log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
