package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/presence/internal/api"
	"github.com/your-org/presence/internal/api/ws"
	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/auth"
	"github.com/your-org/presence/internal/config"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/internal/observability"
	"github.com/your-org/presence/internal/queue"
	"github.com/your-org/presence/internal/storage"
	"github.com/your-org/presence/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting presence API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database, cfg.Matching.DescriptorDim)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.WaitReady(context.Background(), 30*time.Second); err != nil {
		slog.Error("postgres not ready", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		slog.Error("load timezone", "timezone", cfg.Attendance.Timezone, "error", err)
		os.Exit(1)
	}

	// Gallery resolver with the initial snapshot
	resolver := match.NewResolver(cfg.Matching.Threshold, cfg.Matching.UseIndex)
	gallery, err := db.LoadGallery(context.Background())
	if err != nil {
		slog.Error("load gallery", "error", err)
		os.Exit(1)
	}
	resolver.SetGallery(gallery)
	observability.GallerySize.Set(float64(len(gallery)))
	slog.Info("gallery loaded", "identities", len(gallery))

	recorder := attendance.NewRecorder(db)
	issuer := auth.NewIssuer(cfg.Auth)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Broadcast worker recognition results to WebSocket clients
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var result models.RecognitionResult
		if err := json.Unmarshal(msg.Data(), &result); err != nil {
			return err
		}
		hub.BroadcastEvent(&dto.WSEvent{
			Type: eventType(result),
			Day:  result.Day,
			Data: dto.WSEventData{
				CaptureID:  result.CaptureID,
				IdentityID: result.IdentityID,
				Name:       result.Name,
				Distance:   result.Distance,
				RecordID:   result.RecordID,
				Timestamp:  result.Timestamp.Format(time.RFC3339),
				Source:     result.Source,
			},
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:        cfg.Server.APIKey,
		Issuer:        issuer,
		DB:            db,
		MinIO:         minioStore,
		Producer:      producer,
		Hub:           hub,
		Resolver:      resolver,
		Recorder:      recorder,
		Location:      loc,
		DescriptorDim: cfg.Matching.DescriptorDim,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

func eventType(result models.RecognitionResult) string {
	switch {
	case !result.Recognized:
		return dto.EventFaceUnrecognized
	case result.Marked:
		return dto.EventAttendanceMarked
	default:
		return dto.EventAttendanceDuplicate
	}
}
