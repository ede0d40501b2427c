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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/config"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/internal/observability"
	"github.com/your-org/presence/internal/queue"
	"github.com/your-org/presence/internal/storage"
	"github.com/your-org/presence/internal/worker"
)

const galleryRefreshInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting presence recognition worker",
		"workers", cfg.Matching.WorkerCount,
		"use_index", cfg.Matching.UseIndex,
	)

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

	// Connect to MinIO (snapshot retention)
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	resolver := match.NewResolver(cfg.Matching.Threshold, cfg.Matching.UseIndex)
	recorder := attendance.NewRecorder(db)
	processor := worker.NewProcessor(db, resolver, recorder, producer)

	if err := processor.RefreshGallery(context.Background()); err != nil {
		slog.Error("initial gallery load", "error", err)
		os.Exit(1)
	}
	slog.Info("gallery loaded", "identities", resolver.Size())

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start consuming capture tasks
	err = consumer.ConsumeCaptures(ctx, "recognition-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.CaptureTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal capture task", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		if _, err := processor.Process(ctx, task); err != nil {
			return fmt.Errorf("process capture %s: %w", task.CaptureID, err)
		}

		return nil
	}, cfg.Matching.WorkerCount)
	if err != nil {
		slog.Error("start capture consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Pick up new enrollments without a restart
	go func() {
		ticker := time.NewTicker(galleryRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := processor.RefreshGallery(ctx); err != nil {
					slog.Warn("refresh gallery", "error", err)
				}
			}
		}
	}()

	// Snapshot cleanup goroutine
	if cfg.Attendance.SnapshotRetentionDays > 0 {
		janitor := worker.NewJanitor(minioStore, cfg.Attendance.SnapshotRetentionDays)
		slog.Info("snapshot cleanup enabled", "retention_days", cfg.Attendance.SnapshotRetentionDays)
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					deleted, err := janitor.Sweep(ctx, time.Now())
					if err != nil {
						slog.Warn("snapshot cleanup", "error", err)
						continue
					}
					if deleted > 0 {
						slog.Info("snapshot cleanup removed old captures", "deleted", deleted)
					}
				}
			}
		}()
	}

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}
