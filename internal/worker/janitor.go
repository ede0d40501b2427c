package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ObjectStore is the slice of the snapshot store the janitor needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Janitor prunes capture snapshots older than the retention window. Keys
// follow captures/<day>/<capture-id>, so the day segment compares
// lexicographically against the cutoff.
type Janitor struct {
	store         ObjectStore
	retentionDays int
}

func NewJanitor(store ObjectStore, retentionDays int) *Janitor {
	return &Janitor{store: store, retentionDays: retentionDays}
}

// Sweep deletes snapshots for days older than the retention cutoff and
// returns the number removed. A failed delete is logged and skipped; the
// sweep continues.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().AddDate(0, 0, -j.retentionDays).Format("2006-01-02")

	keys, err := j.store.ListObjects(ctx, "captures/")
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) < 3 || parts[1] >= cutoff {
			continue
		}
		if err := j.store.DeleteObject(ctx, key); err != nil {
			slog.Warn("delete snapshot", "key", key, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
