// Package worker processes queued capture tasks: resolve the probe against
// the gallery, record attendance, and emit the result as a live event.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/internal/observability"
)

// IdentityReader is the read side of the identity store the worker needs.
type IdentityReader interface {
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	LoadGallery(ctx context.Context) ([]models.GalleryEntry, error)
}

// EventPublisher delivers recognition results to the attendance event stream.
type EventPublisher interface {
	PublishEvent(ctx context.Context, day string, data interface{}) error
}

// Processor handles one capture at a time: match, record, publish.
type Processor struct {
	db        IdentityReader
	resolver  *match.Resolver
	recorder  *attendance.Recorder
	publisher EventPublisher
}

func NewProcessor(db IdentityReader, resolver *match.Resolver, recorder *attendance.Recorder, publisher EventPublisher) *Processor {
	return &Processor{db: db, resolver: resolver, recorder: recorder, publisher: publisher}
}

// RefreshGallery replaces the resolver's snapshot from the identity store.
func (p *Processor) RefreshGallery(ctx context.Context) error {
	gallery, err := p.db.LoadGallery(ctx)
	if err != nil {
		return fmt.Errorf("refresh gallery: %w", err)
	}
	p.resolver.SetGallery(gallery)
	observability.GallerySize.Set(float64(len(gallery)))
	return nil
}

// Process resolves one capture task and records attendance on a match.
// Store failures return an error so the queue redelivers the task; a
// no-match outcome is terminal and acked.
func (p *Processor) Process(ctx context.Context, task models.CaptureTask) (models.RecognitionResult, error) {
	observability.CapturesProcessed.WithLabelValues(task.Source).Inc()

	result := models.RecognitionResult{
		CaptureID:   task.CaptureID,
		Day:         task.Day,
		Timestamp:   task.Timestamp,
		SnapshotKey: task.SnapshotKey,
		Source:      task.Source,
	}

	start := time.Now()
	res := p.resolver.Resolve(task.Descriptor)
	observability.MatchDuration.Observe(time.Since(start).Seconds())

	if res.Skipped > 0 {
		observability.DescriptorsSkipped.Add(float64(res.Skipped))
		slog.Warn("gallery entries skipped during matching",
			"capture_id", task.CaptureID,
			"skipped", res.Skipped,
		)
	}

	if !res.Matched {
		observability.ProbesUnmatched.Inc()
		p.publish(ctx, &result)
		return result, nil
	}
	observability.ProbesMatched.Inc()

	result.Recognized = true
	result.IdentityID = &res.IdentityID
	result.Distance = res.Distance

	ident, err := p.db.GetIdentity(ctx, res.IdentityID)
	if err != nil {
		return result, fmt.Errorf("load matched identity: %w", err)
	}
	if ident != nil {
		result.Name = ident.Name
	}

	out, err := p.recorder.Record(ctx, res.IdentityID, task.Day, task.Timestamp, task.SnapshotKey)
	if err != nil {
		return result, err
	}
	result.Marked = out.Marked
	recordID := out.Record.ID
	result.RecordID = &recordID

	p.publish(ctx, &result)
	return result, nil
}

func (p *Processor) publish(ctx context.Context, result *models.RecognitionResult) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishEvent(ctx, result.Day, result); err != nil {
		slog.Error("publish recognition result", "capture_id", result.CaptureID, "error", err)
	}
}
