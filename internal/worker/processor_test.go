package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
)

type fakeIdentityReader struct {
	identities map[uuid.UUID]*models.Identity
}

func newFakeIdentityReader() *fakeIdentityReader {
	return &fakeIdentityReader{identities: make(map[uuid.UUID]*models.Identity)}
}

func (f *fakeIdentityReader) add(name string, descriptor []float32) uuid.UUID {
	id := uuid.New()
	f.identities[id] = &models.Identity{ID: id, Name: name, Descriptor: descriptor}
	return id
}

func (f *fakeIdentityReader) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	return f.identities[id], nil
}

func (f *fakeIdentityReader) LoadGallery(_ context.Context) ([]models.GalleryEntry, error) {
	var gallery []models.GalleryEntry
	for id, ident := range f.identities {
		gallery = append(gallery, models.GalleryEntry{IdentityID: id, Descriptor: ident.Descriptor})
	}
	return gallery, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.RecognitionResult
}

func (f *fakePublisher) PublishEvent(_ context.Context, _ string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := data.(*models.RecognitionResult); ok {
		f.events = append(f.events, *r)
	}
	return nil
}

func newTestProcessor(t *testing.T, db *fakeIdentityReader) (*Processor, *fakePublisher) {
	t.Helper()
	resolver := match.NewResolver(1.0, false)
	recorder := attendance.NewRecorder(attendance.NewMemoryStore())
	pub := &fakePublisher{}
	p := NewProcessor(db, resolver, recorder, pub)
	if err := p.RefreshGallery(context.Background()); err != nil {
		t.Fatalf("RefreshGallery() error: %v", err)
	}
	return p, pub
}

func task(descriptor []float32, day string) models.CaptureTask {
	return models.CaptureTask{
		CaptureID:  uuid.New(),
		Descriptor: descriptor,
		Day:        day,
		Timestamp:  time.Now(),
		Source:     "kiosk-1",
	}
}

func TestProcess_RecognizedAndMarked(t *testing.T) {
	db := newFakeIdentityReader()
	aliceID := db.add("Alice", []float32{0, 0})
	db.add("Bob", []float32{10, 10})

	p, pub := newTestProcessor(t, db)

	result, err := p.Process(context.Background(), task([]float32{0.1, 0.1}, "2025-04-10"))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if !result.Recognized {
		t.Fatal("expected recognition")
	}
	if *result.IdentityID != aliceID {
		t.Errorf("identity = %s, want %s", result.IdentityID, aliceID)
	}
	if result.Name != "Alice" {
		t.Errorf("name = %q, want Alice", result.Name)
	}
	if !result.Marked {
		t.Error("expected attendance to be marked")
	}
	if result.RecordID == nil {
		t.Error("expected a record ID")
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
}

func TestProcess_DuplicateSameDay(t *testing.T) {
	db := newFakeIdentityReader()
	db.add("Alice", []float32{0, 0})

	p, _ := newTestProcessor(t, db)
	ctx := context.Background()

	first, err := p.Process(ctx, task([]float32{0, 0}, "2025-04-10"))
	if err != nil {
		t.Fatalf("first Process() error: %v", err)
	}
	second, err := p.Process(ctx, task([]float32{0.05, 0}, "2025-04-10"))
	if err != nil {
		t.Fatalf("second Process() error: %v", err)
	}

	if !first.Marked {
		t.Error("first capture should mark attendance")
	}
	if second.Marked {
		t.Error("second capture should be a duplicate")
	}
	if *second.RecordID != *first.RecordID {
		t.Errorf("duplicate record ID %s, want existing %s", second.RecordID, first.RecordID)
	}
}

func TestProcess_Unrecognized(t *testing.T) {
	db := newFakeIdentityReader()
	db.add("Alice", []float32{0, 0})

	p, pub := newTestProcessor(t, db)

	result, err := p.Process(context.Background(), task([]float32{5, 5}, "2025-04-10"))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if result.Recognized {
		t.Error("expected no recognition")
	}
	if result.RecordID != nil {
		t.Error("no attendance should be recorded for an unrecognized face")
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected the unrecognized event to be published, got %d", len(pub.events))
	}
	if pub.events[0].Recognized {
		t.Error("published event should report unrecognized")
	}
}

func TestProcess_StoreFailureReturnsError(t *testing.T) {
	db := newFakeIdentityReader()
	db.add("Alice", []float32{0, 0})

	resolver := match.NewResolver(1.0, false)
	store := attendance.NewMemoryStore()
	store.InsertErr = errors.New("connection reset")
	p := NewProcessor(db, resolver, attendance.NewRecorder(store), &fakePublisher{})
	if err := p.RefreshGallery(context.Background()); err != nil {
		t.Fatalf("RefreshGallery() error: %v", err)
	}

	_, err := p.Process(context.Background(), task([]float32{0, 0}, "2025-04-10"))
	if err == nil {
		t.Fatal("expected a store failure to surface for redelivery")
	}
}

func TestProcess_EmptyGallery(t *testing.T) {
	p, _ := newTestProcessor(t, newFakeIdentityReader())

	result, err := p.Process(context.Background(), task([]float32{1, 2}, "2025-04-10"))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if result.Recognized {
		t.Error("expected no recognition against an empty gallery")
	}
}

func TestProcess_GalleryRefreshPicksUpEnrollment(t *testing.T) {
	db := newFakeIdentityReader()
	p, _ := newTestProcessor(t, db)
	ctx := context.Background()

	result, err := p.Process(ctx, task([]float32{0, 0}, "2025-04-10"))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if result.Recognized {
		t.Fatal("expected no recognition before enrollment")
	}

	carolID := db.add("Carol", []float32{0, 0})
	if err := p.RefreshGallery(ctx); err != nil {
		t.Fatalf("RefreshGallery() error: %v", err)
	}

	result, err = p.Process(ctx, task([]float32{0, 0}, "2025-04-10"))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if !result.Recognized || *result.IdentityID != carolID {
		t.Errorf("expected recognition of Carol after refresh, got %+v", result)
	}
}
