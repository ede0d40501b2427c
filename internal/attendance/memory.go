package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
)

// MemoryStore is an in-memory Store. The mutex serializes the conditional
// insert, giving the same uniqueness guarantee the Postgres unique index
// provides.
type MemoryStore struct {
	mu      sync.Mutex
	byKey   map[string]*models.AttendanceRecord
	ordered []*models.AttendanceRecord // insertion order, oldest first

	// InsertErr, when set, is returned by every call. Used to exercise
	// store-failure paths in tests.
	InsertErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]*models.AttendanceRecord)}
}

func key(identityID uuid.UUID, day string) string {
	return identityID.String() + "|" + day
}

func (s *MemoryStore) InsertUnique(_ context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	if s.InsertErr != nil {
		return nil, false, s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(rec.IdentityID, rec.Day)
	if existing, ok := s.byKey[k]; ok {
		out := *existing
		return &out, false, nil
	}

	rec.CreatedAt = time.Now()
	stored := rec
	s.byKey[k] = &stored
	s.ordered = append(s.ordered, &stored)

	out := stored
	return &out, true, nil
}

func (s *MemoryStore) FindByIdentityAndDay(_ context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error) {
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byKey[key(identityID, day)]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	if s.InsertErr != nil {
		return nil, s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.ordered {
		if rec.ID == id {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) List(_ context.Context, day string, limit, offset int) ([]models.AttendanceRecord, int, error) {
	if s.InsertErr != nil {
		return nil, 0, s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []models.AttendanceRecord
	for i := len(s.ordered) - 1; i >= 0; i-- {
		rec := s.ordered[i]
		if day != "" && rec.Day != day {
			continue
		}
		filtered = append(filtered, *rec)
	}

	total := len(filtered)
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *MemoryStore) CountPresent(_ context.Context, day string) (int, error) {
	if s.InsertErr != nil {
		return 0, s.InsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]struct{})
	for _, rec := range s.ordered {
		if rec.Day == day {
			seen[rec.IdentityID] = struct{}{}
		}
	}
	return len(seen), nil
}
