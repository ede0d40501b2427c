package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/pkg/dto"
)

const testDim = 2

// memIdentityStore is an in-memory IdentityStore for handler tests.
type memIdentityStore struct {
	mu         sync.Mutex
	identities []models.Identity
}

func (m *memIdentityStore) CreateIdentity(_ context.Context, subjectID, name, personCode string, descriptor []float32) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident := models.Identity{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		Name:       name,
		PersonCode: personCode,
		Descriptor: descriptor,
		CreatedAt:  time.Now(),
	}
	m.identities = append(m.identities, ident)
	return &ident, nil
}

func (m *memIdentityStore) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.identities {
		if m.identities[i].ID == id {
			ident := m.identities[i]
			return &ident, nil
		}
	}
	return nil, nil
}

func (m *memIdentityStore) ListIdentities(_ context.Context) ([]models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Identity, len(m.identities))
	copy(out, m.identities)
	return out, nil
}

func (m *memIdentityStore) CountIdentities(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.identities), nil
}

func (m *memIdentityStore) LoadGallery(_ context.Context) ([]models.GalleryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var gallery []models.GalleryEntry
	for _, ident := range m.identities {
		gallery = append(gallery, models.GalleryEntry{IdentityID: ident.ID, Descriptor: ident.Descriptor})
	}
	return gallery, nil
}

// memSnapshots is an in-memory SnapshotReader.
type memSnapshots map[string][]byte

func (m memSnapshots) GetObject(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errNoSnapshot
	}
	return data, nil
}

var errNoSnapshot = errors.New("no such object")

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPath(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func newIdentityRouter(db *memIdentityStore, resolver *match.Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIdentityHandler(db, resolver, testDim)
	r.POST("/identities", h.Register)
	r.GET("/identities", h.List)
	r.GET("/identities/:id", h.Get)
	return r
}

func TestRegisterIdentity(t *testing.T) {
	db := &memIdentityStore{}
	resolver := match.NewResolver(0.6, false)
	r := newIdentityRouter(db, resolver)

	w := postJSON(t, r, "/identities", dto.RegisterIdentityRequest{
		SubjectID:  "subj-1",
		Name:       "Alice",
		PersonCode: "EMP-42",
		Descriptor: []float32{0.1, 0.2},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.IdentityResponse](t, w)
	if resp.Name != "Alice" || resp.PersonCode != "EMP-42" {
		t.Errorf("unexpected response: %+v", resp)
	}

	// Registration refreshes the matcher's gallery snapshot.
	if resolver.Size() != 1 {
		t.Errorf("resolver gallery size = %d, want 1", resolver.Size())
	}
}

func TestRegisterIdentity_DimensionMismatch(t *testing.T) {
	r := newIdentityRouter(&memIdentityStore{}, match.NewResolver(0.6, false))

	w := postJSON(t, r, "/identities", dto.RegisterIdentityRequest{
		SubjectID:  "subj-1",
		Name:       "Alice",
		Descriptor: []float32{0.1, 0.2, 0.3},
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestRegisterIdentity_MissingFields(t *testing.T) {
	r := newIdentityRouter(&memIdentityStore{}, match.NewResolver(0.6, false))

	w := postJSON(t, r, "/identities", map[string]interface{}{"name": "Alice"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetIdentity_NotFound(t *testing.T) {
	r := newIdentityRouter(&memIdentityStore{}, match.NewResolver(0.6, false))

	w := getPath(t, r, "/identities/"+uuid.NewString())
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	w = getPath(t, r, "/identities/not-a-uuid")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func newAttendanceRouter(db *memIdentityStore, store *attendance.MemoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAttendanceHandler(db, attendance.NewRecorder(store), memSnapshots{}, time.UTC)
	r.POST("/attendance", h.Mark)
	r.GET("/attendance", h.List)
	r.GET("/attendance/:id/snapshot", h.Snapshot)
	r.GET("/stats/daily", h.DailyStats)
	return r
}

func enroll(t *testing.T, db *memIdentityStore, name string) uuid.UUID {
	t.Helper()
	ident, err := db.CreateIdentity(context.Background(), "subj-"+name, name, "", []float32{0, 0})
	if err != nil {
		t.Fatalf("CreateIdentity() error: %v", err)
	}
	return ident.ID
}

func TestMarkAttendance(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")
	r := newAttendanceRouter(db, attendance.NewMemoryStore())

	w := postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "2025-04-10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	first := decodeBody[dto.MarkResult](t, w)
	if first.Status != dto.AttendanceStatusMarked {
		t.Errorf("status = %q, want marked", first.Status)
	}

	// Same identity, same day: reported as a duplicate with the original record.
	w = postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "2025-04-10"})
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want 200", w.Code)
	}
	second := decodeBody[dto.MarkResult](t, w)
	if second.Status != dto.AttendanceStatusAlreadyMarked {
		t.Errorf("status = %q, want already_marked", second.Status)
	}
	if second.RecordID != first.RecordID {
		t.Errorf("duplicate record ID = %s, want %s", second.RecordID, first.RecordID)
	}
}

func TestMarkAttendance_UnknownIdentity(t *testing.T) {
	r := newAttendanceRouter(&memIdentityStore{}, attendance.NewMemoryStore())

	w := postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: uuid.New(), Day: "2025-04-10"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMarkAttendance_InvalidDay(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")
	r := newAttendanceRouter(db, attendance.NewMemoryStore())

	w := postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "April 10"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListAttendance(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")
	bobID := enroll(t, db, "Bob")
	r := newAttendanceRouter(db, attendance.NewMemoryStore())

	postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "2025-04-10"})
	postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: bobID, Day: "2025-04-10"})
	postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "2025-04-11"})

	w := getPath(t, r, "/attendance")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	all := decodeBody[dto.AttendanceListResponse](t, w)
	if all.Total != 3 {
		t.Errorf("total = %d, want 3", all.Total)
	}
	if len(all.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(all.Records))
	}
	// Newest first: the 2025-04-11 record leads.
	if all.Records[0].Day != "2025-04-11" {
		t.Errorf("first record day = %q, want 2025-04-11", all.Records[0].Day)
	}
	if all.Records[0].Name != "Alice" {
		t.Errorf("first record name = %q, want Alice", all.Records[0].Name)
	}

	w = getPath(t, r, "/attendance?day=2025-04-10")
	byDay := decodeBody[dto.AttendanceListResponse](t, w)
	if byDay.Total != 2 {
		t.Errorf("filtered total = %d, want 2", byDay.Total)
	}
}

func TestAttendanceSnapshot(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")

	store := attendance.NewMemoryStore()
	recorder := attendance.NewRecorder(store)
	key := "captures/2025-04-10/cap-1"
	out, err := recorder.Record(context.Background(), aliceID, "2025-04-10", time.Now(), key)
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAttendanceHandler(db, recorder, memSnapshots{key: image}, time.UTC)
	r.GET("/attendance/:id/snapshot", h.Snapshot)

	w := getPath(t, r, "/attendance/"+out.Record.ID.String()+"/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if !bytes.Equal(w.Body.Bytes(), image) {
		t.Error("snapshot body does not match stored image")
	}

	w = getPath(t, r, "/attendance/"+uuid.NewString()+"/snapshot")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown record status = %d, want 404", w.Code)
	}
}

func TestDailyStats(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")
	enroll(t, db, "Bob")
	enroll(t, db, "Carol")
	enroll(t, db, "Dave")
	r := newAttendanceRouter(db, attendance.NewMemoryStore())

	postJSON(t, r, "/attendance", dto.MarkAttendanceRequest{IdentityID: aliceID, Day: "2025-04-10"})

	w := getPath(t, r, "/stats/daily?day=2025-04-10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	stats := decodeBody[dto.DailyStatsResponse](t, w)
	if stats.TotalIdentities != 4 || stats.PresentCount != 1 || stats.AbsentCount != 3 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.AttendanceRatePercent != 25 {
		t.Errorf("rate = %d, want 25", stats.AttendanceRatePercent)
	}
}

func newRecognizeRouter(db *memIdentityStore, resolver *match.Resolver, store *attendance.MemoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewRecognizeHandler(db, resolver, attendance.NewRecorder(store), nil, time.UTC, testDim)
	r.POST("/recognize", h.Recognize)
	return r
}

func TestRecognize_MatchAndRecord(t *testing.T) {
	db := &memIdentityStore{}
	aliceID := enroll(t, db, "Alice")
	resolver := match.NewResolver(1.0, false)
	gallery, _ := db.LoadGallery(context.Background())
	resolver.SetGallery(gallery)
	r := newRecognizeRouter(db, resolver, attendance.NewMemoryStore())

	w := postJSON(t, r, "/recognize", dto.RecognizeRequest{
		Descriptor: []float32{0.1, 0},
		Day:        "2025-04-10",
		Record:     true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.RecognizeResponse](t, w)
	if !resp.Recognized {
		t.Fatal("expected recognition")
	}
	if *resp.IdentityID != aliceID {
		t.Errorf("identity = %s, want %s", resp.IdentityID, aliceID)
	}
	if resp.Attendance == nil || resp.Attendance.Status != dto.AttendanceStatusMarked {
		t.Errorf("unexpected attendance result: %+v", resp.Attendance)
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	db := &memIdentityStore{}
	enroll(t, db, "Alice")
	resolver := match.NewResolver(0.5, false)
	gallery, _ := db.LoadGallery(context.Background())
	resolver.SetGallery(gallery)
	r := newRecognizeRouter(db, resolver, attendance.NewMemoryStore())

	w := postJSON(t, r, "/recognize", dto.RecognizeRequest{
		Descriptor: []float32{5, 5},
		Day:        "2025-04-10",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.RecognizeResponse](t, w)
	if resp.Recognized {
		t.Error("expected no recognition")
	}
	if resp.Attendance != nil {
		t.Error("no attendance result expected without a match")
	}
}

func TestRecognize_DimensionMismatch(t *testing.T) {
	r := newRecognizeRouter(&memIdentityStore{}, match.NewResolver(0.6, false), attendance.NewMemoryStore())

	w := postJSON(t, r, "/recognize", dto.RecognizeRequest{
		Descriptor: []float32{1, 2, 3},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}
