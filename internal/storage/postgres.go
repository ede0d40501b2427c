package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/presence/internal/config"
	"github.com/your-org/presence/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPostgresStore(cfg config.DatabaseConfig, descriptorDim int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Connections are lazy; callers use WaitReady to block on startup.
	return &PostgresStore{pool: pool, dim: descriptorDim}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables and the (identity_id, day) unique index
// that backs the idempotent attendance insert.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS identities (
			id UUID PRIMARY KEY,
			subject_id TEXT NOT NULL,
			name TEXT NOT NULL,
			person_code TEXT NOT NULL DEFAULT '',
			descriptor vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dim),
		`CREATE TABLE IF NOT EXISTS attendance (
			id UUID PRIMARY KEY,
			identity_id UUID NOT NULL REFERENCES identities(id),
			day TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			snapshot_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS attendance_identity_day ON attendance (identity_id, day)`,
		`CREATE INDEX IF NOT EXISTS attendance_day ON attendance (day)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, subjectID, name, personCode string, descriptor []float32) (*models.Identity, error) {
	ident := &models.Identity{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		Name:       name,
		PersonCode: personCode,
		Descriptor: descriptor,
	}
	vec := pgvector.NewVector(descriptor)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, subject_id, name, person_code, descriptor) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		ident.ID, ident.SubjectID, ident.Name, ident.PersonCode, vec,
	).Scan(&ident.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	ident := &models.Identity{}
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT id, subject_id, name, person_code, descriptor, created_at FROM identities WHERE id = $1`, id,
	).Scan(&ident.ID, &ident.SubjectID, &ident.Name, &ident.PersonCode, &vec, &ident.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	ident.Descriptor = vec.Slice()
	return ident, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, name, person_code, created_at FROM identities ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		var ident models.Identity
		if err := rows.Scan(&ident.ID, &ident.SubjectID, &ident.Name, &ident.PersonCode, &ident.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	return identities, nil
}

func (s *PostgresStore) CountIdentities(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// LoadGallery returns the full (identity, descriptor) snapshot for matching.
// Registrations are durably committed before they appear here, so a snapshot
// taken after enrollment always contains the new identity.
func (s *PostgresStore) LoadGallery(ctx context.Context) ([]models.GalleryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, descriptor FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	defer rows.Close()

	var gallery []models.GalleryEntry
	for rows.Next() {
		var entry models.GalleryEntry
		var vec pgvector.Vector
		if err := rows.Scan(&entry.IdentityID, &vec); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		entry.Descriptor = vec.Slice()
		gallery = append(gallery, entry)
	}
	return gallery, nil
}

// --- Attendance ---

// InsertUnique inserts the record unless one exists for (identity_id, day).
// The unique index makes the check-and-insert a single atomic statement;
// concurrent recognitions of the same person can never create duplicates.
func (s *PostgresStore) InsertUnique(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance (id, identity_id, day, timestamp, snapshot_key)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (identity_id, day) DO NOTHING
		 RETURNING created_at`,
		rec.ID, rec.IdentityID, rec.Day, rec.Timestamp, rec.SnapshotKey,
	).Scan(&rec.CreatedAt)
	if err == nil {
		return &rec, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("insert attendance: %w", err)
	}

	existing, err := s.FindByIdentityAndDay(ctx, rec.IdentityID, rec.Day)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("attendance conflict for (%s, %s) but record not found", rec.IdentityID, rec.Day)
	}
	return existing, false, nil
}

func (s *PostgresStore) FindByIdentityAndDay(ctx context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, identity_id, day, timestamp, snapshot_key, created_at FROM attendance WHERE identity_id = $1 AND day = $2`,
		identityID, day,
	).Scan(&rec.ID, &rec.IdentityID, &rec.Day, &rec.Timestamp, &rec.SnapshotKey, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, identity_id, day, timestamp, snapshot_key, created_at FROM attendance WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.IdentityID, &rec.Day, &rec.Timestamp, &rec.SnapshotKey, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, day string, limit, offset int) ([]models.AttendanceRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	baseWhere := ""
	args := []interface{}{}
	argIdx := 1

	if day != "" {
		baseWhere = fmt.Sprintf("WHERE day = $%d", argIdx)
		args = append(args, day)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM attendance " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, identity_id, day, timestamp, snapshot_key, created_at
		 FROM attendance %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.IdentityID, &rec.Day, &rec.Timestamp, &rec.SnapshotKey, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, nil
}

func (s *PostgresStore) CountPresent(ctx context.Context, day string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT identity_id) FROM attendance WHERE day = $1`, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count present: %w", err)
	}
	return count, nil
}

// WaitReady pings the database until it responds or the deadline passes.
func (s *PostgresStore) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("postgres not ready after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
