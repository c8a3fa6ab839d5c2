package inquiry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"contract_workflow_backend/internal/property"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an inquiry id is unknown.
var ErrNotFound = errors.New("inquiry not found")

// Repository persists inquiry records.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	// List returns records newest first.
	List(ctx context.Context) ([]Record, error)
}

// PostgresRepository stores inquiries in property_inquiries.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Inquiry)
	if err != nil {
		return fmt.Errorf("marshal inquiry: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO property_inquiries (id, sender, property_key, property_address, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Sender, property.Key(rec.Inquiry.PropertyAddress), rec.Inquiry.PropertyAddress, payload, rec.CreatedAt)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, sender, payload, created_at FROM property_inquiries WHERE id = $1
	`, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender, payload, created_at FROM property_inquiries ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SQLiteRepository stores inquiries in the embedded database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps a database opened with db.OpenSQLite.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Inquiry)
	if err != nil {
		return fmt.Errorf("marshal inquiry: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO property_inquiries (id, sender, property_key, property_address, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID.String(), rec.Sender, property.Key(rec.Inquiry.PropertyAddress), rec.Inquiry.PropertyAddress,
		string(payload), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save inquiry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sender, payload, created_at FROM property_inquiries WHERE id = ?`, id.String())
	rec, err := scanSQLiteRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender, payload, created_at FROM property_inquiries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MemoryRepository keeps inquiries in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]Record)}
}

func (r *MemoryRepository) Save(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	var payload []byte
	if err := scan(&rec.ID, &rec.Sender, &payload, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Inquiry); err != nil {
		return Record{}, fmt.Errorf("decode inquiry %s: %w", rec.ID, err)
	}
	return rec, nil
}

func scanSQLiteRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	var id, payload, created string
	if err := scan(&id, &rec.Sender, &payload, &created); err != nil {
		return Record{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("inquiry id %q: %w", id, err)
	}
	rec.ID = parsed
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(created)); err != nil {
		return Record{}, fmt.Errorf("inquiry %s created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Inquiry); err != nil {
		return Record{}, fmt.Errorf("decode inquiry %s: %w", id, err)
	}
	return rec, nil
}
