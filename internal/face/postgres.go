package face

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory persists people and conversations in Postgres.
// Face embeddings live in a float8[] column and are matched in process,
// which holds up fine at household directory sizes.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS people (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	relationship   TEXT NOT NULL DEFAULT '',
	face_embedding FLOAT8[],
	last_seen_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS conversations (
	id         UUID PRIMARY KEY,
	person_id  UUID NOT NULL REFERENCES people(id),
	session_id TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_conversations_person ON conversations(person_id);
`

// NewPostgresDirectory connects to Postgres and ensures the schema exists
func NewPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PostgresDirectory{pool: pool}, nil
}

// Close releases the connection pool
func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

func (d *PostgresDirectory) ListFaceRefs(ctx context.Context) ([]FaceRef, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, name, face_embedding FROM people WHERE face_embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list face refs: %w", err)
	}
	defer rows.Close()

	var refs []FaceRef
	for rows.Next() {
		var ref FaceRef
		if err := rows.Scan(&ref.PersonID, &ref.Name, &ref.Embedding); err != nil {
			return nil, fmt.Errorf("failed to scan face ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (d *PostgresDirectory) GetPerson(ctx context.Context, id string) (*Person, error) {
	return d.scanPerson(d.pool.QueryRow(ctx,
		`SELECT id, name, relationship, last_seen_at, created_at FROM people WHERE id = $1`, id))
}

func (d *PostgresDirectory) FindPersonByName(ctx context.Context, name string) (*Person, error) {
	return d.scanPerson(d.pool.QueryRow(ctx,
		`SELECT id, name, relationship, last_seen_at, created_at
		 FROM people WHERE lower(name) = lower($1) LIMIT 1`, name))
}

func (d *PostgresDirectory) scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.Relationship, &p.LastSeenAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan person: %w", err)
	}
	return &p, nil
}

func (d *PostgresDirectory) CreatePerson(ctx context.Context, name, relationship string) (*Person, error) {
	p := &Person{ID: uuid.New().String(), Name: name, Relationship: relationship}
	err := d.pool.QueryRow(ctx,
		`INSERT INTO people (id, name, relationship) VALUES ($1, $2, $3)
		 RETURNING last_seen_at, created_at`,
		p.ID, p.Name, p.Relationship).Scan(&p.LastSeenAt, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return p, nil
}

func (d *PostgresDirectory) UpdateFaceEmbedding(ctx context.Context, personID string, embedding []float64) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE people SET face_embedding = $2 WHERE id = $1`, personID, embedding)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgresDirectory) UpdateRelationship(ctx context.Context, personID, relationship string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE people SET relationship = $2 WHERE id = $1`, personID, relationship)
	if err != nil {
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgresDirectory) TouchLastSeen(ctx context.Context, personID string, at time.Time) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE people SET last_seen_at = GREATEST(last_seen_at, $2) WHERE id = $1`, personID, at)
	if err != nil {
		return fmt.Errorf("failed to touch last seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgresDirectory) SaveConversation(ctx context.Context, conv *Conversation) error {
	id := conv.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO conversations (id, person_id, session_id, summary, transcript)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, conv.PersonID, conv.SessionID, conv.Summary, conv.Transcript)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) RecentPeople(ctx context.Context, limit int) ([]*Person, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, name, relationship, last_seen_at, created_at
		 FROM people ORDER BY last_seen_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent people: %w", err)
	}
	defer rows.Close()

	var people []*Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Relationship, &p.LastSeenAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, &p)
	}
	return people, rows.Err()
}
