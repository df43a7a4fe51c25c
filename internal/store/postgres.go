package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PgxPool is the subset of *pgxpool.Pool used by the Postgres store.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Postgres keeps every collection in the documents table as jsonb bodies.
type Postgres struct {
	pool    PgxPool
	indexes map[string]string
}

// NewPostgres returns a store backed by the documents table.
func NewPostgres(pool PgxPool, indexes ...Index) *Postgres {
	return &Postgres{pool: pool, indexes: indexMap(indexes)}
}

func (p *Postgres) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	id, _ := normalized[IDField].(string)
	if id == "" {
		id = uuid.NewString()
	}
	normalized[IDField] = id

	body, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}

	var uniqueKey *string
	if key, ok := uniqueValue(normalized, p.indexes[collection]); ok {
		uniqueKey = &key
	}

	const query = `
		INSERT INTO documents (collection, id, unique_key, body)
		VALUES ($1, $2, $3, $4::jsonb)`
	if _, err := p.pool.Exec(ctx, query, collection, id, uniqueKey, string(body)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	normalized, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	rawFilter, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	const query = `
		SELECT body FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		ORDER BY created_at
		LIMIT 1`
	var body []byte
	if err := p.pool.QueryRow(ctx, query, collection, string(rawFilter)).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return doc, nil
}

func (p *Postgres) FindAll(ctx context.Context, collection string) ([]Document, error) {
	const query = `SELECT body FROM documents WHERE collection = $1 ORDER BY created_at`
	rows, err := p.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
