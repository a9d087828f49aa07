package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// PostgresRecordStore keeps documents in a records table keyed by
// (container_id, name). Containers carry no unique constraint; races
// that create duplicates resolve by always selecting the oldest row.
type PostgresRecordStore struct {
	pool      *pgxpool.Pool
	container string
	ids       *IDCache
	ensure    singleflight.Group
}

func NewPostgresRecordStore(pool *pgxpool.Pool, container string, ids *IDCache) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool, container: container, ids: ids}
}

// EnsureSchema creates the backing tables. Called once at startup.
func (s *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS containers (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			container_id UUID NOT NULL REFERENCES containers(id),
			name         TEXT NOT NULL,
			doc          BYTEA NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (container_id, name)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure record store schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresRecordStore) ensureContainer(ctx context.Context) (string, error) {
	cacheKey := "container:" + s.container
	if id, ok := s.ids.Get(cacheKey); ok {
		return id, nil
	}

	v, err, _ := s.ensure.Do(cacheKey, func() (interface{}, error) {
		var id string
		query := `SELECT id FROM containers WHERE name = $1 ORDER BY created_at ASC LIMIT 1`
		err := s.pool.QueryRow(ctx, query, s.container).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up container: %w", err)
		}

		_, err = s.pool.Exec(ctx, `INSERT INTO containers (name) VALUES ($1)`, s.container)
		if err != nil {
			return nil, fmt.Errorf("failed to create container: %w", err)
		}

		// Re-select the oldest so concurrent creators converge.
		err = s.pool.QueryRow(ctx, query, s.container).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve container id: %w", err)
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}

	id := v.(string)
	s.ids.Set(cacheKey, id)
	return id, nil
}

func (s *PostgresRecordStore) Find(ctx context.Context, name string) (string, error) {
	if id, ok := s.ids.Get(name); ok {
		return id, nil
	}

	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return "", err
	}

	var id string
	query := `SELECT id FROM records WHERE container_id = $1 AND name = $2`
	err = s.pool.QueryRow(ctx, query, cid, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find record: %w", err)
	}

	s.ids.Set(name, id)
	return id, nil
}

func (s *PostgresRecordStore) Read(ctx context.Context, name string) ([]byte, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return nil, err
	}

	var doc []byte
	query := `SELECT doc FROM records WHERE container_id = $1 AND name = $2`
	err = s.pool.QueryRow(ctx, query, cid, name).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return doc, nil
}

func (s *PostgresRecordStore) Write(ctx context.Context, name string, doc []byte) (string, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return "", err
	}

	var id string
	query := `INSERT INTO records (container_id, name, doc)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (container_id, name)
	          DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	          RETURNING id`
	err = s.pool.QueryRow(ctx, query, cid, name, doc).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}

	s.ids.Set(name, id)
	return id, nil
}

func (s *PostgresRecordStore) Delete(ctx context.Context, name string) (bool, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return false, err
	}

	result, err := s.pool.Exec(ctx,
		`DELETE FROM records WHERE container_id = $1 AND name = $2`, cid, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	s.ids.Forget(name)
	return result.RowsAffected() > 0, nil
}

func (s *PostgresRecordStore) List(ctx context.Context) ([]RecordInfo, error) {
	cid, err := s.ensureContainer(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT name FROM records WHERE container_id = $1 ORDER BY name ASC`, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []RecordInfo
	for rows.Next() {
		var info RecordInfo
		if err := rows.Scan(&info.Name); err != nil {
			return nil, fmt.Errorf("failed to scan record name: %w", err)
		}
		records = append(records, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
