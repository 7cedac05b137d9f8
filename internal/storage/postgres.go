package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deusflow/curator/internal/cache"
)

const itemCacheTable = "item_cache"

// PostgresCache keeps cache entries in a single table.
type PostgresCache struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
	psql sq.StatementBuilderType
}

var _ cache.Store = (*PostgresCache)(nil)

// NewPostgresCache connects, pings and makes sure the table exists.
func NewPostgresCache(ctx context.Context, databaseURL string, ttl time.Duration) (*PostgresCache, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	pc := &PostgresCache{
		pool: pool,
		ttl:  ttl,
		now:  time.Now,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := pc.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return pc, nil
}

func (pc *PostgresCache) initSchema(ctx context.Context) error {
	_, err := pc.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS item_cache (
		key TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_item_cache_created_at ON item_cache(created_at);`)
	return err
}

// Close closes the connection pool
func (pc *PostgresCache) Close() {
	if pc.pool != nil {
		pc.pool.Close()
	}
}

func (pc *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := pc.psql.
		Select("payload", "created_at").
		From(itemCacheTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	var payload []byte
	var createdAt int64
	err = pc.pool.QueryRow(ctx, query, args...).Scan(&payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if cache.Expired(createdAt, pc.now(), pc.ttl) {
		if err := pc.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return payload, true, nil
}

func (pc *PostgresCache) Set(ctx context.Context, key string, payload []byte) error {
	query, args, err := pc.psql.
		Insert(itemCacheTable).
		Columns("key", "payload", "created_at").
		Values(key, payload, pc.now().Unix()).
		Suffix("ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := pc.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (pc *PostgresCache) Delete(ctx context.Context, key string) error {
	query, args, err := pc.psql.Delete(itemCacheTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := pc.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep deletes rows older than the ttl.
func (pc *PostgresCache) Sweep(ctx context.Context) (int, error) {
	cutoff := pc.now().Unix() - int64(pc.ttl/time.Second)
	query, args, err := pc.psql.Delete(itemCacheTable).Where(sq.Lt{"created_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep: %w", err)
	}
	tag, err := pc.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (pc *PostgresCache) Clear(ctx context.Context) error {
	if _, err := pc.pool.Exec(ctx, "DELETE FROM "+itemCacheTable); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
