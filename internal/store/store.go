// Package store provides durable, indexed persistence for entity
// records, feature vectors, and quality reports.
//
// It is the source of truth for the cache layer: cold-tier lookups
// and full cache misses land here. It uses DuckDB as the backing
// database, with a primary key on (entity_type, entity_id, version)
// and a secondary index on (entity_type, source_ts) for
// recency-ordered scans, cache warm-up, and retention sweeps.
//
// The store surfaces I/O errors synchronously; retrying with backoff
// is the coordinator's responsibility.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/logging"
)

// =============================================================================
// Store Configuration
// =============================================================================

// Config holds store configuration options.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string

	// MemoryLimit is passed to DuckDB (e.g. "2GB"). Empty leaves the
	// engine default.
	MemoryLimit string

	// ArchiveDir receives Parquet archives of swept rows. Empty
	// disables archiving.
	ArchiveDir string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// QueryTimeout is the default timeout for internal queries.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 8,
		QueryTimeout: 30 * time.Second,
	}
}

// =============================================================================
// Store
// =============================================================================

// versionStripes is the number of per-key lock domains used to
// serialize version assignment for concurrent writers.
const versionStripes = 64

// Store provides persistence operations.
//
// Store is safe for concurrent use. Writers to the same entity key
// are serialized through a lock stripe so that version assignment is
// monotonic per (entity_type, entity_id); writers to unrelated keys
// proceed independently.
type Store struct {
	db     *sql.DB
	config Config

	mu     sync.RWMutex
	closed bool

	// keyLocks serializes version assignment per key hash.
	keyLocks [versionStripes]sync.Mutex

	stats Stats
}

// Stats holds store statistics.
type Stats struct {
	Puts          atomic.Int64
	Gets          atomic.Int64
	Queries       atomic.Int64
	VectorPuts    atomic.Int64
	VectorGets    atomic.Int64
	StaleRejected atomic.Int64
	SweepsRun     atomic.Int64
	RecordsSwept  atomic.Int64
	Errors        atomic.Int64
}

// New creates a new Store and initializes the schema.
func New(cfg Config) (*Store, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MemoryLimit != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%s'", cfg.MemoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	s := &Store{
		db:     db,
		config: cfg,
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logging.Component("store").Info("store opened",
		"path", cfg.Path, "archive_dir", cfg.ArchiveDir)

	return s, nil
}

// initSchema creates tables and indices if they do not exist.
func (s *Store) initSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS entity_records (
			entity_type  VARCHAR   NOT NULL,
			entity_id    VARCHAR   NOT NULL,
			version      INTEGER   NOT NULL,
			payload      VARCHAR   NOT NULL,
			source_ts    TIMESTAMP NOT NULL,
			ingested_at  TIMESTAMP NOT NULL,
			batch_id     VARCHAR   NOT NULL DEFAULT '',
			PRIMARY KEY (entity_type, entity_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entity_source_ts
			ON entity_records (entity_type, source_ts)`,
		`CREATE TABLE IF NOT EXISTS feature_vectors (
			entity_type           VARCHAR   NOT NULL,
			entity_id             VARCHAR   NOT NULL,
			feature_set_version   INTEGER   NOT NULL,
			source_record_version INTEGER   NOT NULL,
			names                 VARCHAR   NOT NULL,
			vals                  VARCHAR   NOT NULL,
			computed_at           TIMESTAMP NOT NULL,
			PRIMARY KEY (entity_type, entity_id, feature_set_version)
		)`,
		`CREATE TABLE IF NOT EXISTS quality_reports (
			batch_id      VARCHAR PRIMARY KEY,
			total_records INTEGER NOT NULL,
			valid_records INTEGER NOT NULL,
			completeness  DOUBLE  NOT NULL,
			accuracy      DOUBLE  NOT NULL,
			accepted      BOOLEAN NOT NULL,
			rejected_ids  VARCHAR NOT NULL,
			rule_failures VARCHAR NOT NULL,
			generated_at  TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec ddl: %w", err)
		}
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// isClosed reports whether Close has been called.
func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// DB returns the underlying database connection.
// Use with caution - prefer using Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// keyLock returns the lock stripe for an entity key.
func (s *Store) keyLock(entityType, entityID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(entityType))
	h.Write([]byte{0})
	h.Write([]byte(entityID))
	return &s.keyLocks[h.Sum32()%versionStripes]
}

// =============================================================================
// Transaction Support
// =============================================================================

// TransactionContext executes a function within a database transaction.
//
// If the function returns an error, the transaction is rolled back.
// If the function returns nil, the transaction is committed.
func (s *Store) TransactionContext(ctx context.Context, fn func(*sql.Tx) error) error {
	if s.isClosed() {
		return errors.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreIO("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreIO("commit transaction", err)
	}
	return nil
}

// StoreStats is a point-in-time snapshot of store statistics.
type StoreStats struct {
	Puts          int64
	Gets          int64
	Queries       int64
	VectorPuts    int64
	VectorGets    int64
	StaleRejected int64
	SweepsRun     int64
	RecordsSwept  int64
	Errors        int64
}

// Stats returns current statistics.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Puts:          s.stats.Puts.Load(),
		Gets:          s.stats.Gets.Load(),
		Queries:       s.stats.Queries.Load(),
		VectorPuts:    s.stats.VectorPuts.Load(),
		VectorGets:    s.stats.VectorGets.Load(),
		StaleRejected: s.stats.StaleRejected.Load(),
		SweepsRun:     s.stats.SweepsRun.Load(),
		RecordsSwept:  s.stats.RecordsSwept.Load(),
		Errors:        s.stats.Errors.Load(),
	}
}
