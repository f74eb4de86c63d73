// Package sqlstore persists audit summaries in PostgreSQL or SQLite through
// sqlx. Queries are written with ? placeholders and rebound per driver.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ignite/adoptimizer/internal/domain"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

//go:embed schema.sql
var schema string

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const auditColumns = `id, filename, owner, total_spend, potential_savings, confidence, ads_analyzed, content_hash, created_at`

// Store implements audit.Repository.
type Store struct{ db *sqlx.DB }

// Options tunes the connection pool. Zero values keep the driver defaults.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to the database named by driver and dsn.
func Open(ctx context.Context, driver, dsn string, opts Options) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the audits table and its indexes if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateAudit(ctx context.Context, a *domain.Audit) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audits (`+auditColumns+`)
		VALUES (:id, :filename, :owner, :total_spend, :potential_savings, :confidence, :ads_analyzed, :content_hash, :created_at)
	`, a)
	if err != nil {
		return fmt.Errorf("create audit: %w", err)
	}
	return nil
}

func (s *Store) GetAudit(ctx context.Context, owner, id string) (*domain.Audit, error) {
	var a domain.Audit
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`
		SELECT `+auditColumns+`
		FROM audits
		WHERE id = ? AND owner = ?
	`), id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAudits(ctx context.Context, owner string, f audit.ListFilter) ([]domain.Audit, int, error) {
	f = f.Normalize()

	var total int
	if err := s.db.GetContext(ctx, &total,
		s.db.Rebind(`SELECT COUNT(*) FROM audits WHERE owner = ?`), owner,
	); err != nil {
		return nil, 0, fmt.Errorf("count audits: %w", err)
	}

	audits := []domain.Audit{}
	if err := s.db.SelectContext(ctx, &audits, s.db.Rebind(`
		SELECT `+auditColumns+`
		FROM audits
		WHERE owner = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), owner, f.Limit, f.Offset); err != nil {
		return nil, 0, fmt.Errorf("list audits: %w", err)
	}
	return audits, total, nil
}
