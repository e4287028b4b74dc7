// Package store persists samples to PostgreSQL/TimescaleDB and reads
// them back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// maxParams is PostgreSQL's limit on bind parameters per statement.
const maxParams = 65535

type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Options
}

type Options struct {
	// Timescale turns every table into a hypertable in EnsureSchema.
	Timescale bool
	// BatchRows caps rows per INSERT statement. Zero fits as many rows
	// as the parameter limit allows.
	BatchRows int
	Logger    *logmanager.Logger
}

// Store is a connection to the sample database. It is not safe for
// concurrent Persist calls.
type Store struct {
	db     *sql.DB
	opts   Options
	logger *logmanager.Logger
}

// Open connects to cfg.URL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, &ConnectionError{Err: fmt.Errorf("no database URL configured")}
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 2
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Err: err}
	}
	return New(db, cfg.Options), nil
}

// New wraps an open database handle.
func New(db *sql.DB, opts Options) *Store {
	return &Store{db: db, opts: opts, logger: opts.Logger}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Persist writes every sample of snap in a single transaction. Either
// all rows are committed or none are.
func (s *Store) Persist(ctx context.Context, snap sample.Snapshot) error {
	if snap.Empty() {
		s.logger.Debugf("nothing to persist")
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Err: fmt.Errorf("begin transaction: %w", err)}
	}

	for _, kind := range sample.Kinds {
		rows := rowsOf(snap, kind)
		if len(rows) == 0 {
			continue
		}
		if err := s.insert(ctx, tx, kind, rows); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Errorf("rollback after failed %s insert: %v", kind.Table(), rbErr)
			}
			return &WriteError{Table: kind.Table(), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &WriteError{Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, kind sample.Kind, rows [][]any) error {
	cols := columns[kind]
	batch := maxParams / len(cols)
	if s.opts.BatchRows > 0 && s.opts.BatchRows < batch {
		batch = s.opts.BatchRows
	}

	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		query, args := insertStatement(kind.Table(), cols, rows[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func insertStatement(table string, cols []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for j := range row {
			if j > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+j+1)
		}
		b.WriteString(")")
		args = append(args, row...)
	}
	return b.String(), args
}
