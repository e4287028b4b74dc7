package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dcollector/internal/sample"
)

func selectRecent(kind sample.Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY time DESC LIMIT $1",
		strings.Join(columns[kind], ", "), kind.Table())
}

// queryRecent runs the newest-first query for kind and hands each row to
// scan. Non-positive counts issue no query.
func (s *Store) queryRecent(ctx context.Context, kind sample.Kind, count int, scan func(*sql.Rows) error) error {
	if count <= 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, selectRecent(kind), count)
	if err != nil {
		return &ReadError{Table: kind.Table(), Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return &ReadError{Table: kind.Table(), Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &ReadError{Table: kind.Table(), Err: err}
	}
	return nil
}

func (s *Store) RecentSystem(ctx context.Context, count int) ([]sample.SystemSample, error) {
	var out []sample.SystemSample
	err := s.queryRecent(ctx, sample.KindSystem, count, func(rows *sql.Rows) error {
		var v sample.SystemSample
		if err := rows.Scan(systemDest(&v)...); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (s *Store) RecentProcesses(ctx context.Context, count int) ([]sample.ProcessSample, error) {
	var out []sample.ProcessSample
	err := s.queryRecent(ctx, sample.KindProcess, count, func(rows *sql.Rows) error {
		var v sample.ProcessSample
		if err := rows.Scan(processDest(&v)...); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (s *Store) RecentDisks(ctx context.Context, count int) ([]sample.DiskSample, error) {
	var out []sample.DiskSample
	err := s.queryRecent(ctx, sample.KindDisk, count, func(rows *sql.Rows) error {
		var v sample.DiskSample
		if err := rows.Scan(diskDest(&v)...); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (s *Store) RecentUPS(ctx context.Context, count int) ([]sample.UpsSample, error) {
	var out []sample.UpsSample
	err := s.queryRecent(ctx, sample.KindUPS, count, func(rows *sql.Rows) error {
		var v sample.UpsSample
		if err := rows.Scan(upsDest(&v)...); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// Recent returns the newest count rows of kind, newest first.
func (s *Store) Recent(ctx context.Context, kind sample.Kind, count int) ([]sample.Record, error) {
	var records []sample.Record
	var err error

	switch kind {
	case sample.KindSystem:
		var rows []sample.SystemSample
		rows, err = s.RecentSystem(ctx, count)
		for _, r := range rows {
			records = append(records, r)
		}
	case sample.KindProcess:
		var rows []sample.ProcessSample
		rows, err = s.RecentProcesses(ctx, count)
		for _, r := range rows {
			records = append(records, r)
		}
	case sample.KindDisk:
		var rows []sample.DiskSample
		rows, err = s.RecentDisks(ctx, count)
		for _, r := range rows {
			records = append(records, r)
		}
	case sample.KindUPS:
		var rows []sample.UpsSample
		rows, err = s.RecentUPS(ctx, count)
		for _, r := range rows {
			records = append(records, r)
		}
	default:
		return nil, &ReadError{Table: kind.String(), Err: fmt.Errorf("unknown kind")}
	}
	return records, err
}
