package store

import (
	"context"
	"fmt"

	"dcollector/internal/sample"
)

var tableDDL = map[sample.Kind]string{
	sample.KindSystem: `CREATE TABLE IF NOT EXISTS sys_stats (
	time TIMESTAMPTZ NOT NULL PRIMARY KEY,
	name TEXT,
	kernel_version TEXT,
	os_version TEXT,
	host_name TEXT,
	processors INTEGER,
	total_memory BIGINT,
	used_memory BIGINT,
	total_swap BIGINT,
	used_swap BIGINT,
	load_one DOUBLE PRECISION,
	load_five DOUBLE PRECISION,
	load_fifteen DOUBLE PRECISION,
	cpu_usage DOUBLE PRECISION
)`,
	sample.KindProcess: `CREATE TABLE IF NOT EXISTS proc_stats (
	time TIMESTAMPTZ NOT NULL PRIMARY KEY,
	start_time TIMESTAMPTZ,
	exe TEXT,
	cmd TEXT,
	name TEXT,
	disk_read BIGINT,
	disk_read_total BIGINT,
	disk_written BIGINT,
	disk_written_total BIGINT,
	cpu_usage DOUBLE PRECISION,
	rss BIGINT,
	status TEXT,
	host_name TEXT
)`,
	sample.KindDisk: `CREATE TABLE IF NOT EXISTS disk_stats (
	time TIMESTAMPTZ NOT NULL PRIMARY KEY,
	name TEXT,
	temperature DOUBLE PRECISION,
	crc_errors BIGINT,
	seek_time BIGINT,
	seek_error_rate BIGINT,
	throughput BIGINT,
	read_error_rate BIGINT,
	host_name TEXT
)`,
	sample.KindUPS: `CREATE TABLE IF NOT EXISTS ups_stats (
	time TIMESTAMPTZ NOT NULL PRIMARY KEY,
	model TEXT,
	status TEXT,
	load INTEGER,
	input_frequency DOUBLE PRECISION,
	input_voltage DOUBLE PRECISION,
	battery_charge INTEGER,
	battery_voltage DOUBLE PRECISION
)`,
}

// EnsureSchema creates any missing table. With Timescale enabled every
// table is also turned into a hypertable on its time column.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, kind := range sample.Kinds {
		if _, err := s.db.ExecContext(ctx, tableDDL[kind]); err != nil {
			return &WriteError{Table: kind.Table(), Err: fmt.Errorf("create table: %w", err)}
		}
		if !s.opts.Timescale {
			continue
		}
		if _, err := s.db.ExecContext(ctx, hypertableQuery, kind.Table()); err != nil {
			return &WriteError{Table: kind.Table(), Err: fmt.Errorf("create hypertable: %w", err)}
		}
	}
	s.logger.Infof("schema ready (timescale=%t)", s.opts.Timescale)
	return nil
}

const hypertableQuery = `SELECT create_hypertable($1::regclass, 'time', if_not_exists => TRUE)`
