// Package dbpool owns the PostgreSQL connection pool shared by the stores and
// the notification bridge.
package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// listenerConns is the number of connections held back for LISTEN.
const listenerConns = 1

// Pool is the narrow view of pgxpool.Pool the service uses. Stores work
// inside transactions; Exec and QueryRow serve probes and tests.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL and verifies the connection. maxConns
// bounds the query connections.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	params := cfg.ConnConfig.RuntimeParams
	params["application_name"] = "caseqc"
	params["statement_timeout"] = "30000"
	// A transition holds a row lock for one short transaction; anything
	// waiting longer than this is stuck.
	params["lock_timeout"] = "10000"

	cfg.MaxConns = maxConns + listenerConns
	cfg.MinConns = min(2, cfg.MaxConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	p := &Pool{pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return p, nil
}

// Acquire checks out a dedicated connection. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return p.pool.Acquire(ctx)
}

// Begin starts a read-write transaction.
func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

// BeginTx starts a transaction with the given options.
func (p *Pool) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) { //nolint:gocritic // mirrors pgxpool.
	return p.pool.BeginTx(ctx, opts)
}

// Exec runs a statement outside any transaction.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// QueryRow runs a single-row query outside any transaction.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// HealthCheck runs a trivial query so readiness covers query execution, not
// just connection setup.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var one int
	if err := p.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}

	return nil
}

// RegisterMetrics exposes pool occupancy as gauges on reg.
func (p *Pool) RegisterMetrics(reg prometheus.Registerer) error {
	gauges := map[string]func(*pgxpool.Stat) int32{
		"caseqc_db_pool_acquired_conns": (*pgxpool.Stat).AcquiredConns,
		"caseqc_db_pool_idle_conns":     (*pgxpool.Stat).IdleConns,
		"caseqc_db_pool_total_conns":    (*pgxpool.Stat).TotalConns,
		"caseqc_db_pool_max_conns":      (*pgxpool.Stat).MaxConns,
	}

	for name, read := range gauges {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: "Connection pool statistic " + name,
		}, func() float64 { return float64(read(p.pool.Stat())) })

		if err := reg.Register(g); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}

	return nil
}

// Close closes every connection in the pool.
func (p *Pool) Close() {
	p.pool.Close()
}
