package probe

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/psantana5/waitgate/internal/config"
)

// PostgresProber checks that a Postgres server accepts a connection
// and answers a ping with the given credentials.
type PostgresProber struct {
	dsn     string
	target  string
	timeout time.Duration
}

func NewPostgresProber(dsn string, timeout time.Duration) *PostgresProber {
	return &PostgresProber{
		dsn:     dsn,
		target:  config.RedactDSN(dsn),
		timeout: timeout,
	}
}

func (p *PostgresProber) Target() string {
	return p.target
}

func (p *PostgresProber) Probe(ctx context.Context) Result {
	res := newResult(p.target)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.ping(ctx)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}

	res.OK = true
	return res
}

func (p *PostgresProber) ping(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
