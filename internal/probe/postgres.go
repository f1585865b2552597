package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// PostgresProbe verifies the database with an authenticated trivial query.
// Success requires the query to round-trip, not just the TCP connect.
type PostgresProbe struct {
	service string
	dsn     string
	timeout time.Duration
}

// NewPostgresProbe builds a probe for the given service name and DSN.
func NewPostgresProbe(service, dsn string) *PostgresProbe {
	return &PostgresProbe{service: service, dsn: dsn, timeout: DefaultTimeout}
}

// Service implements Prober.
func (p *PostgresProbe) Service() string { return p.service }

// Probe implements Prober.
func (p *PostgresProbe) Probe(ctx context.Context) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("connect: %v", err))
	}
	defer conn.Close(ctx)

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("test query: %v", err))
	}
	if one != 1 {
		return newResult(p.service, start, false, fmt.Sprintf("test query returned %d", one))
	}

	detail := "test query ok"
	var connections int
	if err := conn.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&connections); err == nil {
		detail = fmt.Sprintf("test query ok, %d connections", connections)
	}
	return newResult(p.service, start, true, detail)
}
