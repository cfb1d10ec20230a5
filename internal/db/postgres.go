// Package db wires the shared Postgres connection pool (the Event Store's
// backing storage, spec §6) using pgx/v5's pgxpool, the same driver
// internal/eventstore already assumes a pool interface over.
package db

import (
	"context"
	"fmt"
	"log"

	"socialcontext/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the process-wide connection pool, set by InitPostgres.
var Pool *pgxpool.Pool

var newPool = pgxpool.New

// BuildDSN renders cfg's discrete DB_* fields into a libpq connection URL.
func BuildDSN(cfg *config.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// InitPostgres opens Pool from cfg's DB_* fields. A connection failure is
// fatal at startup (spec §7: configuration errors are fatal at startup,
// non-fatal at reload).
func InitPostgres(ctx context.Context, cfg *config.Config) {
	dsn := BuildDSN(cfg)

	pool, err := newPool(ctx, dsn)
	if err != nil {
		log.Fatalf("db: connect to postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db: ping postgres: %v", err)
	}
	Pool = pool
	log.Println("db: connected to postgres")
}
