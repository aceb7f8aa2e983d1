package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	URL             string `split_words:"true" required:"true"`
	MaxConns        int32  `split_words:"true" default:"25"`
	MinConns        int32  `split_words:"true" default:"5"`
	MaxConnLifetime string `split_words:"true" default:"1h"`
	MaxConnIdleTime string `split_words:"true" default:"30m"`
}

// New creates a connection pool and verifies connectivity.
func (c *Config) New(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = c.MaxConns
	poolConfig.MinConns = c.MinConns
	if d, err := time.ParseDuration(c.MaxConnLifetime); err == nil {
		poolConfig.MaxConnLifetime = d
	}
	if d, err := time.ParseDuration(c.MaxConnIdleTime); err == nil {
		poolConfig.MaxConnIdleTime = d
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
