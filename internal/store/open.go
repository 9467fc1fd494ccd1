package store

import (
	"context"
	"fmt"

	"MarketLedger/internal/config"

	"go.uber.org/zap"
)

// Open builds the Gateway selected by cfg.Driver. The caller owns it and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.SugaredLogger) (Gateway, error) {
	var (
		gw  Gateway
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		var s *SQLite
		s, err = NewSQLite(cfg.SQLitePath, cfg.BatchSize, log)
		gw = s
	case "postgres":
		var p *Postgres
		dsn := PostgresDSN(cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, cfg.SSLMode)
		p, err = NewPostgres(ctx, dsn, cfg.BatchSize, log)
		gw = p
	case "clickhouse":
		var c *ClickHouse
		c, err = NewClickHouse(ctx, ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.Name,
			Username: cfg.User,
			Password: cfg.Password,
		}, cfg.BatchSize, log)
		gw = c
	case "memory":
		gw = NewMemory()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return gw, nil
}
