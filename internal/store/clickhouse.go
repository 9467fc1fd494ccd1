package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"MarketLedger/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// ReplacingMergeTree keeps the row with the newest updated_at per (symbol, date);
// reads use FINAL so replaced versions are never returned.
const clickhouseTableSQL = `
CREATE TABLE IF NOT EXISTS ` + TableName + ` (
    symbol           String,
    date             Date,
    exchange         String,
    open             Float64,
    high             Float64,
    low              Float64,
    close            Float64,
    volume           Int64,
    dma_10           Nullable(Float64),
    dma_21           Nullable(Float64),
    dma_50           Nullable(Float64),
    dma_100          Nullable(Float64),
    ema_10           Nullable(Float64),
    ema_21           Nullable(Float64),
    ema_50           Nullable(Float64),
    ema_100          Nullable(Float64),
    is_52_week_high  Bool,
    is_52_week_low   Bool,
    is_all_time_high Bool,
    is_all_time_low  Bool,
    t_score          Nullable(Float64),
    f_score          Nullable(Int64),
    updated_at       DateTime64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (symbol, date)
`

// ClickHouse persists rows to a ClickHouse table.
type ClickHouse struct {
	conn      driver.Conn
	batchSize int
	log       *zap.SugaredLogger
}

// ClickHouseOptions are the connection parameters.
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

// NewClickHouse connects over the native protocol.
func NewClickHouse(ctx context.Context, opts ClickHouseOptions, batchSize int, log *zap.SugaredLogger) (*ClickHouse, error) {
	if opts.Database == "" {
		opts.Database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Protocol: clickhouse.Native,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, model.WrapStorage("open", fmt.Errorf("connect to clickhouse: %w", err))
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, model.WrapStorage("open", fmt.Errorf("ping: %w", err))
	}

	log.Infow("ClickHouse store opened", "addr", opts.Addr, "database", opts.Database)
	return &ClickHouse{conn: conn, batchSize: batchSize, log: log}, nil
}

func (c *ClickHouse) Setup(ctx context.Context) error {
	return model.WrapStorage("setup", c.conn.Exec(ctx, clickhouseTableSQL))
}

func (c *ClickHouse) Drop(ctx context.Context) error {
	return model.WrapStorage("drop", c.conn.Exec(ctx, "DROP TABLE IF EXISTS "+TableName))
}

func (c *ClickHouse) Upsert(ctx context.Context, rows []model.StockRow) (int, error) {
	written := 0
	for _, chunk := range chunks(rows, c.batchSize) {
		if err := c.sendBatch(ctx, chunk); err != nil {
			return written, model.WrapStorage("upsert", err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (c *ClickHouse) sendBatch(ctx context.Context, rows []model.StockRow) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+TableName)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range rows {
		rec := toRecord(&rows[i], now)
		if err := batch.AppendStruct(&rec); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("row %s: %w", rows[i].Key(), err)
		}
	}
	return batch.Send()
}

func (c *ClickHouse) GetByKey(ctx context.Context, symbol string, date time.Time) (*model.StockRow, error) {
	var rec record
	err := c.conn.QueryRow(ctx,
		`SELECT * FROM `+TableName+` FINAL WHERE symbol = ? AND date = ?`,
		symbol, model.DateKey(date)).ScanStruct(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapStorage("get", err)
	}
	return rec.toRow(), nil
}

func (c *ClickHouse) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := c.conn.Query(ctx, `SELECT DISTINCT symbol FROM `+TableName+` ORDER BY symbol`)
	if err != nil {
		return nil, model.WrapStorage("list symbols", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, model.WrapStorage("list symbols", err)
		}
		out = append(out, sym)
	}
	return out, model.WrapStorage("list symbols", rows.Err())
}

func (c *ClickHouse) Stats(ctx context.Context) (model.Stats, error) {
	var (
		rowCount, symbols uint64
		first, last       time.Time
	)
	err := c.conn.QueryRow(ctx,
		`SELECT count(), uniqExact(symbol), min(date), max(date) FROM `+TableName+` FINAL`,
	).Scan(&rowCount, &symbols, &first, &last)
	if err != nil {
		return model.Stats{}, model.WrapStorage("stats", err)
	}
	st := model.Stats{RowCount: int64(rowCount), SymbolCount: int64(symbols)}
	if rowCount > 0 {
		st.FirstDate = model.DateOf(first)
		st.LastDate = model.DateOf(last)
	}
	return st, nil
}

func (c *ClickHouse) Close() error {
	c.log.Infow("Closing ClickHouse store")
	return model.WrapStorage("close", c.conn.Close())
}
