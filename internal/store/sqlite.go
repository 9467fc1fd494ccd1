package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"MarketLedger/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite persists rows to a SQLite database file.
type SQLite struct {
	db        *sql.DB
	mu        sync.Mutex
	batchSize int
	log       *zap.SugaredLogger
}

// NewSQLite opens (or creates) the SQLite database at dbPath.
func NewSQLite(dbPath string, batchSize int, log *zap.SugaredLogger) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.WrapStorage("open", fmt.Errorf("ensure db directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, model.WrapStorage("open", err)
	}

	// WAL lets readers run while a batch is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, model.WrapStorage("open", fmt.Errorf("set WAL mode: %w", err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, model.WrapStorage("open", fmt.Errorf("set busy timeout: %w", err))
	}

	log.Infow("SQLite store opened", "path", dbPath)
	return &SQLite{db: db, batchSize: batchSize, log: log}, nil
}

var selectColumns = "symbol, date, exchange, open, high, low, close, volume, " + strings.Join(updateColumns[6:20], ", ")

func (s *SQLite) Setup(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + TableName + ` (
			symbol           TEXT    NOT NULL,
			date             TEXT    NOT NULL,
			exchange         TEXT    NOT NULL DEFAULT '',
			open             REAL,
			high             REAL,
			low              REAL,
			close            REAL,
			volume           INTEGER,
			dma_10           REAL,
			dma_21           REAL,
			dma_50           REAL,
			dma_100          REAL,
			ema_10           REAL,
			ema_21           REAL,
			ema_50           REAL,
			ema_100          REAL,
			is_52_week_high  INTEGER NOT NULL DEFAULT 0,
			is_52_week_low   INTEGER NOT NULL DEFAULT 0,
			is_all_time_high INTEGER NOT NULL DEFAULT 0,
			is_all_time_low  INTEGER NOT NULL DEFAULT 0,
			t_score          REAL,
			f_score          INTEGER,
			updated_at       INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_data_date ON ` + TableName + `(date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return model.WrapStorage("setup", err)
		}
	}
	return nil
}

func (s *SQLite) Drop(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+TableName)
	return model.WrapStorage("drop", err)
}

func upsertSQL() string {
	cols := append([]string{"symbol", "date"}, updateColumns...)
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = c + " = excluded." + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(symbol, date) DO UPDATE SET %s",
		TableName, strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","),
		strings.Join(sets, ", "))
}

func (s *SQLite) Upsert(ctx context.Context, rows []model.StockRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := upsertSQL()
	written := 0
	for _, chunk := range chunks(rows, s.batchSize) {
		if err := s.writeChunk(ctx, query, chunk); err != nil {
			return written, model.WrapStorage("upsert", err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (s *SQLite) writeChunk(ctx context.Context, query string, rows []model.StockRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for i := range rows {
		rec := toRecord(&rows[i], time.Time{})
		_, err := stmt.ExecContext(ctx,
			rec.Symbol, model.DateKey(rec.Date), rec.Exchange,
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.DMA10, rec.DMA21, rec.DMA50, rec.DMA100,
			rec.EMA10, rec.EMA21, rec.EMA50, rec.EMA100,
			rec.Is52WeekHigh, rec.Is52WeekLow, rec.IsAllTimeHigh, rec.IsAllTimeLow,
			rec.TScore, rec.FScore, now,
		)
		if err != nil {
			return fmt.Errorf("row %s: %w", rows[i].Key(), err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) GetByKey(ctx context.Context, symbol string, date time.Time) (*model.StockRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM `+TableName+` WHERE symbol = ? AND date = ?`,
		symbol, model.DateKey(date))

	var rec record
	var day string
	err := row.Scan(
		&rec.Symbol, &day, &rec.Exchange,
		&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume,
		&rec.DMA10, &rec.DMA21, &rec.DMA50, &rec.DMA100,
		&rec.EMA10, &rec.EMA21, &rec.EMA50, &rec.EMA100,
		&rec.Is52WeekHigh, &rec.Is52WeekLow, &rec.IsAllTimeHigh, &rec.IsAllTimeLow,
		&rec.TScore, &rec.FScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapStorage("get", err)
	}
	if rec.Date, err = model.ParseDate(day); err != nil {
		return nil, model.WrapStorage("get", err)
	}
	return rec.toRow(), nil
}

func (s *SQLite) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM `+TableName+` ORDER BY symbol`)
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

func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT symbol), MIN(date), MAX(date) FROM `+TableName,
	).Scan(&st.RowCount, &st.SymbolCount, &first, &last)
	if err != nil {
		return st, model.WrapStorage("stats", err)
	}
	if first.Valid {
		if st.FirstDate, err = model.ParseDate(first.String); err != nil {
			return st, model.WrapStorage("stats", err)
		}
	}
	if last.Valid {
		if st.LastDate, err = model.ParseDate(last.String); err != nil {
			return st, model.WrapStorage("stats", err)
		}
	}
	return st, nil
}

func (s *SQLite) Close() error {
	s.log.Infow("Closing SQLite store")
	return model.WrapStorage("close", s.db.Close())
}
