package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketLedger/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Postgres persists rows to PostgreSQL through GORM.
type Postgres struct {
	db        *gorm.DB
	batchSize int
	log       *zap.SugaredLogger
}

// PostgresDSN builds a key/value connection string.
func PostgresDSN(host string, port int, dbname, user, password, sslmode string) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		host, port, dbname, user, password, sslmode)
}

// NewPostgres connects using dsn.
func NewPostgres(ctx context.Context, dsn string, batchSize int, log *zap.SugaredLogger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, model.WrapStorage("open", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, model.WrapStorage("open", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, model.WrapStorage("open", fmt.Errorf("ping: %w", err))
	}

	log.Infow("PostgreSQL store opened")
	return &Postgres{db: db, batchSize: batchSize, log: log}, nil
}

func (p *Postgres) Setup(ctx context.Context) error {
	return model.WrapStorage("setup", p.db.WithContext(ctx).AutoMigrate(&record{}))
}

func (p *Postgres) Drop(ctx context.Context) error {
	return model.WrapStorage("drop", p.db.WithContext(ctx).Migrator().DropTable(&record{}))
}

func (p *Postgres) Upsert(ctx context.Context, rows []model.StockRow) (int, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}
	written := 0
	for _, chunk := range chunks(rows, p.batchSize) {
		now := time.Now().UTC()
		recs := make([]record, len(chunk))
		for i := range chunk {
			recs[i] = toRecord(&chunk[i], now)
		}
		err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(onConflict).Create(&recs).Error
		})
		if err != nil {
			return written, model.WrapStorage("upsert", err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (p *Postgres) GetByKey(ctx context.Context, symbol string, date time.Time) (*model.StockRow, error) {
	var rec record
	err := p.db.WithContext(ctx).
		Where("symbol = ? AND date = ?", symbol, model.DateOf(date)).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapStorage("get", err)
	}
	return rec.toRow(), nil
}

func (p *Postgres) ListSymbols(ctx context.Context) ([]string, error) {
	out := []string{}
	err := p.db.WithContext(ctx).Model(&record{}).
		Distinct("symbol").Order("symbol").Pluck("symbol", &out).Error
	return out, model.WrapStorage("list symbols", err)
}

func (p *Postgres) Stats(ctx context.Context) (model.Stats, error) {
	var res struct {
		RowCount    int64
		SymbolCount int64
		FirstDate   *time.Time
		LastDate    *time.Time
	}
	err := p.db.WithContext(ctx).Raw(`SELECT COUNT(*) AS row_count, COUNT(DISTINCT symbol) AS symbol_count,
		MIN(date) AS first_date, MAX(date) AS last_date FROM ` + TableName).Scan(&res).Error
	if err != nil {
		return model.Stats{}, model.WrapStorage("stats", err)
	}
	st := model.Stats{RowCount: res.RowCount, SymbolCount: res.SymbolCount}
	if res.FirstDate != nil {
		st.FirstDate = model.DateOf(*res.FirstDate)
	}
	if res.LastDate != nil {
		st.LastDate = model.DateOf(*res.LastDate)
	}
	return st, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return model.WrapStorage("close", err)
	}
	p.log.Infow("Closing PostgreSQL store")
	return model.WrapStorage("close", sqlDB.Close())
}
