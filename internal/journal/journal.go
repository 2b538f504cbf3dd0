// Package journal keeps an append-only SQLite record of paper trades.
// It is an audit trail only; position state is never restored from it.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"paper_trading/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeRecord is one row per trade event.
type TradeRecord struct {
	ID        uint            `gorm:"primaryKey"`
	RunID     string          `gorm:"size:36;index"`
	BotID     string          `gorm:"size:64;index"`
	Symbol    string          `gorm:"size:32"`
	Kind      string          `gorm:"size:8"`
	Price     decimal.Decimal `gorm:"type:text"`
	Profit    decimal.Decimal `gorm:"type:text"`
	Balance   decimal.Decimal `gorm:"type:text"`
	Reason    string          `gorm:"size:32"`
	TradedAt  time.Time       `gorm:"index"`
	CreatedAt time.Time
}

func (TradeRecord) TableName() string { return "paper_trades" }

// Journal writes TradeRecords for a single run.
type Journal struct {
	db    *gorm.DB
	runID string
	botID string
}

// Open creates or opens the database at path and tags every row with a
// fresh run id.
func Open(path, botID string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	return &Journal{db: db, runID: uuid.NewString(), botID: botID}, nil
}

// RunID identifies this process run in the table.
func (j *Journal) RunID() string { return j.runID }

// Record appends ev.
func (j *Journal) Record(ctx context.Context, ev models.TradeEvent) error {
	rec := TradeRecord{
		RunID:    j.runID,
		BotID:    j.botID,
		Symbol:   ev.Symbol,
		Kind:     string(ev.Kind),
		Price:    decimal.NewFromFloat(ev.Price),
		Reason:   string(ev.Reason),
		TradedAt: ev.Time.UTC(),
	}
	if ev.Kind == models.Sell {
		rec.Profit = decimal.NewFromFloat(ev.Profit)
		rec.Balance = decimal.NewFromFloat(ev.BalanceAfter)
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// RealizedPnL sums SELL profits recorded during this run.
func (j *Journal) RealizedPnL(ctx context.Context) (decimal.Decimal, error) {
	var rows []TradeRecord
	err := j.db.WithContext(ctx).
		Select("profit").
		Where("run_id = ? AND kind = ?", j.runID, string(models.Sell)).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Profit)
	}
	return total, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
