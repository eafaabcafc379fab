package repository

import (
	"database/sql"
	"time"

	"macrodash/internal/model"
)

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

// UpsertBatch writes all records in one transaction keyed on date.
func (r *StockRepository) UpsertBatch(records []model.StockRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stock_data(date, open_price, close_price, high_price, low_price, volume, market_cap)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			open_price = COALESCE(EXCLUDED.open_price, stock_data.open_price),
			close_price = COALESCE(EXCLUDED.close_price, stock_data.close_price),
			high_price = COALESCE(EXCLUDED.high_price, stock_data.high_price),
			low_price = COALESCE(EXCLUDED.low_price, stock_data.low_price),
			volume = COALESCE(EXCLUDED.volume, stock_data.volume),
			market_cap = COALESCE(EXCLUDED.market_cap, stock_data.market_cap),
			updated_at = now()
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(rec.Date, rec.OpenPrice, rec.ClosePrice, rec.HighPrice, rec.LowPrice, rec.Volume, rec.MarketCap)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *StockRepository) GetSince(start time.Time) ([]model.StockRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, date, open_price, close_price, high_price, low_price, volume, market_cap, created_at, updated_at
		FROM stock_data
		WHERE date >= $1
		ORDER BY date
	`, start)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.StockRecord
	for rows.Next() {
		var rec model.StockRecord
		err := rows.Scan(&rec.ID, &rec.Date, &rec.OpenPrice, &rec.ClosePrice, &rec.HighPrice, &rec.LowPrice, &rec.Volume, &rec.MarketCap, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// GetLatest returns the two most recent trading days, newest first.
func (r *StockRepository) GetLatest() ([]model.StockRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, date, open_price, close_price, high_price, low_price, volume, market_cap, created_at, updated_at
		FROM stock_data
		ORDER BY date DESC
		LIMIT 2
	`)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.StockRecord
	for rows.Next() {
		var rec model.StockRecord
		err := rows.Scan(&rec.ID, &rec.Date, &rec.OpenPrice, &rec.ClosePrice, &rec.HighPrice, &rec.LowPrice, &rec.Volume, &rec.MarketCap, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *StockRepository) Count() (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM stock_data`).Scan(&total)
	return total, err
}
