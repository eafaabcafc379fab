package repository

import (
	"database/sql"
	"fmt"
	"time"

	"macrodash/internal/model"
)

// Column names accepted by LatestNonNull.
const (
	ColumnGlobalGDPGrowth  = "global_gdp_growth"
	ColumnUSGDPGrowth      = "us_gdp_growth"
	ColumnFederalFundsRate = "federal_funds_rate"
	ColumnInflationRate    = "inflation_rate"
)

type IndicatorRepository struct {
	db *sql.DB
}

func NewIndicatorRepository(db *sql.DB) *IndicatorRepository {
	return &IndicatorRepository{db: db}
}

// UpsertBatch writes all records in one transaction keyed on date. A null
// incoming field never clears a stored value; rows are never deleted.
func (r *IndicatorRepository) UpsertBatch(records []model.EconomicIndicator) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO economic_indicators(date, global_gdp_growth, us_gdp_growth, federal_funds_rate, inflation_rate)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			global_gdp_growth = COALESCE(EXCLUDED.global_gdp_growth, economic_indicators.global_gdp_growth),
			us_gdp_growth = COALESCE(EXCLUDED.us_gdp_growth, economic_indicators.us_gdp_growth),
			federal_funds_rate = COALESCE(EXCLUDED.federal_funds_rate, economic_indicators.federal_funds_rate),
			inflation_rate = COALESCE(EXCLUDED.inflation_rate, economic_indicators.inflation_rate),
			updated_at = now()
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(rec.Date, rec.GlobalGDPGrowth, rec.USGDPGrowth, rec.FederalFundsRate, rec.InflationRate)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *IndicatorRepository) GetSince(start time.Time) ([]model.EconomicIndicator, error) {
	rows, err := r.db.Query(`
		SELECT id, date, global_gdp_growth, us_gdp_growth, federal_funds_rate, inflation_rate, created_at, updated_at
		FROM economic_indicators
		WHERE date >= $1
		ORDER BY date
	`, start)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.EconomicIndicator
	for rows.Next() {
		var rec model.EconomicIndicator
		err := rows.Scan(&rec.ID, &rec.Date, &rec.GlobalGDPGrowth, &rec.USGDPGrowth, &rec.FederalFundsRate, &rec.InflationRate, &rec.CreatedAt, &rec.UpdatedAt)
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

// LatestNonNull returns the two most recent records where the given column
// has a value, newest first. Series publish at different frequencies, so the
// dashboard resolves each KPI independently.
func (r *IndicatorRepository) LatestNonNull(column string) ([]model.EconomicIndicator, error) {
	switch column {
	case ColumnGlobalGDPGrowth, ColumnUSGDPGrowth, ColumnFederalFundsRate, ColumnInflationRate:
	default:
		return nil, fmt.Errorf("unknown indicator column %q", column)
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT id, date, global_gdp_growth, us_gdp_growth, federal_funds_rate, inflation_rate, created_at, updated_at
		FROM economic_indicators
		WHERE %s IS NOT NULL
		ORDER BY date DESC
		LIMIT 2
	`, column))

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.EconomicIndicator
	for rows.Next() {
		var rec model.EconomicIndicator
		err := rows.Scan(&rec.ID, &rec.Date, &rec.GlobalGDPGrowth, &rec.USGDPGrowth, &rec.FederalFundsRate, &rec.InflationRate, &rec.CreatedAt, &rec.UpdatedAt)
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

func (r *IndicatorRepository) Count() (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM economic_indicators`).Scan(&total)
	return total, err
}
