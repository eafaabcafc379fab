package model

import "time"

const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"

	TriggerAutomatic = "automatic"
	TriggerManual    = "manual"

	TableEconomicIndicators = "economic_indicators"
	TableStockData          = "stock_data"
)

// EconomicIndicator holds one day's worth of macro indicators. Every metric
// is nullable because the upstream series publish at different frequencies.
type EconomicIndicator struct {
	ID               int64
	Date             time.Time
	GlobalGDPGrowth  *float64
	USGDPGrowth      *float64
	FederalFundsRate *float64
	InflationRate    *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type StockRecord struct {
	ID         int64
	Date       time.Time
	OpenPrice  *float64
	ClosePrice *float64
	HighPrice  *float64
	LowPrice   *float64
	Volume     *int64
	MarketCap  *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SourceError is one per-source failure recorded in an update log entry.
type SourceError struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// UpdateLog is the append-only audit record of one aggregation run.
type UpdateLog struct {
	ID              int64
	Timestamp       time.Time
	TriggerKind     string
	Status          string
	SourcesUpdated  []string
	Errors          []SourceError
	DurationSeconds float64
}
