package handler

type KPIMetric struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value"`
	Unit           string   `json:"unit"`
	Trend          *float64 `json:"trend"`
	TrendDirection string   `json:"trend_direction"`
}

type DashboardSummaryResponse struct {
	LastUpdated      string      `json:"last_updated"`
	KPIs             []KPIMetric `json:"kpis"`
	LatestStockPrice *float64    `json:"latest_stock_price"`
	MarketCap        *float64    `json:"market_cap"`
}

type EconomicIndicatorResponse struct {
	Date             string   `json:"date"`
	GlobalGDPGrowth  *float64 `json:"global_gdp_growth"`
	USGDPGrowth      *float64 `json:"us_gdp_growth"`
	FederalFundsRate *float64 `json:"federal_funds_rate"`
	InflationRate    *float64 `json:"inflation_rate"`
}

type StockDataResponse struct {
	Date       string   `json:"date"`
	OpenPrice  *float64 `json:"open_price"`
	ClosePrice *float64 `json:"close_price"`
	HighPrice  *float64 `json:"high_price"`
	LowPrice   *float64 `json:"low_price"`
	Volume     *int64   `json:"volume"`
	MarketCap  *float64 `json:"market_cap"`
}

type UpdateRequest struct {
	Force bool `json:"force"`
}

type SourceErrorResponse struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type UpdateResponse struct {
	Status          string                `json:"status"`
	Message         string                `json:"message"`
	DurationSeconds float64               `json:"duration_seconds"`
	Timestamp       string                `json:"timestamp"`
	SourcesUpdated  []string              `json:"sources_updated"`
	Errors          []SourceErrorResponse `json:"errors"`
}

type StatusResponse struct {
	LastUpdate          *string `json:"last_update"`
	LastUpdateStatus    string  `json:"last_update_status,omitempty"`
	UpdateRunning       bool    `json:"update_running"`
	SchedulerRunning    bool    `json:"scheduler_running"`
	DatabaseStatus      string  `json:"database_status"`
	NextScheduledUpdate *string `json:"next_scheduled_update"`
}
