package handler

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"macrodash/internal/model"
	"macrodash/internal/repository"
)

type DashboardIndicatorStore interface {
	LatestNonNull(column string) ([]model.EconomicIndicator, error)
}

type DashboardStockStore interface {
	GetLatest() ([]model.StockRecord, error)
}

type UpdateLogStore interface {
	GetLatest() (*model.UpdateLog, error)
}

type DashboardHandler struct {
	indicators DashboardIndicatorStore
	stocks     DashboardStockStore
	logs       UpdateLogStore
}

func NewDashboardHandler(indicators DashboardIndicatorStore, stocks DashboardStockStore, logs UpdateLogStore) *DashboardHandler {
	return &DashboardHandler{indicators: indicators, stocks: stocks, logs: logs}
}

// Each KPI resolves its latest value independently because the underlying
// series publish at different frequencies.
var indicatorKPIs = []struct {
	name   string
	unit   string
	column string
	value  func(model.EconomicIndicator) *float64
}{
	{"Global GDP Growth", "%", repository.ColumnGlobalGDPGrowth, func(r model.EconomicIndicator) *float64 { return r.GlobalGDPGrowth }},
	{"US GDP Growth", "%", repository.ColumnUSGDPGrowth, func(r model.EconomicIndicator) *float64 { return r.USGDPGrowth }},
	{"Federal Funds Rate", "%", repository.ColumnFederalFundsRate, func(r model.EconomicIndicator) *float64 { return r.FederalFundsRate }},
	{"Inflation Rate", "%", repository.ColumnInflationRate, func(r model.EconomicIndicator) *float64 { return r.InflationRate }},
}

func (h *DashboardHandler) GetDashboardSummary(c *gin.Context) {
	kpis := make([]KPIMetric, 0, len(indicatorKPIs)+2)

	for _, kpi := range indicatorKPIs {
		records, err := h.indicators.LatestNonNull(kpi.column)
		if err != nil {
			slog.Error("error fetching indicator kpi", "column", kpi.column, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if len(records) == 0 {
			continue
		}

		current := kpi.value(records[0])
		var previous *float64
		if len(records) > 1 {
			previous = kpi.value(records[1])
		}

		trend, direction := calculateTrend(current, previous)
		kpis = append(kpis, KPIMetric{
			Name:           kpi.name,
			Value:          current,
			Unit:           kpi.unit,
			Trend:          trend,
			TrendDirection: direction,
		})
	}

	stocks, err := h.stocks.GetLatest()
	if err != nil {
		slog.Error("error fetching latest stock data", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var latestPrice, marketCap *float64
	if len(stocks) > 0 {
		latestPrice = stocks[0].ClosePrice
		marketCap = stocks[0].MarketCap

		var prevPrice, prevCap *float64
		if len(stocks) > 1 {
			prevPrice = stocks[1].ClosePrice
			prevCap = stocks[1].MarketCap
		}

		priceTrend, priceDir := calculateTrend(latestPrice, prevPrice)
		kpis = append(kpis, KPIMetric{Name: "Stock Price", Value: latestPrice, Unit: "$", Trend: priceTrend, TrendDirection: priceDir})

		capTrend, capDir := calculateTrend(marketCap, prevCap)
		kpis = append(kpis, KPIMetric{Name: "Market Cap", Value: marketCap, Unit: "$B", Trend: capTrend, TrendDirection: capDir})
	}

	lastUpdated := time.Now().UTC()
	if entry, err := h.logs.GetLatest(); err != nil {
		slog.Error("error fetching last update log", "error", err)
	} else if entry != nil {
		lastUpdated = entry.Timestamp.UTC()
	}

	c.JSON(http.StatusOK, DashboardSummaryResponse{
		LastUpdated:      lastUpdated.Format(time.RFC3339),
		KPIs:             kpis,
		LatestStockPrice: latestPrice,
		MarketCap:        marketCap,
	})
}

func calculateTrend(current, previous *float64) (*float64, string) {
	if current == nil || previous == nil || *previous == 0 {
		return nil, "neutral"
	}

	pct := math.Round((*current-*previous)/(*previous)*100*100) / 100

	direction := "neutral"
	switch {
	case pct > 0:
		direction = "up"
	case pct < 0:
		direction = "down"
	}

	return &pct, direction
}
