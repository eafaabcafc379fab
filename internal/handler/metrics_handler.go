package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"macrodash/internal/model"
)

type IndicatorStore interface {
	GetSince(start time.Time) ([]model.EconomicIndicator, error)
}

type StockStore interface {
	GetSince(start time.Time) ([]model.StockRecord, error)
}

type MetricsHandler struct {
	indicators IndicatorStore
	stocks     StockStore
}

func NewMetricsHandler(indicators IndicatorStore, stocks StockStore) *MetricsHandler {
	return &MetricsHandler{indicators: indicators, stocks: stocks}
}

func (h *MetricsHandler) GetEconomicIndicators(c *gin.Context) {
	start := periodStart(c.DefaultQuery("period", "1Y"))

	records, err := h.indicators.GetSince(start)
	if err != nil {
		slog.Error("error fetching economic indicators", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := make([]EconomicIndicatorResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, EconomicIndicatorResponse{
			Date:             rec.Date.Format("2006-01-02"),
			GlobalGDPGrowth:  rec.GlobalGDPGrowth,
			USGDPGrowth:      rec.USGDPGrowth,
			FederalFundsRate: rec.FederalFundsRate,
			InflationRate:    rec.InflationRate,
		})
	}

	c.JSON(http.StatusOK, res)
}

func (h *MetricsHandler) GetStockData(c *gin.Context) {
	start := periodStart(c.DefaultQuery("period", "1Y"))

	records, err := h.stocks.GetSince(start)
	if err != nil {
		slog.Error("error fetching stock data", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := make([]StockDataResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, StockDataResponse{
			Date:       rec.Date.Format("2006-01-02"),
			OpenPrice:  rec.OpenPrice,
			ClosePrice: rec.ClosePrice,
			HighPrice:  rec.HighPrice,
			LowPrice:   rec.LowPrice,
			Volume:     rec.Volume,
			MarketCap:  rec.MarketCap,
		})
	}

	c.JSON(http.StatusOK, res)
}

var periodDays = map[string]int{
	"1M":  30,
	"3M":  90,
	"6M":  180,
	"1Y":  365,
	"2Y":  730,
	"ALL": 3650,
}

func periodStart(period string) time.Time {
	days, ok := periodDays[strings.ToUpper(period)]
	if !ok {
		slog.Warn("unknown period, using default", "period", period)
		days = 365
	}
	return time.Now().AddDate(0, 0, -days)
}
