package handler

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	indicators IndicatorStore
	stocks     StockStore
}

func NewExportHandler(indicators IndicatorStore, stocks StockStore) *ExportHandler {
	return &ExportHandler{indicators: indicators, stocks: stocks}
}

// ExportCSV streams both tables as one two-section CSV document.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	indicators, err := h.indicators.GetSince(time.Time{})
	if err != nil {
		slog.Error("error fetching economic indicators for export", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stocks, err := h.stocks.GetSince(time.Time{})
	if err != nil {
		slog.Error("error fetching stock data for export", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=macrodash_%s.csv", time.Now().Format("20060102")))

	w := csv.NewWriter(c.Writer)

	w.Write([]string{"ECONOMIC INDICATORS"})
	w.Write([]string{"Date", "Global GDP Growth", "US GDP Growth", "Federal Funds Rate", "Inflation Rate"})
	for _, rec := range indicators {
		w.Write([]string{
			rec.Date.Format("2006-01-02"),
			formatFloat(rec.GlobalGDPGrowth),
			formatFloat(rec.USGDPGrowth),
			formatFloat(rec.FederalFundsRate),
			formatFloat(rec.InflationRate),
		})
	}

	w.Write([]string{})

	w.Write([]string{"STOCK DATA"})
	w.Write([]string{"Date", "Open", "Close", "High", "Low", "Volume", "Market Cap"})
	for _, rec := range stocks {
		w.Write([]string{
			rec.Date.Format("2006-01-02"),
			formatFloat(rec.OpenPrice),
			formatFloat(rec.ClosePrice),
			formatFloat(rec.HighPrice),
			formatFloat(rec.LowPrice),
			formatInt(rec.Volume),
			formatFloat(rec.MarketCap),
		})
	}

	w.Flush()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
