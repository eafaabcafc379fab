package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"macrodash/internal/model"
)

type fakeIndicatorStore struct {
	records []model.EconomicIndicator
	err     error
	start   time.Time
}

func (f *fakeIndicatorStore) GetSince(start time.Time) ([]model.EconomicIndicator, error) {
	f.start = start
	return f.records, f.err
}

type fakeStockStore struct {
	records []model.StockRecord
	err     error
	start   time.Time
}

func (f *fakeStockStore) GetSince(start time.Time) ([]model.StockRecord, error) {
	f.start = start
	return f.records, f.err
}

func performRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetEconomicIndicators(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rate := 4.33
	store := &fakeIndicatorStore{records: []model.EconomicIndicator{
		{Date: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), FederalFundsRate: &rate},
	}}
	h := NewMetricsHandler(store, &fakeStockStore{})

	r := gin.New()
	r.GET("/api/metrics/economic-indicators", h.GetEconomicIndicators)

	w := performRequest(r, http.MethodGet, "/api/metrics/economic-indicators?period=3M")

	assert.Equal(t, http.StatusOK, w.Code)

	var res []EconomicIndicatorResponse
	err := json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "2026-08-01", res[0].Date)
	assert.Equal(t, 4.33, *res[0].FederalFundsRate)
	assert.Equal(t, true, res[0].InflationRate == nil)

	// 3M maps to 90 days back.
	expected := time.Now().AddDate(0, 0, -90)
	assert.Equal(t, true, store.start.Sub(expected) < time.Minute)
}

func TestGetEconomicIndicatorsDefaultPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeIndicatorStore{}
	h := NewMetricsHandler(store, &fakeStockStore{})

	r := gin.New()
	r.GET("/api/metrics/economic-indicators", h.GetEconomicIndicators)

	w := performRequest(r, http.MethodGet, "/api/metrics/economic-indicators")

	assert.Equal(t, http.StatusOK, w.Code)

	expected := time.Now().AddDate(0, 0, -365)
	assert.Equal(t, true, store.start.Sub(expected) < time.Minute)
}

func TestGetEconomicIndicatorsUnknownPeriodFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeIndicatorStore{}
	h := NewMetricsHandler(store, &fakeStockStore{})

	r := gin.New()
	r.GET("/api/metrics/economic-indicators", h.GetEconomicIndicators)

	w := performRequest(r, http.MethodGet, "/api/metrics/economic-indicators?period=7D")

	assert.Equal(t, http.StatusOK, w.Code)

	expected := time.Now().AddDate(0, 0, -365)
	assert.Equal(t, true, store.start.Sub(expected) < time.Minute)
}

func TestGetEconomicIndicatorsStoreError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeIndicatorStore{err: errors.New("connection refused")}
	h := NewMetricsHandler(store, &fakeStockStore{})

	r := gin.New()
	r.GET("/api/metrics/economic-indicators", h.GetEconomicIndicators)

	w := performRequest(r, http.MethodGet, "/api/metrics/economic-indicators")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetStockData(t *testing.T) {
	gin.SetMode(gin.TestMode)

	closePrice := 182.75
	volume := int64(152000000)
	store := &fakeStockStore{records: []model.StockRecord{
		{Date: time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC), ClosePrice: &closePrice, Volume: &volume},
	}}
	h := NewMetricsHandler(&fakeIndicatorStore{}, store)

	r := gin.New()
	r.GET("/api/metrics/stock-data", h.GetStockData)

	w := performRequest(r, http.MethodGet, "/api/metrics/stock-data?period=1m")

	assert.Equal(t, http.StatusOK, w.Code)

	var res []StockDataResponse
	err := json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "2026-08-21", res[0].Date)
	assert.Equal(t, 182.75, *res[0].ClosePrice)
	assert.Equal(t, int64(152000000), *res[0].Volume)

	// Period is case-insensitive.
	expected := time.Now().AddDate(0, 0, -30)
	assert.Equal(t, true, store.start.Sub(expected) < time.Minute)
}

func TestGetStockDataEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewMetricsHandler(&fakeIndicatorStore{}, &fakeStockStore{})

	r := gin.New()
	r.GET("/api/metrics/stock-data", h.GetStockData)

	w := performRequest(r, http.MethodGet, "/api/metrics/stock-data")

	assert.Equal(t, http.StatusOK, w.Code)
	// An empty table serializes as [], not null.
	assert.Equal(t, "[]", w.Body.String())
}
