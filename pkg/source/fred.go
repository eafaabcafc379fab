package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"macrodash/internal/model"
)

const fredBaseURL = "https://api.stlouisfed.org/fred"

const (
	seriesFederalFunds = "FEDFUNDS"
	seriesUSGDPGrowth  = "A191RL1Q225SBEA"
	seriesCPI          = "CPIAUCSL"
)

// FREDClient fetches federal funds rate, US real GDP growth and CPI series
// from the St. Louis Fed API and merges them into per-date indicator records.
type FREDClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewFREDClient(apiKey string) *FREDClient {
	return &FREDClient{
		apiKey:     apiKey,
		baseURL:    fredBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *FREDClient) Name() string  { return "fred" }
func (c *FREDClient) Table() string { return model.TableEconomicIndicators }

func (c *FREDClient) Fetch(ctx context.Context, req FetchRequest) (*Result, error) {
	fedRates, err := c.observations(ctx, seriesFederalFunds, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	gdp, err := c.observations(ctx, seriesUSGDPGrowth, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	// CPI needs an extra 13 months of history so the first point inside the
	// requested range has a year-ago value to compare against.
	cpi, err := c.observations(ctx, seriesCPI, req.Start.AddDate(-1, -1, 0), req.End)
	if err != nil {
		return nil, err
	}
	inflation := cpiYoYChange(cpi)

	byDate := make(map[time.Time]*model.EconomicIndicator)
	record := func(date time.Time) *model.EconomicIndicator {
		if rec, ok := byDate[date]; ok {
			return rec
		}
		rec := &model.EconomicIndicator{Date: date}
		byDate[date] = rec
		return rec
	}

	for _, obs := range fedRates {
		if date, value, ok := parseObservation(obs); ok {
			v := value
			record(date).FederalFundsRate = &v
		}
	}

	for _, obs := range gdp {
		if date, value, ok := parseObservation(obs); ok {
			v := value
			record(date).USGDPGrowth = &v
		}
	}

	for _, p := range inflation {
		if p.date.Before(req.Start) {
			continue
		}
		v := p.value
		record(p.date).InflationRate = &v
	}

	records := make([]model.EconomicIndicator, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	return &Result{Indicators: records}, nil
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

func (c *FREDClient) observations(ctx context.Context, seriesID string, start, end time.Time) ([]fredObservation, error) {
	url := fmt.Sprintf(
		"%s/series/observations?series_id=%s&observation_start=%s&observation_end=%s&file_type=json&api_key=%s",
		c.baseURL, seriesID, start.Format("2006-01-02"), end.Format("2006-01-02"), c.apiKey,
	)

	var raw fredResponse
	err := fetchWithRetry(ctx, c.Name(), func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return newError(c.Name(), KindTransient, err)
		}
		raw = fredResponse{}
		return getJSON(ctx, c.httpClient, c.Name(), url, &raw)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("fetched observations", "source", c.Name(), "series", seriesID, "count", len(raw.Observations))
	return raw.Observations, nil
}

// FRED reports missing values as ".".
func parseObservation(obs fredObservation) (time.Time, float64, bool) {
	if obs.Value == "" || obs.Value == "." {
		return time.Time{}, 0, false
	}

	date, err := time.Parse("2006-01-02", obs.Date)
	if err != nil {
		return time.Time{}, 0, false
	}

	value, err := strconv.ParseFloat(obs.Value, 64)
	if err != nil {
		return time.Time{}, 0, false
	}

	return date, value, true
}

type observationPoint struct {
	date  time.Time
	value float64
}

func cpiYoYChange(observations []fredObservation) []observationPoint {
	points := make([]observationPoint, 0, len(observations))
	for _, obs := range observations {
		if date, value, ok := parseObservation(obs); ok {
			points = append(points, observationPoint{date, value})
		}
	}

	if len(points) <= 12 {
		return nil
	}

	result := make([]observationPoint, 0, len(points)-12)
	for i := 12; i < len(points); i++ {
		yearAgo := points[i-12].value
		if yearAgo == 0 {
			continue
		}
		change := (points[i].value - yearAgo) / yearAgo * 100
		result = append(result, observationPoint{points[i].date, round2(change)})
	}

	return result
}
