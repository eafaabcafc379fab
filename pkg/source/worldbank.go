package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"macrodash/internal/model"
)

const worldBankBaseURL = "https://api.worldbank.org/v2"

// NY.GDP.MKTP.KD.ZG is GDP growth (annual %).
const indicatorGDPGrowth = "NY.GDP.MKTP.KD.ZG"

// WorldBankClient fetches annual GDP growth for the world aggregate and the
// United States. The API needs no key.
type WorldBankClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewWorldBankClient() *WorldBankClient {
	return &WorldBankClient{
		baseURL:    worldBankBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *WorldBankClient) Name() string  { return "world_bank" }
func (c *WorldBankClient) Table() string { return model.TableEconomicIndicators }

func (c *WorldBankClient) Fetch(ctx context.Context, req FetchRequest) (*Result, error) {
	global, err := c.gdpGrowth(ctx, "WLD", req)
	if err != nil {
		return nil, err
	}

	us, err := c.gdpGrowth(ctx, "USA", req)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int]*model.EconomicIndicator)
	add := func(rows []wbRow, assign func(*model.EconomicIndicator, float64)) {
		for _, row := range rows {
			if row.Value == nil {
				continue
			}
			year, err := strconv.Atoi(row.Date)
			if err != nil {
				continue
			}
			rec, ok := byYear[year]
			if !ok {
				// Annual values are pinned to the last day of their year.
				rec = &model.EconomicIndicator{Date: time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)}
				byYear[year] = rec
			}
			assign(rec, round2(*row.Value))
		}
	}

	add(global, func(rec *model.EconomicIndicator, v float64) { rec.GlobalGDPGrowth = &v })
	add(us, func(rec *model.EconomicIndicator, v float64) { rec.USGDPGrowth = &v })

	records := make([]model.EconomicIndicator, 0, len(byYear))
	for _, rec := range byYear {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	slog.Info("fetched gdp growth", "source", c.Name(), "years", len(records))
	return &Result{Indicators: records}, nil
}

type wbRow struct {
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
	Country wbName   `json:"country"`
}

type wbName struct {
	Value string `json:"value"`
}

func (c *WorldBankClient) gdpGrowth(ctx context.Context, country string, req FetchRequest) ([]wbRow, error) {
	url := fmt.Sprintf(
		"%s/country/%s/indicator/%s?format=json&per_page=100&date=%d:%d",
		c.baseURL, country, indicatorGDPGrowth, req.Start.Year(), req.End.Year(),
	)

	var raw []json.RawMessage
	err := fetchWithRetry(ctx, c.Name(), func() error {
		raw = nil
		return getJSON(ctx, c.httpClient, c.Name(), url, &raw)
	})
	if err != nil {
		return nil, err
	}

	// The API wraps results as [metadata, rows].
	if len(raw) < 2 {
		return nil, newError(c.Name(), KindMalformed, fmt.Errorf("expected [metadata, rows], got %d elements", len(raw)))
	}

	var rows []wbRow
	if err := json.Unmarshal(raw[1], &rows); err != nil {
		return nil, newError(c.Name(), KindMalformed, fmt.Errorf("decode rows: %w", err))
	}

	return rows, nil
}
