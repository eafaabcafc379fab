package source

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"macrodash/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageClient fetches the daily OHLCV series for one ticker. The free
// tier allows 5 requests per minute, hence the 12 second limiter.
type AlphaVantageClient struct {
	apiKey            string
	ticker            string
	baseURL           string
	httpClient        *http.Client
	limiter           *rate.Limiter
	sharesOutstanding float64 // billions
}

func NewAlphaVantageClient(apiKey, ticker string, sharesOutstanding float64) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:            apiKey,
		ticker:            ticker,
		baseURL:           alphaVantageBaseURL,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		limiter:           rate.NewLimiter(rate.Every(12*time.Second), 1),
		sharesOutstanding: sharesOutstanding,
	}
}

func (c *AlphaVantageClient) Name() string  { return "alphavantage" }
func (c *AlphaVantageClient) Table() string { return model.TableStockData }

func (c *AlphaVantageClient) Fetch(ctx context.Context, req FetchRequest) (*Result, error) {
	// Compact covers the last 100 trading days; force requests the full
	// history so older gaps get backfilled.
	outputsize := "compact"
	if req.Force {
		outputsize = "full"
	}

	url := fmt.Sprintf(
		"%s?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		c.baseURL, c.ticker, outputsize, c.apiKey,
	)

	var raw avResponse
	err := fetchWithRetry(ctx, c.Name(), func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return newError(c.Name(), KindTransient, err)
		}

		raw = avResponse{}
		if err := getJSON(ctx, c.httpClient, c.Name(), url, &raw); err != nil {
			return err
		}

		if raw.ErrorMessage != "" {
			return newError(c.Name(), KindUnauthorized, fmt.Errorf("api error: %s", raw.ErrorMessage))
		}
		// The free tier reports throttling as a 200 with a note field.
		if raw.Note != "" {
			return newError(c.Name(), KindRateLimited, fmt.Errorf("api note: %s", raw.Note))
		}
		if raw.Information != "" {
			return newError(c.Name(), KindRateLimited, fmt.Errorf("api information: %s", raw.Information))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]model.StockRecord, 0, len(raw.TimeSeries))
	for dateStr, day := range raw.TimeSeries {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if date.Before(req.Start) || date.After(req.End) {
			continue
		}

		rec := model.StockRecord{
			Date:       date,
			OpenPrice:  parsePrice(day.Open),
			HighPrice:  parsePrice(day.High),
			LowPrice:   parsePrice(day.Low),
			ClosePrice: parsePrice(day.Close),
		}

		if v, err := strconv.ParseInt(day.Volume, 10, 64); err == nil {
			rec.Volume = &v
		}

		if rec.ClosePrice != nil {
			mc := round2(*rec.ClosePrice * c.sharesOutstanding)
			rec.MarketCap = &mc
		}

		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	return &Result{Stocks: records}, nil
}

func parsePrice(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v = round2(v)
	return &v
}

type avResponse struct {
	TimeSeries   map[string]avDay `json:"Time Series (Daily)"`
	ErrorMessage string           `json:"Error Message"`
	Note         string           `json:"Note"`
	Information  string           `json:"Information"`
}

type avDay struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
