package source

import (
	"context"
	"errors"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"macrodash/internal/model"
)

// FinnhubClient is the alternative stock adapter, used when a Finnhub key is
// configured instead of an Alpha Vantage one.
type FinnhubClient struct {
	client            *finnhub.DefaultApiService
	ticker            string
	sharesOutstanding float64 // billions
}

func NewFinnhubClient(apiKey, ticker string, sharesOutstanding float64) *FinnhubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnhubClient{client: client, ticker: ticker, sharesOutstanding: sharesOutstanding}
}

func (c *FinnhubClient) Name() string  { return "finnhub" }
func (c *FinnhubClient) Table() string { return model.TableStockData }

func (c *FinnhubClient) Fetch(ctx context.Context, req FetchRequest) (*Result, error) {
	var candles finnhub.StockCandles
	err := fetchWithRetry(ctx, c.Name(), func() error {
		res, httpRes, err := c.client.StockCandles(ctx).
			Symbol(c.ticker).
			Resolution("D").
			From(req.Start.Unix()).
			To(req.End.Unix()).
			Execute()
		if err != nil {
			return classifyResponse(c.Name(), httpRes, err)
		}
		candles = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if candles.S != nil && *candles.S == "no_data" {
		return &Result{}, nil
	}
	if candles.T == nil || candles.C == nil {
		return nil, newError(c.Name(), KindMalformed, errors.New("candle response missing fields"))
	}

	times := *candles.T
	records := make([]model.StockRecord, 0, len(times))
	for i, ts := range times {
		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)

		rec := model.StockRecord{
			Date:       date,
			OpenPrice:  candleValue(candles.O, i),
			HighPrice:  candleValue(candles.H, i),
			LowPrice:   candleValue(candles.L, i),
			ClosePrice: candleValue(candles.C, i),
		}

		if v := candleValue(candles.V, i); v != nil {
			vol := int64(*v)
			rec.Volume = &vol
		}

		if rec.ClosePrice != nil {
			mc := round2(*rec.ClosePrice * c.sharesOutstanding)
			rec.MarketCap = &mc
		}

		records = append(records, rec)
	}

	return &Result{Stocks: records}, nil
}

func candleValue(series *[]float32, i int) *float64 {
	if series == nil || i >= len(*series) {
		return nil
	}
	v := round2(float64((*series)[i]))
	return &v
}

func classifyResponse(name string, resp *http.Response, err error) *Error {
	if resp != nil && resp.StatusCode != http.StatusOK {
		serr := classifyStatus(name, resp.StatusCode)
		serr.Err = err
		return serr
	}
	return newError(name, KindTransient, err)
}
