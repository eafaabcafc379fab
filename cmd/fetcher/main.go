package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"macrodash/db"
	"macrodash/internal/aggregator"
	"macrodash/internal/model"
	"macrodash/internal/repository"
	"macrodash/pkg/source"
)

func main() {

	force := flag.Bool("force", false, "refetch ranges adapters might otherwise skip")
	flag.Parse()

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	err := db.Connect()
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		log.Fatalf("error creating schema: %v", err)
	}

	sources := buildSources()

	indicatorRepo := repository.NewIndicatorRepository(db.DB)
	stockRepo := repository.NewStockRepository(db.DB)
	logRepo := repository.NewUpdateLogRepository(db.DB)

	agg := aggregator.New(indicatorRepo, stockRepo, logRepo, sources...)

	res, err := agg.Run(context.Background(), model.TriggerAutomatic, *force)
	if err != nil {
		slog.Error("aggregation run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("aggregation run finished", "status", res.Status, "sources_updated", res.SourcesUpdated, "errors", len(res.Errors), "duration", res.Duration.String())

	if res.Status == model.StatusFailed {
		os.Exit(1)
	}
}

func buildSources() []source.Source {
	var sources []source.Source

	if key := os.Getenv("FRED_API_KEY"); key != "" {
		sources = append(sources, source.NewFREDClient(key))
	}

	// The World Bank API needs no key.
	sources = append(sources, source.NewWorldBankClient())

	ticker := os.Getenv("STOCK_TICKER")
	if ticker == "" {
		ticker = "NVDA"
	}

	shares := 24.6 // billions
	if v := os.Getenv("SHARES_OUTSTANDING_B"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			shares = parsed
		}
	}

	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		sources = append(sources, source.NewAlphaVantageClient(key, ticker, shares))
	} else if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		sources = append(sources, source.NewFinnhubClient(key, ticker, shares))
	} else {
		slog.Warn("no stock data API key configured, stock_data will not update")
	}

	return sources
}
