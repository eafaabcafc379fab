package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"macrodash/db"
	"macrodash/internal/aggregator"
	"macrodash/internal/handler"
	"macrodash/internal/repository"
	"macrodash/internal/scheduler"
	"macrodash/pkg/source"
)

func main() {

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

	var cooldown handler.Cooldown
	if os.Getenv("REDIS_URL") != "" {
		if err := db.ConnectRedis(); err != nil {
			slog.Warn("error connecting to Redis, using in-memory cooldown", "error", err)
		} else {
			defer db.CloseRedis()
			cooldown = db.NewRedisCooldown(db.Redis, 30*time.Second)
		}
	}

	indicatorRepo := repository.NewIndicatorRepository(db.DB)
	stockRepo := repository.NewStockRepository(db.DB)
	logRepo := repository.NewUpdateLogRepository(db.DB)

	agg := aggregator.New(indicatorRepo, stockRepo, logRepo, buildSources()...)

	sched, err := scheduler.New(os.Getenv("UPDATE_SCHEDULE"), agg)
	if err != nil {
		log.Fatalf("invalid UPDATE_SCHEDULE: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	dashboardHandler := handler.NewDashboardHandler(indicatorRepo, stockRepo, logRepo)
	metricsHandler := handler.NewMetricsHandler(indicatorRepo, stockRepo)
	updateHandler := handler.NewUpdateHandler(agg, cooldown)
	statusHandler := handler.NewStatusHandler(logRepo, agg.State(), sched, indicatorRepo)
	exportHandler := handler.NewExportHandler(indicatorRepo, stockRepo)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}

	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	api := r.Group("/api")
	api.GET("/dashboard/summary", dashboardHandler.GetDashboardSummary)
	api.GET("/metrics/economic-indicators", metricsHandler.GetEconomicIndicators)
	api.GET("/metrics/stock-data", metricsHandler.GetStockData)
	api.POST("/update", updateHandler.PostUpdate)
	api.GET("/status", statusHandler.GetStatus)
	api.GET("/export/csv", exportHandler.ExportCSV)
	r.GET("/health", statusHandler.GetHealth)

	err = r.Run(":8080")
	if err != nil {
		log.Fatalf("error starting server: %v", err)
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
