package source

import (
	"context"
	"math"
	"time"

	"macrodash/internal/model"
)

// FetchRequest bounds one fetch. Force asks the adapter to refetch ranges it
// might otherwise consider fresh; what that means is up to each adapter.
type FetchRequest struct {
	Start time.Time
	End   time.Time
	Force bool
}

// Result carries the normalized records for the adapter's table. Exactly one
// of the slices is populated, matching Table().
type Result struct {
	Indicators []model.EconomicIndicator
	Stocks     []model.StockRecord
}

type Source interface {
	Name() string
	Table() string
	Fetch(ctx context.Context, req FetchRequest) (*Result, error)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
