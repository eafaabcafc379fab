package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"macrodash/internal/model"
	"macrodash/pkg/source"
)

// ErrRunInProgress rejects a trigger arriving while a run is active. It is a
// benign condition, not a failure.
var ErrRunInProgress = errors.New("aggregation run already in progress")

type IndicatorStore interface {
	UpsertBatch(records []model.EconomicIndicator) error
}

type StockStore interface {
	UpsertBatch(records []model.StockRecord) error
}

type LogStore interface {
	Append(entry *model.UpdateLog) error
}

const defaultSourceTimeout = 60 * time.Second

// Aggregator drives one pass across all registered sources, commits each
// table independently and records the outcome in the update log.
type Aggregator struct {
	sources    []source.Source
	indicators IndicatorStore
	stocks     StockStore
	logs       LogStore
	state      *RunState
	timeout    time.Duration
}

func New(indicators IndicatorStore, stocks StockStore, logs LogStore, sources ...source.Source) *Aggregator {
	return &Aggregator{
		sources:    sources,
		indicators: indicators,
		stocks:     stocks,
		logs:       logs,
		state:      NewRunState(),
		timeout:    defaultSourceTimeout,
	}
}

func (a *Aggregator) State() *RunState {
	return a.state
}

// SetSourceTimeout overrides the per-source fetch timeout.
func (a *Aggregator) SetSourceTimeout(d time.Duration) {
	a.timeout = d
}

type RunResult struct {
	Status         string
	Trigger        string
	StartedAt      time.Time
	Duration       time.Duration
	SourcesUpdated []string
	Errors         []model.SourceError
}

type fetchOutcome struct {
	name   string
	table  string
	result *source.Result
	err    error
}

// Run executes one aggregation pass. A failing source never aborts the
// others; per-table commits are independent transactions.
func (a *Aggregator) Run(ctx context.Context, trigger string, force bool) (*RunResult, error) {
	if !a.state.TryStart() {
		return nil, ErrRunInProgress
	}

	start := time.Now()
	res := &RunResult{Trigger: trigger, StartedAt: start, Status: model.StatusFailed}

	// Released even if a commit or log write panics, so a future run is
	// never deadlocked.
	defer func() {
		a.state.Finish(res.Status)
	}()

	slog.Info("starting aggregation run", "trigger", trigger, "force", force, "sources", len(a.sources))

	if len(a.sources) == 0 {
		res.Errors = append(res.Errors, model.SourceError{
			Source:  "config",
			Kind:    "config",
			Message: "no data sources configured",
		})
		res.Duration = time.Since(start)
		a.appendLog(res)
		return res, nil
	}

	req := source.FetchRequest{
		Start: start.AddDate(-2, 0, 0),
		End:   start,
		Force: force,
	}

	outcomes := make([]fetchOutcome, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			result, err := src.Fetch(fetchCtx, req)
			outcomes[i] = fetchOutcome{name: src.Name(), table: src.Table(), result: result, err: err}
		}(i, src)
	}
	wg.Wait()

	// Commit phase. Indicator sources share a table, so their record sets
	// merge into one batch; the stock source commits on its own.
	var updated []string
	var runErrs []model.SourceError
	var indicatorSources []string
	var indicatorResults []*source.Result

	for _, out := range outcomes {
		if out.err != nil {
			runErrs = append(runErrs, toSourceError(out.name, out.err))
			slog.Error("source fetch failed", "source", out.name, "error", out.err)
			continue
		}

		switch out.table {
		case model.TableEconomicIndicators:
			indicatorSources = append(indicatorSources, out.name)
			indicatorResults = append(indicatorResults, out.result)
		case model.TableStockData:
			if err := a.stocks.UpsertBatch(out.result.Stocks); err != nil {
				runErrs = append(runErrs, model.SourceError{Source: out.name, Kind: string(source.KindPersistence), Message: err.Error()})
				slog.Error("stock commit failed", "source", out.name, "error", err)
				continue
			}
			updated = append(updated, out.name)
			slog.Info("source committed", "source", out.name, "table", out.table, "records", len(out.result.Stocks))
		}
	}

	if len(indicatorResults) > 0 {
		merged := mergeIndicators(indicatorResults)
		if err := a.indicators.UpsertBatch(merged); err != nil {
			for _, name := range indicatorSources {
				runErrs = append(runErrs, model.SourceError{Source: name, Kind: string(source.KindPersistence), Message: err.Error()})
			}
			slog.Error("indicator commit failed", "sources", indicatorSources, "error", err)
		} else {
			updated = append(updated, indicatorSources...)
			slog.Info("sources committed", "sources", indicatorSources, "table", model.TableEconomicIndicators, "records", len(merged))
		}
	}

	sort.Strings(updated)

	res.SourcesUpdated = updated
	res.Errors = runErrs
	res.Duration = time.Since(start)

	switch {
	case len(updated) == len(a.sources):
		res.Status = model.StatusSuccess
	case len(updated) > 0:
		res.Status = model.StatusPartial
	default:
		res.Status = model.StatusFailed
	}

	a.appendLog(res)

	slog.Info("aggregation run complete", "trigger", trigger, "status", res.Status, "duration", res.Duration.String(), "sources_updated", res.SourcesUpdated, "errors", len(runErrs))

	return res, nil
}

func (a *Aggregator) appendLog(res *RunResult) {
	entry := &model.UpdateLog{
		Timestamp:       res.StartedAt,
		TriggerKind:     res.Trigger,
		Status:          res.Status,
		SourcesUpdated:  res.SourcesUpdated,
		Errors:          res.Errors,
		DurationSeconds: math.Round(res.Duration.Seconds()*100) / 100,
	}

	// The run itself already finished; a missing audit row is logged but
	// does not change the outcome.
	if err := a.logs.Append(entry); err != nil {
		slog.Error("failed to append update log", "error", err)
	}
}

func toSourceError(name string, err error) model.SourceError {
	var serr *source.Error
	if errors.As(err, &serr) {
		return model.SourceError{Source: name, Kind: string(serr.Kind), Message: serr.Error()}
	}
	return model.SourceError{Source: name, Kind: string(source.KindTransient), Message: err.Error()}
}

// mergeIndicators folds per-source record sets into one batch per date and
// carries the latest annual global GDP value onto dates missing it, so the
// monthly series still chart against the annual line.
func mergeIndicators(results []*source.Result) []model.EconomicIndicator {
	byDate := make(map[time.Time]*model.EconomicIndicator)
	for _, result := range results {
		for _, rec := range result.Indicators {
			merged, ok := byDate[rec.Date]
			if !ok {
				merged = &model.EconomicIndicator{Date: rec.Date}
				byDate[rec.Date] = merged
			}
			if rec.GlobalGDPGrowth != nil {
				merged.GlobalGDPGrowth = rec.GlobalGDPGrowth
			}
			if rec.USGDPGrowth != nil {
				merged.USGDPGrowth = rec.USGDPGrowth
			}
			if rec.FederalFundsRate != nil {
				merged.FederalFundsRate = rec.FederalFundsRate
			}
			if rec.InflationRate != nil {
				merged.InflationRate = rec.InflationRate
			}
		}
	}

	records := make([]model.EconomicIndicator, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	var latest *float64
	for i := range records {
		if records[i].GlobalGDPGrowth != nil {
			latest = records[i].GlobalGDPGrowth
		}
	}
	if latest != nil {
		for i := range records {
			if records[i].GlobalGDPGrowth == nil {
				records[i].GlobalGDPGrowth = latest
			}
		}
	}

	return records
}
