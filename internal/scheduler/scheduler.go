package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"macrodash/internal/aggregator"
	"macrodash/internal/model"
)

// DefaultSpec runs the daily update at 09:00 server time.
const DefaultSpec = "0 9 * * *"

type Runner interface {
	Run(ctx context.Context, trigger string, force bool) (*aggregator.RunResult, error)
}

// Scheduler fires one automatic aggregation run per day. A fire landing
// while a run is still active is skipped, never queued.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runner  Runner
}

func New(spec string, runner Runner) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}

	s := &Scheduler{cron: cron.New(), runner: runner}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, err
	}
	s.entryID = id

	return s, nil
}

func (s *Scheduler) fire() {
	res, err := s.runner.Run(context.Background(), model.TriggerAutomatic, false)
	if err != nil {
		if errors.Is(err, aggregator.ErrRunInProgress) {
			slog.Warn("scheduled update skipped, previous run still active")
			return
		}
		slog.Error("scheduled update failed", "error", err)
		return
	}

	slog.Info("scheduled update finished", "status", res.Status, "duration", res.Duration.String())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "next_run", s.NextRun().Format(time.RFC3339))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextRun is the zero time until Start has been called.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}
