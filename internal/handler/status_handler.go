package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type RunStateReader interface {
	Running() bool
}

type Schedule interface {
	NextRun() time.Time
}

// HealthProber is a lightweight database liveness check.
type HealthProber interface {
	Count() (int, error)
}

type StatusHandler struct {
	logs  UpdateLogStore
	state RunStateReader
	sched Schedule
	probe HealthProber
}

func NewStatusHandler(logs UpdateLogStore, state RunStateReader, sched Schedule, probe HealthProber) *StatusHandler {
	return &StatusHandler{logs: logs, state: state, sched: sched, probe: probe}
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	res := StatusResponse{DatabaseStatus: "connected"}

	if _, err := h.probe.Count(); err != nil {
		res.DatabaseStatus = "disconnected"
	}

	entry, err := h.logs.GetLatest()
	if err != nil {
		slog.Error("error fetching last update log", "error", err)
		res.DatabaseStatus = "disconnected"
	} else if entry != nil {
		t := entry.Timestamp.UTC().Format(time.RFC3339)
		res.LastUpdate = &t
		res.LastUpdateStatus = entry.Status
	}

	res.UpdateRunning = h.state.Running()

	if h.sched != nil {
		res.SchedulerRunning = true
		if next := h.sched.NextRun(); !next.IsZero() {
			t := next.UTC().Format(time.RFC3339)
			res.NextScheduledUpdate = &t
		}
	}

	c.JSON(http.StatusOK, res)
}

func (h *StatusHandler) GetHealth(c *gin.Context) {
	if _, err := h.probe.Count(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}
