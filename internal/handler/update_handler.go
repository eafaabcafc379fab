package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"macrodash/internal/aggregator"
	"macrodash/internal/model"
)

const updateCooldown = 30 * time.Second

type Runner interface {
	Run(ctx context.Context, trigger string, force bool) (*aggregator.RunResult, error)
}

// Cooldown throttles manual update triggers. force bypasses it; the run lock
// in the aggregator is the only correctness mechanism.
type Cooldown interface {
	TryAcquire() (bool, time.Duration)
}

type UpdateHandler struct {
	runner   Runner
	cooldown Cooldown
}

func NewUpdateHandler(runner Runner, cooldown Cooldown) *UpdateHandler {
	if cooldown == nil {
		cooldown = NewMemoryCooldown(updateCooldown)
	}
	return &UpdateHandler{runner: runner, cooldown: cooldown}
}

func (h *UpdateHandler) PostUpdate(c *gin.Context) {
	var req UpdateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	if !req.Force {
		if ok, wait := h.cooldown.TryAcquire(); !ok {
			seconds := int(wait.Round(time.Second).Seconds())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Please wait %d seconds before updating again", seconds),
			})
			return
		}
	}

	// Detached from the request context so a dropped connection does not
	// abort a half-finished run.
	res, err := h.runner.Run(context.Background(), model.TriggerManual, req.Force)
	if err != nil {
		if errors.Is(err, aggregator.ErrRunInProgress) {
			c.JSON(http.StatusConflict, UpdateResponse{
				Status:    "run_in_progress",
				Message:   "An update is already running",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		slog.Error("manual update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	c.JSON(http.StatusOK, UpdateResponse{
		Status:          res.Status,
		Message:         fmt.Sprintf("Update completed with status: %s", res.Status),
		DurationSeconds: math.Round(res.Duration.Seconds()*100) / 100,
		Timestamp:       res.StartedAt.UTC().Format(time.RFC3339),
		SourcesUpdated:  res.SourcesUpdated,
		Errors:          toErrorResponses(res.Errors),
	})
}

func toErrorResponses(errs []model.SourceError) []SourceErrorResponse {
	res := make([]SourceErrorResponse, 0, len(errs))
	for _, e := range errs {
		res = append(res, SourceErrorResponse{Source: e.Source, Kind: e.Kind, Message: e.Message})
	}
	return res
}

// MemoryCooldown is the single-process fallback used when Redis is not
// configured.
type MemoryCooldown struct {
	mu    sync.Mutex
	ttl   time.Duration
	until time.Time
}

func NewMemoryCooldown(ttl time.Duration) *MemoryCooldown {
	return &MemoryCooldown{ttl: ttl}
}

func (c *MemoryCooldown) TryAcquire() (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Before(c.until) {
		return false, c.until.Sub(now)
	}

	c.until = now.Add(c.ttl)
	return true, 0
}
