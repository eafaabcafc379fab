package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"macrodash/internal/aggregator"
	"macrodash/internal/model"
)

type fakeRunner struct {
	result *aggregator.RunResult
	err    error
	calls  int
	force  bool
}

func (f *fakeRunner) Run(ctx context.Context, trigger string, force bool) (*aggregator.RunResult, error) {
	f.calls++
	f.force = force
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func postUpdate(h *UpdateHandler, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/api/update", h.PostUpdate)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/api/update", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/api/update", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func successResult() *aggregator.RunResult {
	return &aggregator.RunResult{
		Status:         model.StatusSuccess,
		Trigger:        model.TriggerManual,
		StartedAt:      time.Date(2026, time.August, 23, 9, 0, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
		SourcesUpdated: []string{"alphavantage", "fred", "world_bank"},
	}
}

func TestPostUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{result: successResult()}
	h := NewUpdateHandler(runner, nil)

	w := postUpdate(h, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, false, runner.force)

	var res UpdateResponse
	err := json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, nil, err)
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, 1.5, res.DurationSeconds)
	assert.Equal(t, []string{"alphavantage", "fred", "world_bank"}, res.SourcesUpdated)
}

func TestPostUpdateCooldown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{result: successResult()}
	h := NewUpdateHandler(runner, NewMemoryCooldown(30*time.Second))

	w := postUpdate(h, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// A second trigger inside the window is rejected.
	w = postUpdate(h, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestPostUpdateForceBypassesCooldown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{result: successResult()}
	h := NewUpdateHandler(runner, NewMemoryCooldown(30*time.Second))

	w := postUpdate(h, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = postUpdate(h, `{"force": true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, true, runner.force)
}

func TestPostUpdateRunInProgress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{err: aggregator.ErrRunInProgress}
	h := NewUpdateHandler(runner, nil)

	w := postUpdate(h, "")

	assert.Equal(t, http.StatusConflict, w.Code)

	var res UpdateResponse
	err := json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, nil, err)
	assert.Equal(t, "run_in_progress", res.Status)
}

func TestPostUpdateRunnerError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{err: errors.New("db gone")}
	h := NewUpdateHandler(runner, nil)

	w := postUpdate(h, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPostUpdateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &fakeRunner{result: successResult()}
	h := NewUpdateHandler(runner, nil)

	w := postUpdate(h, `{"force": "yes"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestMemoryCooldown(t *testing.T) {
	cd := NewMemoryCooldown(50 * time.Millisecond)

	ok, _ := cd.TryAcquire()
	assert.Equal(t, true, ok)

	ok, wait := cd.TryAcquire()
	assert.Equal(t, false, ok)
	assert.Equal(t, true, wait > 0)

	time.Sleep(60 * time.Millisecond)

	ok, _ = cd.TryAcquire()
	assert.Equal(t, true, ok)
}
