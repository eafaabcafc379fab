package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const maxAttempts = 3

// Overridable so tests do not sleep.
var (
	retryBaseDelay   = 2 * time.Second
	rateLimitedDelay = 10 * time.Second
)

// fetchWithRetry retries transient and rate-limited failures with doubling
// backoff. Malformed and unauthorized failures surface immediately since
// retrying cannot help.
func fetchWithRetry(ctx context.Context, name string, fn func() error) error {
	backoff := retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var serr *Error
		if !errors.As(lastErr, &serr) {
			return lastErr
		}

		switch serr.Kind {
		case KindTransient:
		case KindRateLimited:
			if backoff < rateLimitedDelay {
				backoff = rateLimitedDelay
			}
		default:
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		slog.Warn("fetch failed, retrying", "source", name, "attempt", attempt, "backoff", backoff.String(), "error", lastErr)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

func getJSON(ctx context.Context, client *http.Client, name string, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(name, KindTransient, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return newError(name, KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(name, KindMalformed, fmt.Errorf("decode: %w", err))
	}

	return nil
}
