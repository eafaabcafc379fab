package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newTestWorldBankClient(baseURL string) *WorldBankClient {
	return &WorldBankClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestWorldBankFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var body string
		if r.URL.Path == "/country/WLD/indicator/"+indicatorGDPGrowth {
			body = `[{"page":1},[
				{"date":"2024","value":3.21,"country":{"value":"World"}},
				{"date":"2025","value":null,"country":{"value":"World"}},
				{"date":"2023","value":2.95,"country":{"value":"World"}}
			]]`
		} else {
			body = `[{"page":1},[
				{"date":"2024","value":2.8,"country":{"value":"United States"}},
				{"date":"2023","value":2.54,"country":{"value":"United States"}}
			]]`
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	client := newTestWorldBankClient(srv.URL)

	res, err := client.Fetch(context.Background(), FetchRequest{
		Start: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, nil, err)
	// 2025 is null for WLD and absent for USA, so only two years survive.
	assert.Equal(t, 2, len(res.Indicators))

	first := res.Indicators[0]
	assert.Equal(t, "2023-12-31", first.Date.Format("2006-01-02"))
	assert.Equal(t, 2.95, *first.GlobalGDPGrowth)
	assert.Equal(t, 2.54, *first.USGDPGrowth)

	second := res.Indicators[1]
	assert.Equal(t, "2024-12-31", second.Date.Format("2006-01-02"))
	assert.Equal(t, 3.21, *second.GlobalGDPGrowth)
	assert.Equal(t, 2.8, *second.USGDPGrowth)
}

func TestWorldBankFetchMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Error responses come back as a single-element array.
		fmt.Fprint(w, `[{"message":[{"id":"120","value":"Invalid indicator"}]}]`)
	}))
	defer srv.Close()

	client := newTestWorldBankClient(srv.URL)

	_, err := client.Fetch(context.Background(), FetchRequest{
		Start: time.Now().AddDate(-2, 0, 0),
		End:   time.Now(),
	})

	var serr *Error
	assert.Equal(t, true, errors.As(err, &serr))
	assert.Equal(t, KindMalformed, serr.Kind)
	assert.Equal(t, "world_bank", serr.Source)
}

func TestWorldBankFetchServerErrorRetried(t *testing.T) {
	fastRetries(t)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestWorldBankClient(srv.URL)

	_, err := client.gdpGrowth(context.Background(), "WLD", FetchRequest{
		Start: time.Now().AddDate(-2, 0, 0),
		End:   time.Now(),
	})

	var serr *Error
	assert.Equal(t, true, errors.As(err, &serr))
	assert.Equal(t, KindTransient, serr.Kind)
	assert.Equal(t, maxAttempts, calls)
}
