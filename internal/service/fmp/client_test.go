package fmp

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/pkg/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.FMP.BaseURL = baseURL
	cfg.FMP.APIKey = "secret"
	cfg.FMP.Timeout = 5 * time.Second
	cfg.FMP.RateLimit = 50
	return cfg
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestGetBars_RequestAndParse(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, eodPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "SPY", q.Get("symbol"))
		assert.Equal(t, "2020-01-01", q.Get("from"))
		assert.Equal(t, "2020-01-31", q.Get("to"))
		assert.Equal(t, "secret", q.Get("apikey"))
		_, _ = w.Write([]byte(`[
			{"symbol":"SPY","date":"2020-01-03","open":321.0,"high":323.6,"low":321.1,"close":322.41,"adjClose":301.2,"volume":77709700},
			{"symbol":"SPY","date":"2020-01-02","open":"323.54","high":324.89,"low":322.53,"close":"324.87","volume":"59151200"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL+"/"), nil)
	assert.Equal(t, "fmp", c.Name())
	bars, err := c.GetBars(context.Background(), "SPY", day("2020-01-01"), day("2020-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1, hits)

	assert.Equal(t, day("2020-01-02"), bars[0].Date)
	assert.Equal(t, 324.87, bars[0].Close)
	assert.Equal(t, 323.54, bars[0].Open)
	assert.Equal(t, 59151200.0, bars[0].Volume)
	assert.True(t, math.IsNaN(bars[0].AdjClose))
	assert.Equal(t, 301.2, bars[1].AdjClose)
}

func TestGetBars_NonSuccessStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"Error Message":"Invalid API KEY."}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).GetBars(context.Background(), "SPY", day("2020-01-01"), day("2020-01-02"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, errs.KindDataSource, errs.KindOf(err))
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Invalid API KEY")
	assert.Equal(t, 1, hits, "failed fetches are not retried")
}

func TestParseBars_PayloadShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"list", `[{"date":"2021-05-04","close":10},{"date":"2021-05-03","close":9}]`, 2},
		{"historical", `{"symbol":"X","historical":[{"date":"2021-05-03","close":9}]}`, 1},
		{"data", `{"data":[{"date":"2021-05-03","close":"9.5"},{"date":"2021-05-04","close":"n/a"}]}`, 1},
		{"datetime dates", `[{"date":"2021-05-03 00:00:00","close":9}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := ParseBars([]byte(tt.payload))
			require.NoError(t, err)
			require.Len(t, bars, tt.want)
			assert.Equal(t, day("2021-05-03"), bars[0].Date)
		})
	}
}

func TestParseBars_SchemaErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"empty list":    `[]`,
		"empty object":  `{"symbol":"SPY"}`,
		"no date field": `[{"close":10,"open":9}]`,
		"scalar":        `"oops"`,
		"blank":         ``,
		"bad date":      `[{"date":"yesterday","close":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBars([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchema), "got %v", err)
		})
	}
}
