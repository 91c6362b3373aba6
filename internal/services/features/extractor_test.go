package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
)

func bars(closes ...float64) []models.Bar {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.NewBar(start.AddDate(0, 0, i), c)
	}
	return out
}

func walk(n int) []float64 {
	out := make([]float64, n)
	c := 100.0
	for i := range out {
		c *= 1 + 0.01*math.Sin(float64(i)*0.7)
		out[i] = c
	}
	return out
}

func TestBuild_DefaultWindows(t *testing.T) {
	closes := walk(30)
	in := bars(closes...)

	rows, err := Build(in, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, in[20].Date, rows[0].Date)
	assert.Equal(t, in[29].Date, rows[9].Date)

	r := rows[0]
	assert.InDelta(t, math.Log(closes[20]/closes[19]), r.LogReturn, 1e-15)

	rets := make([]float64, 0, 20)
	for i := 1; i <= 20; i++ {
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	mean := 0.0
	for _, x := range rets {
		mean += x
	}
	mean /= 20
	ss := 0.0
	for _, x := range rets {
		ss += (x - mean) * (x - mean)
	}
	assert.InDelta(t, math.Sqrt(ss/19), r.Volatility, 1e-12)

	fast := 0.0
	for i := 12; i <= 20; i++ {
		fast += closes[i]
	}
	slow := 0.0
	for i := 0; i <= 20; i++ {
		slow += closes[i]
	}
	assert.InDelta(t, fast/9, r.MAFast, 1e-9)
	assert.InDelta(t, slow/21, r.MASlow, 1e-9)
	assert.True(t, r.HasTrend)
	assert.Equal(t, closes[20], r.Close)
}

func TestBuild_DisabledTrend(t *testing.T) {
	rows, err := Build(bars(walk(25)...), Options{VolatilityWindow: 5})
	require.NoError(t, err)
	require.Len(t, rows, 20)
	for _, r := range rows {
		assert.False(t, r.HasTrend)
		assert.True(t, math.IsNaN(r.MAFast))
	}
	assert.Nil(t, Trend(rows))
}

func TestBuild_LongSlowWindowControlsWarmup(t *testing.T) {
	rows, err := Build(bars(walk(60)...), Options{VolatilityWindow: 5, MAFast: 10, MASlow: 50})
	require.NoError(t, err)
	assert.Len(t, rows, 11)
}

func TestBuild_Errors(t *testing.T) {
	dup := bars(walk(30)...)
	dup[10].Date = dup[9].Date

	tests := []struct {
		name string
		bars []models.Bar
		opts Options
		want error
	}{
		{"empty", nil, DefaultOptions(), ErrEmptySeries},
		{"zero close", bars(append(walk(29), 0)...), DefaultOptions(), ErrInvalidClose},
		{"negative close", bars(append([]float64{-1}, walk(29)...)...), DefaultOptions(), ErrInvalidClose},
		{"nan close", bars(append(walk(29), math.NaN())...), DefaultOptions(), ErrInvalidClose},
		{"duplicate date", dup, DefaultOptions(), ErrUnordered},
		{"warm-up consumes everything", bars(walk(20)...), DefaultOptions(), ErrNoRows},
		{"window too small", bars(walk(30)...), Options{VolatilityWindow: 1}, ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Build(tt.bars, tt.opts)
			require.Error(t, err)
			assert.Nil(t, rows)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, errs.KindFeature, errs.KindOf(err))
		})
	}
}

func TestProjections(t *testing.T) {
	rows := []models.FeatureRow{
		{LogReturn: 0.01, Volatility: 0.2, MAFast: 2, MASlow: 1, HasTrend: true},
		{LogReturn: -0.02, Volatility: 0.3, MAFast: 1, MASlow: 2, HasTrend: true},
	}
	obs := Observations(rows)
	require.Len(t, obs, 2)
	assert.Equal(t, []float64{-0.02, 0.3}, obs[1].Values)
	assert.Equal(t, []float64{0.01, -0.02}, Returns(rows))
	assert.Equal(t, []bool{true, false}, Trend(rows))
}

func TestComputeLogReturns(t *testing.T) {
	assert.Nil(t, ComputeLogReturns([]float64{1}))
	got := ComputeLogReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-15)
	assert.InDelta(t, math.Log(0.9), got[1], 1e-15)
	assert.True(t, math.IsNaN(RollingVolatility(got, 3)))
}
