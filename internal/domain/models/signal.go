package models

import (
	"math"
	"time"
)

// Bar represents a daily OHLCV record. Optional fields hold NaN when the
// source did not provide them.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// NewBar returns a bar with every optional field unset.
func NewBar(date time.Time, close float64) Bar {
	nan := math.NaN()
	return Bar{Date: date, Open: nan, High: nan, Low: nan, Close: close, AdjClose: nan, Volume: nan}
}

// Observation is a fixed-length feature vector attached to a timestamp.
type Observation struct {
	Time   time.Time
	Values []float64
}

// Dim returns the feature dimensionality.
func (o Observation) Dim() int { return len(o.Values) }

// FeatureRow holds the per-day features derived from bars.
type FeatureRow struct {
	Date       time.Time
	Close      float64
	LogReturn  float64
	Volatility float64
	MAFast     float64
	MASlow     float64
	HasTrend   bool // false when moving averages are disabled
}

// Observation projects the row onto the regime model inputs.
func (r FeatureRow) Observation() Observation {
	return Observation{Time: r.Date, Values: []float64{r.LogReturn, r.Volatility}}
}

// RegimeStat summarizes one regime over the decoded sample.
type RegimeStat struct {
	Regime     int
	Count      int
	MeanReturn float64
	Favorable  bool
}
