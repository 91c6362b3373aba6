package models

import "time"

const (
	MetricBenchmarkSharpe      = "Benchmark_Sharpe"
	MetricStrategySharpe       = "Strategy_Sharpe"
	MetricBenchmarkCAGR        = "Benchmark_CAGR"
	MetricStrategyCAGR         = "Strategy_CAGR"
	MetricBenchmarkTotalReturn = "Benchmark_TotalReturn"
	MetricStrategyTotalReturn  = "Strategy_TotalReturn"
)

// Metric is a named scalar performance figure.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PerformanceReport is the ordered set of benchmark and strategy metrics.
type PerformanceReport struct {
	RunID     string    `json:"run_id,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Samples   int       `json:"samples"`
	Regimes   int       `json:"regimes,omitempty"`
	Generated time.Time `json:"generated"`
	Metrics   []Metric  `json:"metrics"`
}

// Get returns the value of a named metric.
func (r *PerformanceReport) Get(name string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
