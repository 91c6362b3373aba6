package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"RegimeModel/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus. Each
// Recorder owns its registry so a batch run can export it on exit.
type Recorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	samples       *prometheus.GaugeVec
	emIterations  prometheus.Gauge
	logLikelihood prometheus.Gauge
	converged     prometheus.Gauge
	performance   *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regime_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regime_stage_errors_total",
				Help: "Total number of failed pipeline stages",
			},
			[]string{"stage"},
		),
		samples: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regime_stage_samples",
				Help: "Number of rows produced by a pipeline stage",
			},
			[]string{"stage"},
		),
		emIterations: f.NewGauge(prometheus.GaugeOpts{
			Name: "regime_em_iterations",
			Help: "EM iterations run by the last fit",
		}),
		logLikelihood: f.NewGauge(prometheus.GaugeOpts{
			Name: "regime_log_likelihood",
			Help: "Final log-likelihood of the last fit",
		}),
		converged: f.NewGauge(prometheus.GaugeOpts{
			Name: "regime_em_converged",
			Help: "1 when the last fit met its tolerance",
		}),
		performance: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regime_performance",
				Help: "Backtest metrics of the last run",
			},
			[]string{"metric"},
		),
	}
}

// Registry exposes the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordStage records stage latency and failure.
func (r *Recorder) RecordStage(stage string, seconds float64, err error) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
	if err != nil {
		r.stageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordSamples records how many rows a stage produced.
func (r *Recorder) RecordSamples(stage string, n int) {
	r.samples.WithLabelValues(stage).Set(float64(n))
}

// RecordFit records the outcome of an EM fit.
func (r *Recorder) RecordFit(iterations int, logLikelihood float64, converged bool) {
	r.emIterations.Set(float64(iterations))
	r.logLikelihood.Set(logLikelihood)
	if converged {
		r.converged.Set(1)
	} else {
		r.converged.Set(0)
	}
}

// RecordReport exports every metric of a performance report.
func (r *Recorder) RecordReport(rep *models.PerformanceReport) {
	if rep == nil {
		return
	}
	for _, m := range rep.Metrics {
		r.performance.WithLabelValues(m.Name).Set(m.Value)
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
