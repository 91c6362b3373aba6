package server

import (
	"context"
	"fmt"
	"io"

	"RegimeModel/internal/domain/models"
	"RegimeModel/internal/usecase"
	"RegimeModel/pkg/config"
	"RegimeModel/pkg/logger"
	"RegimeModel/pkg/metrics"
)

const resultsBanner = "========== RESULTS =========="

// App encapsulates one batch run.
type App struct {
	cfg      *config.Config
	pipeline *usecase.Pipeline
	recorder *metrics.Recorder
	l        *logger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, pipeline *usecase.Pipeline, recorder *metrics.Recorder, l *logger.Logger) *App {
	if l == nil {
		l = logger.Nop()
	}
	return &App{cfg: cfg, pipeline: pipeline, recorder: recorder, l: l}
}

// Run executes the pipeline once. The metrics textfile is written whether
// or not the run succeeds.
func (a *App) Run(ctx context.Context) (*usecase.Result, error) {
	a.l.Info("Starting regime pipeline",
		logger.String("env", a.cfg.Environment),
		logger.String("symbol", a.cfg.Data.Symbol),
		logger.String("source", a.cfg.Data.Source),
	)

	res, err := a.pipeline.Run(ctx)
	a.exportMetrics()
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *App) exportMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" || a.recorder == nil {
		return
	}
	if err := a.recorder.WriteTextfile(path); err != nil {
		a.l.Warn("Metrics export failed", logger.String("path", path), logger.Error(err))
		return
	}
	a.l.Debug("Metrics exported", logger.String("path", path))
}

// WriteResults prints the report metrics under the results banner.
func WriteResults(w io.Writer, r *models.PerformanceReport) error {
	if _, err := fmt.Fprintln(w, resultsBanner); err != nil {
		return err
	}
	for _, m := range r.Metrics {
		if _, err := fmt.Fprintf(w, "%-22s %8.3f\n", m.Name, m.Value); err != nil {
			return err
		}
	}
	return nil
}
