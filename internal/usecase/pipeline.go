package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	domrepo "RegimeModel/internal/domain/repository"
	domsvc "RegimeModel/internal/domain/service"
	"RegimeModel/internal/services/features"
	"RegimeModel/pkg/config"
	"RegimeModel/pkg/logger"
)

const (
	StageSeries   = "series"
	StageFeatures = "features"
	StageRegimes  = "regimes"
	StageSignals  = "signals"
	StageBacktest = "backtest"
	StagePublish  = "publish"
)

// Pipeline runs the five stages in order. Each stage consumes the value
// produced by its predecessor.
type Pipeline struct {
	cfg       *config.Config
	loader    *SeriesLoader
	engine    domsvc.RegimeEngine
	signals   domsvc.SignalGenerator
	backtest  domsvc.BacktestEvaluator
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *logger.Logger
}

// NewPipeline wires the stages. publisher and metrics may be nil.
func NewPipeline(
	cfg *config.Config,
	loader *SeriesLoader,
	engine domsvc.RegimeEngine,
	signals domsvc.SignalGenerator,
	backtest domsvc.BacktestEvaluator,
	publisher domrepo.ReportPublisher,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *Pipeline {
	if l == nil {
		l = logger.Nop()
	}
	return &Pipeline{
		cfg:       cfg,
		loader:    loader,
		engine:    engine,
		signals:   signals,
		backtest:  backtest,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
	}
}

// Result carries every stage output of one run.
type Result struct {
	RunID    string
	Bars     []models.Bar
	Rows     []models.FeatureRow
	Model    models.RegimeModel
	Decoding *models.RegimeDecoding
	Signals  *models.Signals
	Report   *models.PerformanceReport
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	l := p.l.With(logger.String("run_id", res.RunID), logger.String("symbol", p.cfg.Data.Symbol))
	from, to := p.cfg.DateRange()

	err := p.stage(l, StageSeries, func() (int, error) {
		bars, err := p.loader.Load(ctx, LoadSeriesParams{Symbol: p.cfg.Data.Symbol, From: from, To: to})
		res.Bars = bars
		return len(bars), err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(l, StageFeatures, func() (int, error) {
		rows, err := features.Build(res.Bars, features.Options{
			VolatilityWindow: p.cfg.Features.VolatilityWindow,
			MAFast:           p.cfg.Features.MAFast,
			MASlow:           p.cfg.Features.MASlow,
		})
		res.Rows = rows
		return len(rows), err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(l, StageRegimes, func() (int, error) {
		obs := features.Observations(res.Rows)
		m, err := p.engine.Fit(obs, models.RegimeFitOptions{
			K:          p.cfg.Model.NStates,
			Covariance: models.CovarianceKind(p.cfg.Model.CovarianceType),
			MaxIter:    p.cfg.Model.MaxIter,
			Seed:       p.cfg.Model.Seed,
			Tolerance:  p.cfg.Model.Tolerance,
		})
		if err != nil {
			return 0, err
		}
		d, err := p.engine.Decode(m, obs)
		if err != nil {
			return 0, err
		}
		res.Model, res.Decoding = m, d
		return len(d.States), nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(l, StageSignals, func() (int, error) {
		s, err := p.signals.Generate(res.Decoding.States, features.Returns(res.Rows), features.Trend(res.Rows))
		if err != nil {
			return 0, err
		}
		for _, r := range s.Ranking {
			l.Info("Regime ranking",
				logger.Int("regime", r.Regime),
				logger.Int("days", r.Count),
				logger.Float64("mean_return", r.MeanReturn),
				logger.Bool("favorable", r.Favorable),
			)
		}
		res.Signals = s
		return len(s.Main), nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(l, StageBacktest, func() (int, error) {
		r, err := p.backtest.Evaluate(res.Signals.Main, features.Returns(res.Rows))
		if err != nil {
			return 0, err
		}
		r.RunID = res.RunID
		r.Symbol = p.cfg.Data.Symbol
		r.Regimes = res.Model.K()
		res.Report = r
		return r.Samples, nil
	})
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordReport(res.Report)
	}

	p.publish(ctx, l, res.Report)
	return res, nil
}

// stage times fn, logs its outcome and records metrics. fn returns the
// number of rows it produced.
func (p *Pipeline) stage(l *logger.Logger, name string, fn func() (int, error)) error {
	start := time.Now()
	l.Info("Stage started", logger.String("stage", name))

	n, err := fn()
	took := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordStage(name, took.Seconds(), err)
	}
	if err != nil {
		l.Error("Stage failed",
			logger.String("stage", name),
			logger.String("kind", string(errs.KindOf(err))),
			logger.String("code", errs.CodeOf(err)),
			logger.Duration("took", took),
			logger.Error(err),
		)
		return err
	}

	if p.metrics != nil {
		p.metrics.RecordSamples(name, n)
	}
	l.Info("Stage finished", logger.String("stage", name), logger.Int("rows", n), logger.Duration("took", took))
	return nil
}

// publish ships the report to the optional sink. Failures are logged and
// do not fail the run.
func (p *Pipeline) publish(ctx context.Context, l *logger.Logger, r *models.PerformanceReport) {
	if p.publisher == nil {
		return
	}
	start := time.Now()
	err := p.publisher.PublishReport(ctx, r)
	if p.metrics != nil {
		p.metrics.RecordStage(StagePublish, time.Since(start).Seconds(), err)
	}
	if err != nil {
		l.Warn("Report publish failed", logger.Error(err))
		return
	}
	l.Info("Report published")
}
