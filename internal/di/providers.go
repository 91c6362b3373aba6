package di

import (
	"context"
	"fmt"
	"time"

	"RegimeModel/internal/domain/repository"
	domsvc "RegimeModel/internal/domain/service"
	internalrepo "RegimeModel/internal/repository"
	"RegimeModel/internal/service/fmp"
	"RegimeModel/internal/services/backtest"
	"RegimeModel/internal/services/hmm"
	"RegimeModel/internal/services/signals"
	"RegimeModel/internal/usecase"
	pkgcache "RegimeModel/pkg/cache"
	pkgch "RegimeModel/pkg/clickhouse"
	"RegimeModel/pkg/config"
	pkgkafka "RegimeModel/pkg/kafka"
	"RegimeModel/pkg/logger"
	"RegimeModel/pkg/metrics"
	"RegimeModel/pkg/server"
)

var (
	_ domsvc.RegimeEngine        = (*hmm.Engine)(nil)
	_ domsvc.SignalGenerator     = (*signals.Generator)(nil)
	_ domsvc.BacktestEvaluator   = (*backtest.Evaluator)(nil)
	_ repository.SeriesSource    = (*fmp.Client)(nil)
	_ repository.SeriesSource    = (*internalrepo.CHBarStore)(nil)
	_ repository.SeriesCache     = (*internalrepo.CSVSeriesCache)(nil)
	_ repository.BytesMirror     = (*pkgcache.RedisCache)(nil)
	_ repository.ReportPublisher = (*internalrepo.KafkaReportPublisher)(nil)
	_ repository.Metrics         = (*metrics.Recorder)(nil)
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetricsRepository exposes the recorder through the domain interface.
func ProvideMetricsRepository(r *metrics.Recorder) repository.Metrics {
	return r
}

func noop() {}

// closer adapts a Close method into a wire cleanup function.
func closer(l *logger.Logger, name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			l.Warn("Close failed", logger.String("resource", name), logger.Error(err))
		}
	}
}

// ProvideClickHouseClient connects to ClickHouse when it is the configured
// price source. It returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Data.Source != "clickhouse" {
		return nil, noop, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, closer(l, "clickhouse", client.Close), nil
}

// ProvideSeriesSource selects the remote price source.
func ProvideSeriesSource(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) (repository.SeriesSource, error) {
	if cfg.Data.Source != "clickhouse" {
		return fmp.NewClient(cfg, l), nil
	}

	store, err := internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Table, l)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, store.Schema()); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSeriesCache creates the on-disk raw price cache.
func ProvideSeriesCache(cfg *config.Config) repository.SeriesCache {
	return internalrepo.NewCSVSeriesCache(cfg.Data.RawDataPath)
}

// ProvideRedisCache connects the optional raw cache mirror. It returns nil
// when the mirror is disabled.
func ProvideRedisCache(cfg *config.Config, l *logger.Logger) (*pkgcache.RedisCache, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, noop, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		pkgcache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, closer(l, "redis", rc.Close), nil
}

// ProvideSeriesLoader creates the series loading use case.
func ProvideSeriesLoader(
	cfg *config.Config,
	c repository.SeriesCache,
	src repository.SeriesSource,
	rc *pkgcache.RedisCache,
	l *logger.Logger,
) *usecase.SeriesLoader {
	var mirror repository.BytesMirror
	if rc != nil {
		mirror = rc
	}
	return usecase.NewSeriesLoader(c, src, mirror, cfg.Cache.Redis.TTL, l)
}

// ProvideKafkaProducer creates a Kafka producer when report publishing is
// enabled. It returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, closer(l, "kafka", producer.Close), nil
}

// ProvideReportPublisher wraps the producer. It returns nil when there is
// no producer.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRegimeEngine creates the HMM engine.
func ProvideRegimeEngine(l *logger.Logger, m repository.Metrics) domsvc.RegimeEngine {
	return hmm.NewEngine(l, m)
}

// ProvideSignalGenerator creates the signal generator.
func ProvideSignalGenerator() domsvc.SignalGenerator {
	return signals.NewGenerator()
}

// ProvideBacktestEvaluator creates the backtest evaluator.
func ProvideBacktestEvaluator(cfg *config.Config) domsvc.BacktestEvaluator {
	return backtest.NewEvaluator(float64(cfg.Backtesting.AnnualTradingDays))
}

// ProvidePipeline creates the pipeline use case.
func ProvidePipeline(
	cfg *config.Config,
	loader *usecase.SeriesLoader,
	engine domsvc.RegimeEngine,
	gen domsvc.SignalGenerator,
	eval domsvc.BacktestEvaluator,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(cfg, loader, engine, gen, eval, pub, m, l)
}

// ProvideApp creates the batch application. Client lifetimes are owned by
// the injector's cleanup function.
func ProvideApp(cfg *config.Config, pipeline *usecase.Pipeline, recorder *metrics.Recorder, l *logger.Logger) *server.App {
	return server.New(cfg, pipeline, recorder, l)
}
