package usecase

import (
	"context"
	"fmt"
	"time"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	domrepo "RegimeModel/internal/domain/repository"
	"RegimeModel/pkg/cache"
	"RegimeModel/pkg/logger"
	"RegimeModel/pkg/util"
)

// SeriesLoader returns the raw price series, preferring the local cache,
// then the optional mirror, then the remote source.
type SeriesLoader struct {
	cache     domrepo.SeriesCache
	source    domrepo.SeriesSource
	mirror    domrepo.BytesMirror
	mirrorTTL time.Duration
	l         *logger.Logger
}

// NewSeriesLoader builds a loader. mirror may be nil.
func NewSeriesLoader(c domrepo.SeriesCache, src domrepo.SeriesSource, mirror domrepo.BytesMirror, mirrorTTL time.Duration, l *logger.Logger) *SeriesLoader {
	if l == nil {
		l = logger.Nop()
	}
	return &SeriesLoader{cache: c, source: src, mirror: mirror, mirrorTTL: mirrorTTL, l: l}
}

type LoadSeriesParams struct {
	Symbol string
	From   time.Time
	To     time.Time
}

func (uc *SeriesLoader) Load(ctx context.Context, p LoadSeriesParams) ([]models.Bar, error) {
	if p.Symbol == "" {
		return nil, errs.Configuration("ERR_SYMBOL_REQUIRED", "symbol required")
	}
	if p.From.After(p.To) {
		return nil, errs.Configuration("ERR_DATE_RANGE", "from must be <= to")
	}

	if uc.cache.Exists() {
		uc.l.Info("Loading cached data", logger.String("symbol", p.Symbol))
		bars, err := uc.cache.Load()
		if err != nil {
			return nil, err
		}
		return bars, nil
	}

	key := mirrorKey(p)
	if bars, ok := uc.fromMirror(ctx, key); ok {
		if err := uc.cache.Save(bars); err != nil {
			return nil, errs.Wrap(errs.KindDataSource, "ERR_CACHE_WRITE", err, "persist price cache")
		}
		return bars, nil
	}

	uc.l.Info("Downloading",
		logger.String("source", uc.source.Name()),
		logger.String("symbol", p.Symbol),
		logger.Time("from", p.From),
		logger.Time("to", p.To),
	)
	bars, err := uc.source.GetBars(ctx, p.Symbol, p.From, p.To)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, errs.DataSource("ERR_EMPTY_SERIES", fmt.Sprintf("%s returned no bars for %s", uc.source.Name(), p.Symbol))
	}

	if err := uc.cache.Save(bars); err != nil {
		return nil, errs.Wrap(errs.KindDataSource, "ERR_CACHE_WRITE", err, "persist price cache")
	}
	uc.toMirror(ctx, key, bars)
	return bars, nil
}

func (uc *SeriesLoader) fromMirror(ctx context.Context, key string) ([]models.Bar, bool) {
	if uc.mirror == nil {
		return nil, false
	}
	b, ok, err := uc.mirror.GetBytes(ctx, key)
	if err != nil {
		uc.l.Warn("Cache mirror read failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	bars, err := uc.cache.Decode(b)
	if err != nil || len(bars) == 0 {
		uc.l.Warn("Ignoring unreadable mirror entry", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	uc.l.Info("Loading mirrored data", logger.String("key", key), logger.Int("rows", len(bars)))
	return bars, true
}

func (uc *SeriesLoader) toMirror(ctx context.Context, key string, bars []models.Bar) {
	if uc.mirror == nil {
		return
	}
	b, err := uc.cache.Encode(bars)
	if err == nil {
		err = uc.mirror.SetBytes(ctx, key, b, uc.mirrorTTL)
	}
	if err != nil {
		uc.l.Warn("Cache mirror write failed", logger.String("key", key), logger.Error(err))
	}
}

func mirrorKey(p LoadSeriesParams) string {
	return cache.GenerateKeyWithParams("bars", p.Symbol, util.FormatDate(p.From), util.FormatDate(p.To))
}
