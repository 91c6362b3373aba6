package repository

import (
	"context"
	"time"

	"RegimeModel/internal/domain/models"
)

// SeriesSource provides daily bars for a symbol over an inclusive date range.
type SeriesSource interface {
	Name() string
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// SeriesCache persists and reloads the raw price series. Encode and
// Decode expose the on-disk format so it can be mirrored elsewhere.
type SeriesCache interface {
	Exists() bool
	Load() ([]models.Bar, error)
	Save(bars []models.Bar) error
	Encode(bars []models.Bar) ([]byte, error)
	Decode(b []byte) ([]models.Bar, error)
}

// BytesMirror is an optional remote copy of the encoded raw cache.
type BytesMirror interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
