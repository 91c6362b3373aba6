package cache

import (
	"context"
	"time"
)

// BytesCache stores raw byte values with a TTL. A miss is reported as
// ok == false with a nil error.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	_ BytesCache = (*RedisCache)(nil)
	_ BytesCache = (*MemoryCache)(nil)
)
