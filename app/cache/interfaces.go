package cache

import (
	"context"

	"github.com/lysyi3m/ad-comb/app/ads"
)

// Recorder receives one event per cache operation. result is one of
// hit, miss, ok, error or open.
type Recorder interface {
	CacheOp(op, result string)
}

type CacheInterface interface {
	ads.RotationCache
	Health(ctx context.Context) map[string]interface{}
	Close() error
}

var (
	_ CacheInterface     = (*RotationCache)(nil)
	_ CacheInterface     = Noop{}
	_ ads.CursorAdvancer = (*RotationCache)(nil)
)
