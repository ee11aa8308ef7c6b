package cache

import (
	"context"

	"github.com/lysyi3m/ad-comb/app/ads"
)

// Noop is the cache used when no Redis address is configured. Every
// request rebuilds and reshuffles its rotation.
type Noop struct{}

func (Noop) Load(context.Context, string) (*ads.RotationState, bool) { return nil, false }

func (Noop) Save(context.Context, string, ads.RotationState) {}

func (Noop) Clear(context.Context, ...string) {}

func (Noop) Health(context.Context) map[string]interface{} {
	return map[string]interface{}{"status": "disabled", "type": "none"}
}

func (Noop) Close() error { return nil }
