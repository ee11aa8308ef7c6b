package ads

import (
	"context"
	"log/slog"
)

// Invalidator drops cached rotations so the next request rebuilds them from
// the store. It must only be called after the store write has committed.
type Invalidator struct {
	cache RotationCache
}

func NewInvalidator(cache RotationCache) *Invalidator {
	return &Invalidator{cache: cache}
}

func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	i.cache.Clear(ctx, keys...)
	slog.Debug("Rotation invalidated", "keys", keys)
}

func (i *Invalidator) InvalidateSection(ctx context.Context, section string) {
	i.Invalidate(ctx, sectionKey(NormalizeSection(section)))
}

func (i *Invalidator) InvalidateAd(ctx context.Context, ad Ad) {
	i.Invalidate(ctx, KeysForAd(ad)...)
}
