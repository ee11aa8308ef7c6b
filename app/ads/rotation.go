package ads

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// AdStore is the read side of the durable ad store used for rotation and feeds.
type AdStore interface {
	FindEligible(ctx context.Context, filter Filter) ([]Ad, error)
}

// RotationCache holds RotationState per placement key. Implementations
// swallow backend failures: a failed Load is a miss, a failed Save or Clear
// is a no-op.
type RotationCache interface {
	Load(ctx context.Context, key string) (*RotationState, bool)
	Save(ctx context.Context, key string, state RotationState)
	Clear(ctx context.Context, keys ...string)
}

// CursorAdvancer atomically returns the next position for key in [0, n).
// ok is false when the backend could not serve the increment.
type CursorAdvancer interface {
	Advance(ctx context.Context, key string, n int) (pos int, ok bool)
}

// Shuffler permutes ads in place.
type Shuffler func(ads []Ad)

// FisherYates is the default Shuffler.
func FisherYates(ads []Ad) {
	for i := len(ads) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		ads[i], ads[j] = ads[j], ads[i]
	}
}

type Observer interface {
	RotationRebuilt(key string, size int)
	AdServed(key string)
}

type Rotator struct {
	store    AdStore
	cache    RotationCache
	advancer CursorAdvancer
	shuffle  Shuffler
	observer Observer
}

type RotatorOption func(*Rotator)

func WithShuffler(s Shuffler) RotatorOption {
	return func(r *Rotator) { r.shuffle = s }
}

// WithAtomicCursor replaces the read-modify-write cursor with an atomic
// increment on the cache backend.
func WithAtomicCursor(a CursorAdvancer) RotatorOption {
	return func(r *Rotator) { r.advancer = a }
}

func WithObserver(o Observer) RotatorOption {
	return func(r *Rotator) { r.observer = o }
}

func NewRotator(store AdStore, cache RotationCache, opts ...RotatorOption) *Rotator {
	r := &Rotator{
		store:   store,
		cache:   cache,
		shuffle: FisherYates,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the ad at the rotation cursor for the placement and advances
// the cursor. Under concurrent callers on the same key without an atomic
// cursor, positions may be served twice or skipped.
func (r *Rotator) Next(ctx context.Context, placement Placement, section string) (Ad, error) {
	filter, err := Resolve(placement, section, TypeBanner)
	if err != nil {
		return Ad{}, err
	}
	key := filter.CacheKey()

	state, hit := r.cache.Load(ctx, key)
	rebuilt := false
	if !hit || state == nil || len(state.Ads) == 0 {
		state, err = r.build(ctx, filter)
		if err != nil {
			return Ad{}, err
		}
		rebuilt = true
		if r.observer != nil {
			r.observer.RotationRebuilt(key, len(state.Ads))
		}
	}

	var ad Ad
	pos, advanced := -1, false
	if r.advancer != nil {
		if rebuilt {
			r.cache.Save(ctx, key, *state)
		}
		pos, advanced = r.advancer.Advance(ctx, key, len(state.Ads))
	}
	if advanced {
		ad = state.Ads[pos]
	} else {
		// Read-modify-write on the snapshot cursor, also the fallback when
		// the atomic increment is unavailable.
		cursor := clampCursor(state.Cursor, len(state.Ads))
		ad = state.Ads[cursor]
		state.Cursor = (cursor + 1) % len(state.Ads)
		r.cache.Save(ctx, key, *state)
	}

	if r.observer != nil {
		r.observer.AdServed(key)
	}
	return ad, nil
}

func (r *Rotator) build(ctx context.Context, filter Filter) (*RotationState, error) {
	eligible, err := r.store.FindEligible(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible ads: %w", err)
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEligibleAds, filter.CacheKey())
	}

	shuffled := make([]Ad, len(eligible))
	copy(shuffled, eligible)
	r.shuffle(shuffled)

	slog.Debug("Rotation rebuilt", "key", filter.CacheKey(), "ads", len(shuffled))
	return &RotationState{Ads: shuffled, Cursor: 0}, nil
}

func clampCursor(cursor, n int) int {
	if cursor < 0 || cursor >= n {
		return 0
	}
	return cursor
}
