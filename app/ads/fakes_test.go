package ads

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store that applies conditional transitions like
// the sqlite repository.
type memStore struct {
	mu      sync.Mutex
	ads     map[string]Ad
	seq     int
	queries int
}

func newMemStore(items ...Ad) *memStore {
	s := &memStore{ads: make(map[string]Ad)}
	for _, ad := range items {
		s.ads[ad.ID] = ad
	}
	return s
}

func (s *memStore) FindEligible(_ context.Context, filter Filter) ([]Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	var out []Ad
	for _, ad := range s.ads {
		if filter.Matches(ad) {
			out = append(out, ad)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Create(_ context.Context, ad Ad) (*Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ad.ID = fmt.Sprintf("ad-%d", s.seq)
	s.ads[ad.ID] = ad
	return &ad, nil
}

func (s *memStore) Get(_ context.Context, id string) (*Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdNotFound, id)
	}
	return &ad, nil
}

func (s *memStore) List(_ context.Context, q ListQuery) ([]Ad, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ad
	for _, ad := range s.ads {
		if q.Status == "" || ad.Status == q.Status {
			out = append(out, ad)
		}
	}
	return out, len(out), nil
}

func (s *memStore) Transition(_ context.Context, id string, t Transition) (*Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdNotFound, id)
	}
	if !slices.Contains(t.From, ad.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, ad.Status, t.To)
	}
	ad.Status = t.To
	switch t.To {
	case StatusRejected:
		ad.RejectionReason = t.Reason
	case StatusActive:
		ad.PausedAt = nil
		if t.ActivatedAt != nil {
			ad.ActivatedAt = t.ActivatedAt
		}
		if t.ExpiresAt != nil {
			ad.ExpiresAt = t.ExpiresAt
		}
	case StatusPaused:
		at := t.At
		ad.PausedAt = &at
	}
	s.ads[id] = ad
	return &ad, nil
}

func (s *memStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ads[id]
	delete(s.ads, id)
	return ok, nil
}

func (s *memStore) Increment(_ context.Context, id string, counter Counter) (*Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdNotFound, id)
	}
	if counter == CounterClicks {
		ad.Clicks++
	} else {
		ad.Impressions++
	}
	s.ads[id] = ad
	return &ad, nil
}

func (s *memStore) FindExpiring(context.Context, time.Time) ([]Ad, error) { return nil, nil }

func (s *memStore) FindPurgeable(context.Context, time.Time) ([]Ad, error) { return nil, nil }

func (s *memStore) CountByStatus(context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Status]int)
	for _, ad := range s.ads {
		counts[ad.Status]++
	}
	return counts, nil
}

func (s *memStore) set(id string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad := s.ads[id]
	ad.Status = status
	s.ads[id] = ad
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]RotationState
	cleared []string
	loads   int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]RotationState)}
}

func (c *memCache) Load(_ context.Context, key string) (*RotationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	state, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	cp := RotationState{Ads: slices.Clone(state.Ads), Cursor: state.Cursor}
	return &cp, true
}

func (c *memCache) Save(_ context.Context, key string, state RotationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = RotationState{Ads: slices.Clone(state.Ads), Cursor: state.Cursor}
}

func (c *memCache) Clear(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.cleared = append(c.cleared, keys...)
}

// identity keeps store order so tests are deterministic.
func identity([]Ad) {}

// reverse is a deterministic non-trivial shuffle.
func reverse(ads []Ad) { slices.Reverse(ads) }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

type recordingAssets struct {
	deleted []string
	err     error
}

func (a *recordingAssets) Delete(_ context.Context, key string) error {
	a.deleted = append(a.deleted, key)
	return a.err
}

func activeAd(id string, plan Plan, section string) Ad {
	return Ad{ID: id, Status: StatusActive, Type: TypeBanner, Plan: plan, Section: section}
}
