package ads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Transition is a conditional status change: it applies only while the ad
// is in one of From. Timestamps matching To are written alongside.
type Transition struct {
	To          Status
	From        []Status
	At          time.Time
	Reason      string
	ActivatedAt *time.Time
	ExpiresAt   *time.Time
}

type ListQuery struct {
	Status  Status
	OwnerID string
	Search  string
	Page    int
	Limit   int
}

type Counter string

const (
	CounterImpressions Counter = "impressions"
	CounterClicks      Counter = "clicks"
)

// Store is the durable ad store.
type Store interface {
	AdStore
	Create(ctx context.Context, ad Ad) (*Ad, error)
	Get(ctx context.Context, id string) (*Ad, error)
	List(ctx context.Context, q ListQuery) ([]Ad, int, error)
	Transition(ctx context.Context, id string, t Transition) (*Ad, error)
	Delete(ctx context.Context, id string) (bool, error)
	Increment(ctx context.Context, id string, counter Counter) (*Ad, error)
	FindExpiring(ctx context.Context, now time.Time) ([]Ad, error)
	FindPurgeable(ctx context.Context, cutoff time.Time) ([]Ad, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type Notification struct {
	Recipient string // empty for admin broadcast
	Type      string
	Content   string
	AdID      string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type AssetStore interface {
	Delete(ctx context.Context, key string) error
}

type NewAd struct {
	OwnerID      string
	Type         Type
	Title        string
	Content      string
	Plan         Plan
	Section      string
	Price        float64
	TargetURL    string
	CallToAction string
	DurationDays int
	ImageURL     string
	ImageKey     string
}

func (n NewAd) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAd)
	}
	if n.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidAd)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAd, n.Type)
	}
	if !n.Plan.Valid() {
		return fmt.Errorf("%w: unknown plan %q", ErrInvalidAd, n.Plan)
	}
	if NormalizeSection(n.Section) == "" {
		return fmt.Errorf("%w: section is required", ErrInvalidAd)
	}
	if n.DurationDays <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidAd)
	}
	if n.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidAd)
	}
	return nil
}

// Lifecycle applies ad mutations. Each mutation commits to the store first,
// then invalidates the rotations the ad could appear in.
type Lifecycle struct {
	store       Store
	invalidator *Invalidator
	notifier    Notifier
	assets      AssetStore
	now         func() time.Time
}

func NewLifecycle(store Store, invalidator *Invalidator, notifier Notifier, assets AssetStore) *Lifecycle {
	return &Lifecycle{
		store:       store,
		invalidator: invalidator,
		notifier:    notifier,
		assets:      assets,
		now:         time.Now,
	}
}

func (l *Lifecycle) Create(ctx context.Context, n NewAd) (*Ad, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	ad, err := l.store.Create(ctx, Ad{
		OwnerID:      n.OwnerID,
		Type:         n.Type,
		Title:        strings.TrimSpace(n.Title),
		Content:      n.Content,
		Plan:         n.Plan,
		Section:      NormalizeSection(n.Section),
		Price:        n.Price,
		Status:       StatusPending,
		TargetURL:    n.TargetURL,
		CallToAction: n.CallToAction,
		DurationDays: n.DurationDays,
		ImageURL:     n.ImageURL,
		ImageKey:     n.ImageKey,
		SubmittedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}

	l.notify(ctx, Notification{
		Type:    "admin",
		Content: fmt.Sprintf("A new ad titled %q submitted", ad.Title),
		AdID:    ad.ID,
	})
	return ad, nil
}

func (l *Lifecycle) Get(ctx context.Context, id string) (*Ad, error) {
	return l.store.Get(ctx, id)
}

func (l *Lifecycle) List(ctx context.Context, q ListQuery) ([]Ad, int, error) {
	return l.store.List(ctx, q)
}

// CountByStatus returns a count for every known status, zero included.
func (l *Lifecycle) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts, err := l.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count ads: %w", err)
	}
	out := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		out[s] = counts[s]
	}
	return out, nil
}

func (l *Lifecycle) Approve(ctx context.Context, id string) (*Ad, error) {
	ad, err := l.transition(ctx, id, Transition{To: StatusApproved, From: []Status{StatusPending}})
	if err != nil {
		return nil, err
	}
	l.notify(ctx, Notification{
		Recipient: ad.OwnerID,
		Type:      "ad_approved",
		Content:   fmt.Sprintf("Your ad %q has been approved.", ad.Title),
		AdID:      ad.ID,
	})
	return ad, nil
}

func (l *Lifecycle) Reject(ctx context.Context, id, reason string) (*Ad, error) {
	ad, err := l.transition(ctx, id, Transition{To: StatusRejected, From: []Status{StatusPending}, Reason: reason})
	if err != nil {
		return nil, err
	}
	l.notify(ctx, Notification{
		Recipient: ad.OwnerID,
		Type:      "ad_rejected",
		Content:   fmt.Sprintf("Your ad %q has been rejected. Reason: %s", ad.Title, reason),
		AdID:      ad.ID,
	})
	return ad, nil
}

// Activate starts the ad's paid run: expiration is activation plus the
// duration chosen at creation.
func (l *Lifecycle) Activate(ctx context.Context, id string) (*Ad, error) {
	current, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	activatedAt := l.now().UTC()
	expiresAt := activatedAt.AddDate(0, 0, current.DurationDays)
	ad, err := l.transition(ctx, id, Transition{
		To:          StatusActive,
		From:        []Status{StatusApproved},
		ActivatedAt: &activatedAt,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		return nil, err
	}
	l.notify(ctx, Notification{
		Recipient: ad.OwnerID,
		Type:      "ad_activated",
		Content:   fmt.Sprintf("Your ad %q has been activated.", ad.Title),
		AdID:      ad.ID,
	})
	return ad, nil
}

func (l *Lifecycle) Pause(ctx context.Context, id, reason string) (*Ad, error) {
	ad, err := l.transition(ctx, id, Transition{To: StatusPaused, From: []Status{StatusActive}, Reason: reason})
	if err != nil {
		return nil, err
	}
	l.notify(ctx, Notification{
		Recipient: ad.OwnerID,
		Type:      "ad_paused",
		Content:   fmt.Sprintf("Your ad %q has been paused. Reason: %s", ad.Title, reason),
		AdID:      ad.ID,
	})
	return ad, nil
}

func (l *Lifecycle) Resume(ctx context.Context, id string) (*Ad, error) {
	return l.transition(ctx, id, Transition{To: StatusActive, From: []Status{StatusPaused}})
}

// Expire is used by the reaper. Expiring an already expired ad returns
// ErrInvalidTransition and changes nothing.
func (l *Lifecycle) Expire(ctx context.Context, id string) (*Ad, error) {
	return l.transition(ctx, id, Transition{To: StatusExpired, From: []Status{StatusActive, StatusPaused}})
}

// Delete removes the ad, then its creative and cached rotations. A missing
// ad is reported as ErrAdNotFound.
func (l *Lifecycle) Delete(ctx context.Context, id string) (*Ad, error) {
	ad, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	deleted, err := l.store.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete ad: %w", err)
	}
	if !deleted {
		return nil, fmt.Errorf("%w: %s", ErrAdNotFound, id)
	}

	if ad.ImageKey != "" && l.assets != nil {
		if err := l.assets.Delete(ctx, ad.ImageKey); err != nil {
			slog.Error("Failed to delete ad asset", "ad_id", ad.ID, "key", ad.ImageKey, "error", err)
		}
	}
	l.invalidator.InvalidateAd(ctx, *ad)
	return ad, nil
}

func (l *Lifecycle) RecordImpression(ctx context.Context, id string) (*Ad, error) {
	return l.store.Increment(ctx, id, CounterImpressions)
}

func (l *Lifecycle) RecordClick(ctx context.Context, id string) (*Ad, error) {
	return l.store.Increment(ctx, id, CounterClicks)
}

func (l *Lifecycle) transition(ctx context.Context, id string, t Transition) (*Ad, error) {
	if t.At.IsZero() {
		t.At = l.now().UTC()
	}
	ad, err := l.store.Transition(ctx, id, t)
	if err != nil {
		return nil, err
	}
	l.invalidator.InvalidateAd(ctx, *ad)
	slog.Info("Ad status changed", "ad_id", ad.ID, "status", string(ad.Status), "section", ad.Section)
	return ad, nil
}

func (l *Lifecycle) notify(ctx context.Context, n Notification) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, n); err != nil {
		slog.Error("Failed to send notification", "type", n.Type, "ad_id", n.AdID, "error", err)
	}
}
