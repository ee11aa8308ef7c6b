package api

import (
	"context"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
	"github.com/lysyi3m/ad-comb/app/metrics"
)

type BannerServer interface {
	Next(ctx context.Context, placement ads.Placement, section string) (ads.Ad, error)
}

type FeedBuilder interface {
	Build(ctx context.Context, q ads.FeedQuery) (*ads.FeedPage, error)
}

type DatabaseHealth interface {
	PingContext(ctx context.Context) error
}

type CacheHealth interface {
	Health(ctx context.Context) map[string]interface{}
}

var (
	_ BannerServer = (*ads.Rotator)(nil)
	_ FeedBuilder  = (*ads.FeedService)(nil)
)

type Handler struct {
	rotator   BannerServer
	feeds     FeedBuilder
	lifecycle *ads.Lifecycle
	db        DatabaseHealth
	cache     CacheHealth
	metrics   *metrics.Registry
	version   string
	started   time.Time
}

type createAdRequest struct {
	OwnerID      string  `json:"ownerId"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Plan         string  `json:"plan"`
	Section      string  `json:"section"`
	Price        float64 `json:"price"`
	TargetURL    string  `json:"targetUrl"`
	CallToAction string  `json:"callToAction"`
	Duration     int     `json:"duration"`
	ImageURL     string  `json:"imageUrl"`
	ImageKey     string  `json:"imageKey"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type pagination struct {
	TotalItems int `json:"totalItems"`
	Page       int `json:"page"`
	Pages      int `json:"pages"`
	Limit      int `json:"limit"`
}
