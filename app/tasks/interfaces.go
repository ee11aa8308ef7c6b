package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to run the daily reaper.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// AdReaper is the lifecycle surface the reaper tasks drive.
type AdReaper interface {
	Expire(ctx context.Context, id string) (*ads.Ad, error)
	Delete(ctx context.Context, id string) (*ads.Ad, error)
}

type AdFinder interface {
	FindExpiring(ctx context.Context, now time.Time) ([]ads.Ad, error)
	FindPurgeable(ctx context.Context, cutoff time.Time) ([]ads.Ad, error)
}

type Recorder interface {
	ReaperRun(task string, err error)
	ReaperAd(task, outcome string)
	TaskCompleted(task string, d time.Duration)
}

var _ AdReaper = (*ads.Lifecycle)(nil)
