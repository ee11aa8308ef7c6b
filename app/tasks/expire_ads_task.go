package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
)

// ExpireAdsTask moves every active or paused ad past its expiration date to
// expired and tells the owner. A failure on one ad is logged and the rest
// are still processed.
type ExpireAdsTask struct {
	Task
	finder   AdFinder
	reaper   AdReaper
	notifier ads.Notifier
	recorder Recorder
}

func NewExpireAdsTask(now time.Time, finder AdFinder, reaper AdReaper, notifier ads.Notifier, recorder Recorder) *ExpireAdsTask {
	return &ExpireAdsTask{
		Task:     NewTask(TaskTypeExpireAds, now),
		finder:   finder,
		reaper:   reaper,
		notifier: notifier,
		recorder: recorder,
	}
}

func (t *ExpireAdsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	due, err := t.finder.FindExpiring(ctx, t.SweepAt)
	if err != nil {
		err = fmt.Errorf("failed to find expiring ads: %w", err)
		t.record(err)
		return err
	}

	expired, skipped, failed := 0, 0, 0
	for _, candidate := range due {
		if ctx.Err() != nil {
			break
		}

		ad, err := t.reaper.Expire(ctx, candidate.ID)
		switch {
		case errors.Is(err, ads.ErrInvalidTransition), errors.Is(err, ads.ErrAdNotFound):
			// changed or removed since it was listed
			skipped++
			t.outcome("skipped")
			continue
		case err != nil:
			failed++
			t.outcome("failed")
			slog.Error("Failed to expire ad", "ad_id", candidate.ID, "error", err)
			continue
		}

		expired++
		t.outcome("expired")

		if t.notifier != nil {
			if err := t.notifier.Notify(ctx, ads.Notification{
				Recipient: ad.OwnerID,
				Type:      "ad_expired",
				Content:   fmt.Sprintf("Your ad %q has expired.", ad.Title),
				AdID:      ad.ID,
			}); err != nil {
				slog.Error("Failed to notify owner of expiry", "ad_id", ad.ID, "error", err)
			}
		}
	}

	if handled := expired + skipped + failed; handled < len(due) {
		err := fmt.Errorf("expiry sweep interrupted after %d of %d ads: %w", handled, len(due), ctx.Err())
		slog.Warn("Task interrupted", "type", string(t.Type), "duration", t.GetDuration(),
			"due", len(due), "expired", expired, "skipped", skipped, "failed", failed)
		t.record(err)
		return err
	}

	slog.Info("Task completed", "type", string(t.Type), "duration", t.GetDuration(),
		"due", len(due), "expired", expired, "skipped", skipped, "failed", failed)
	t.record(nil)
	return nil
}

func (t *ExpireAdsTask) record(err error) {
	if t.recorder != nil {
		t.recorder.ReaperRun(string(t.Type), err)
		t.recorder.TaskCompleted(string(t.Type), t.GetDuration())
	}
}

func (t *ExpireAdsTask) outcome(outcome string) {
	if t.recorder != nil {
		t.recorder.ReaperAd(string(t.Type), outcome)
	}
}
