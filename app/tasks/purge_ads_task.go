package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
)

// PurgeAdsTask deletes ads that expired more than the retention period ago,
// together with their creatives and rotation entries.
type PurgeAdsTask struct {
	Task
	finder    AdFinder
	reaper    AdReaper
	recorder  Recorder
	retention time.Duration
}

func NewPurgeAdsTask(now time.Time, retentionDays int, finder AdFinder, reaper AdReaper, recorder Recorder) *PurgeAdsTask {
	return &PurgeAdsTask{
		Task:      NewTask(TaskTypePurgeAds, now),
		finder:    finder,
		reaper:    reaper,
		recorder:  recorder,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (t *PurgeAdsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := t.SweepAt.Add(-t.retention)
	stale, err := t.finder.FindPurgeable(ctx, cutoff)
	if err != nil {
		err = fmt.Errorf("failed to find purgeable ads: %w", err)
		t.record(err)
		return err
	}

	deleted, skipped, failed := 0, 0, 0
	for _, candidate := range stale {
		if ctx.Err() != nil {
			break
		}

		if _, err := t.reaper.Delete(ctx, candidate.ID); err != nil {
			if errors.Is(err, ads.ErrAdNotFound) {
				skipped++
				t.outcome("skipped")
				continue
			}
			failed++
			t.outcome("failed")
			slog.Error("Failed to purge ad", "ad_id", candidate.ID, "error", err)
			continue
		}
		deleted++
		t.outcome("deleted")
	}

	if handled := deleted + skipped + failed; handled < len(stale) {
		err := fmt.Errorf("purge sweep interrupted after %d of %d ads: %w", handled, len(stale), ctx.Err())
		slog.Warn("Task interrupted", "type", string(t.Type), "duration", t.GetDuration(),
			"cutoff", cutoff, "stale", len(stale), "deleted", deleted, "skipped", skipped, "failed", failed)
		t.record(err)
		return err
	}

	slog.Info("Task completed", "type", string(t.Type), "duration", t.GetDuration(),
		"cutoff", cutoff, "stale", len(stale), "deleted", deleted, "skipped", skipped, "failed", failed)
	t.record(nil)
	return nil
}

func (t *PurgeAdsTask) record(err error) {
	if t.recorder != nil {
		t.recorder.ReaperRun(string(t.Type), err)
		t.recorder.TaskCompleted(string(t.Type), t.GetDuration())
	}
}

func (t *PurgeAdsTask) outcome(outcome string) {
	if t.recorder != nil {
		t.recorder.ReaperAd(string(t.Type), outcome)
	}
}
