package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/ad-comb/app/ads"
)

type PostWriter interface {
	CreatePost(ctx context.Context, post ads.ContentItem) (*ads.ContentItem, error)
	CountContent(ctx context.Context, section string) (int, error)
}

// AssetWriter receives seeded creatives.
type AssetWriter interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Exists(key string) bool
}

// Apply loads the catalog through the lifecycle so seeded ads follow the
// same transitions as live ones. It does nothing when ads already exist.
func Apply(ctx context.Context, c *Catalog, lifecycle *ads.Lifecycle, posts PostWriter, assets AssetWriter) error {
	_, existing, err := lifecycle.List(ctx, ads.ListQuery{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to check existing ads: %w", err)
	}
	if existing > 0 {
		slog.Info("Skipping seed, ads already present", "count", existing)
		return nil
	}

	for _, s := range c.Ads {
		n := newAd(s)
		if s.ImageFile != "" {
			key, err := uploadCreative(ctx, assets, s.ImageFile)
			if err != nil {
				return fmt.Errorf("failed to seed creative for %q: %w", s.Title, err)
			}
			n.ImageKey = key
		}

		ad, err := lifecycle.Create(ctx, n)
		if err != nil {
			return fmt.Errorf("failed to seed ad %q: %w", s.Title, err)
		}
		if err := advance(ctx, lifecycle, ad.ID, ads.Status(s.Status)); err != nil {
			return fmt.Errorf("failed to seed ad %q: %w", s.Title, err)
		}
	}

	postCount, err := posts.CountContent(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to check existing posts: %w", err)
	}
	if postCount == 0 {
		for _, p := range c.Posts {
			if _, err := posts.CreatePost(ctx, ads.ContentItem{
				Section:  p.Section,
				Title:    p.Title,
				Body:     p.Body,
				AuthorID: p.Author,
			}); err != nil {
				return fmt.Errorf("failed to seed post %q: %w", p.Title, err)
			}
		}
	}

	slog.Info("Seed applied", "ads", len(c.Ads), "posts", len(c.Posts))
	return nil
}

// advance walks a pending ad forward to target.
func advance(ctx context.Context, l *ads.Lifecycle, id string, target ads.Status) error {
	steps := map[ads.Status][]func(context.Context, string) (*ads.Ad, error){
		ads.StatusPending:  nil,
		ads.StatusApproved: {l.Approve},
		ads.StatusActive:   {l.Approve, l.Activate},
		ads.StatusPaused: {l.Approve, l.Activate, func(ctx context.Context, id string) (*ads.Ad, error) {
			return l.Pause(ctx, id, "seeded")
		}},
	}
	for _, step := range steps[target] {
		if _, err := step(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// uploadCreative stores the file under seed/<name> unless an asset with that
// key is already present.
func uploadCreative(ctx context.Context, assets AssetWriter, file string) (string, error) {
	if assets == nil {
		return "", fmt.Errorf("no asset store configured")
	}

	key := "seed/" + filepath.Base(file)
	if assets.Exists(key) {
		return key, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open creative: %w", err)
	}
	defer f.Close()

	if err := assets.Put(ctx, key, f); err != nil {
		return "", err
	}
	slog.Debug("Seeded creative", "key", key, "file", file)
	return key, nil
}
