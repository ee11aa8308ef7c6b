package ads

import (
	"context"
	"fmt"
)

// ContentSource pages through the content stream ads are merged into.
type ContentSource interface {
	GetContentPage(ctx context.Context, section string, page, limit int) ([]ContentItem, error)
	CountContent(ctx context.Context, section string) (int, error)
}

type FeedQuery struct {
	Mode      Mode
	Placement Placement
	Section   string
	Pattern   string
	Page      int
	Limit     int
}

type FeedPage struct {
	Items      []FeedItem
	TotalItems int
	Page       int
	Pages      int
	Limit      int
}

// FeedService builds merged pages. Ads are fetched per page and shuffled
// locally; the rotation cache is not involved.
type FeedService struct {
	content ContentSource
	ads     AdStore
	shuffle Shuffler
}

func NewFeedService(content ContentSource, ads AdStore) *FeedService {
	return &FeedService{content: content, ads: ads, shuffle: FisherYates}
}

func (s *FeedService) WithShuffler(shuffle Shuffler) *FeedService {
	s.shuffle = shuffle
	return s
}

func (s *FeedService) Build(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Mode == "" {
		q.Mode = ModeAfterFive
	}
	if q.Placement == "" {
		if q.Section != "" {
			q.Placement = PlacementSectionFeed
		} else {
			q.Placement = PlacementHomepageFeed
		}
	}

	filter, err := Resolve(q.Placement, q.Section, TypeSponsored)
	if err != nil {
		return nil, err
	}
	if q.Mode == ModePattern {
		if _, err := ParsePattern(q.Pattern); err != nil {
			return nil, err
		}
	}

	content, err := s.content.GetContentPage(ctx, NormalizeSection(q.Section), q.Page, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get content page: %w", err)
	}
	total, err := s.content.CountContent(ctx, NormalizeSection(q.Section))
	if err != nil {
		return nil, fmt.Errorf("failed to count content: %w", err)
	}

	eligible, err := s.ads.FindEligible(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed ads: %w", err)
	}

	items, err := Merge(q.Mode, content, eligible, q.Pattern, s.shuffle)
	if err != nil {
		return nil, err
	}

	return &FeedPage{
		Items:      items,
		TotalItems: total,
		Page:       q.Page,
		Pages:      (total + q.Limit - 1) / q.Limit,
		Limit:      q.Limit,
	}, nil
}
