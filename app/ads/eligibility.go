package ads

import (
	"fmt"
	"slices"
	"strings"
)

// Filter selects the ads eligible for a placement. An empty Plans slice
// means any plan, an empty Section means any section.
type Filter struct {
	Placement Placement
	Status    Status
	Type      Type
	Plans     []Plan
	Section   string
}

// Resolve maps a placement (and the section for section_feed) to its
// eligibility filter. adType defaults to banner when empty.
func Resolve(placement Placement, section string, adType Type) (Filter, error) {
	if adType == "" {
		adType = TypeBanner
	}
	if !adType.Valid() {
		return Filter{}, fmt.Errorf("%w: unknown ad type %q", ErrInvalidPlacement, adType)
	}

	filter := Filter{
		Placement: placement,
		Status:    StatusActive,
		Type:      adType,
	}

	switch placement {
	case PlacementHomepageFeed:
		filter.Plans = []Plan{PlanEnterprise}
	case PlacementDetailsFeed:
		filter.Plans = []Plan{PlanEnterprise, PlanProfessional}
	case PlacementSectionFeed:
		section = NormalizeSection(section)
		if section == "" {
			return Filter{}, fmt.Errorf("%w: section_feed requires a section", ErrInvalidPlacement)
		}
		filter.Section = section
	default:
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidPlacement, placement)
	}

	return filter, nil
}

func (f Filter) Matches(ad Ad) bool {
	if ad.Status != f.Status || ad.Type != f.Type {
		return false
	}
	if len(f.Plans) > 0 && !slices.Contains(f.Plans, ad.Plan) {
		return false
	}
	if f.Section != "" && ad.Section != f.Section {
		return false
	}
	return true
}

// CacheKey is the placement key the rotation for this filter is stored under.
func (f Filter) CacheKey() string {
	var key string
	if f.Placement == PlacementSectionFeed {
		key = sectionKey(f.Section)
	} else {
		key = string(f.Placement)
	}
	if f.Type != TypeBanner {
		key += ":" + string(f.Type)
	}
	return key
}

// KeysForAd lists every placement key under which ad may currently be
// rotated. Lifecycle changes clear all of them.
func KeysForAd(ad Ad) []string {
	keys := []string{
		sectionKey(NormalizeSection(ad.Section)),
		string(PlacementHomepageFeed),
		string(PlacementDetailsFeed),
	}
	if ad.Type != "" && ad.Type != TypeBanner {
		for i := range keys {
			keys[i] += ":" + string(ad.Type)
		}
	}
	return keys
}

func NormalizeSection(section string) string {
	return strings.ToLower(strings.TrimSpace(section))
}

func sectionKey(section string) string {
	return "section:" + section
}
