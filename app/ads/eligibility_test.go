package ads

import (
	"errors"
	"slices"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		placement Placement
		section   string
		adType    Type
		wantPlans []Plan
		wantSect  string
		wantKey   string
		wantErr   error
	}{
		{"homepage", PlacementHomepageFeed, "", "", []Plan{PlanEnterprise}, "", "homepage_feed", nil},
		{"homepage ignores section", PlacementHomepageFeed, "sports", "", []Plan{PlanEnterprise}, "", "homepage_feed", nil},
		{"details", PlacementDetailsFeed, "", "", []Plan{PlanEnterprise, PlanProfessional}, "", "details_feed", nil},
		{"section", PlacementSectionFeed, " Sports ", "", nil, "sports", "section:sports", nil},
		{"sponsored section", PlacementSectionFeed, "tech", TypeSponsored, nil, "tech", "section:tech:sponsored", nil},
		{"section required", PlacementSectionFeed, "  ", "", nil, "", "", ErrInvalidPlacement},
		{"unknown placement", Placement("sidebar"), "", "", nil, "", "", ErrInvalidPlacement},
		{"empty placement", Placement(""), "", "", nil, "", "", ErrInvalidPlacement},
		{"unknown type", PlacementHomepageFeed, "", Type("video"), nil, "", "", ErrInvalidPlacement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := Resolve(tt.placement, tt.section, tt.adType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if filter.Status != StatusActive {
				t.Errorf("Expected status active, got %s", filter.Status)
			}
			if !slices.Equal(filter.Plans, tt.wantPlans) {
				t.Errorf("Expected plans %v, got %v", tt.wantPlans, filter.Plans)
			}
			if filter.Section != tt.wantSect {
				t.Errorf("Expected section %q, got %q", tt.wantSect, filter.Section)
			}
			if got := filter.CacheKey(); got != tt.wantKey {
				t.Errorf("Expected key %q, got %q", tt.wantKey, got)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	details, _ := Resolve(PlacementDetailsFeed, "", "")
	section, _ := Resolve(PlacementSectionFeed, "news", "")

	candidates := []struct {
		ad      Ad
		details bool
		section bool
	}{
		{activeAd("e", PlanEnterprise, "news"), true, true},
		{activeAd("p", PlanProfessional, "tech"), true, false},
		{activeAd("b", PlanBasic, "news"), false, true},
		{Ad{ID: "paused", Status: StatusPaused, Type: TypeBanner, Plan: PlanEnterprise, Section: "news"}, false, false},
		{Ad{ID: "pending", Status: StatusPending, Type: TypeBanner, Plan: PlanEnterprise, Section: "news"}, false, false},
		{Ad{ID: "sponsored", Status: StatusActive, Type: TypeSponsored, Plan: PlanEnterprise, Section: "news"}, false, false},
	}

	for _, c := range candidates {
		if got := details.Matches(c.ad); got != c.details {
			t.Errorf("details.Matches(%s) = %v, want %v", c.ad.ID, got, c.details)
		}
		if got := section.Matches(c.ad); got != c.section {
			t.Errorf("section.Matches(%s) = %v, want %v", c.ad.ID, got, c.section)
		}
	}
}

func TestKeysForAd(t *testing.T) {
	banner := KeysForAd(Ad{Type: TypeBanner, Section: "Sports"})
	want := []string{"section:sports", "homepage_feed", "details_feed"}
	if !slices.Equal(banner, want) {
		t.Errorf("Expected %v, got %v", want, banner)
	}

	sponsored := KeysForAd(Ad{Type: TypeSponsored, Section: "tech"})
	want = []string{"section:tech:sponsored", "homepage_feed:sponsored", "details_feed:sponsored"}
	if !slices.Equal(sponsored, want) {
		t.Errorf("Expected %v, got %v", want, sponsored)
	}

	// Every key a resolved filter uses is covered.
	ad := activeAd("x", PlanEnterprise, "sports")
	for _, placement := range []Placement{PlacementHomepageFeed, PlacementDetailsFeed, PlacementSectionFeed} {
		filter, err := Resolve(placement, "sports", "")
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Contains(KeysForAd(ad), filter.CacheKey()) {
			t.Errorf("KeysForAd misses %s", filter.CacheKey())
		}
	}
}

func TestStatusCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusActive},
		StatusActive:   {StatusPaused, StatusExpired},
		StatusPaused:   {StatusActive, StatusExpired},
	}
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusActive, StatusPaused, StatusExpired}

	for _, from := range all {
		for _, to := range all {
			want := slices.Contains(allowed[from], to)
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}
