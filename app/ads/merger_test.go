package ads

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func makeContent(n int) []ContentItem {
	out := make([]ContentItem, n)
	for i := range out {
		out[i] = ContentItem{ID: fmt.Sprintf("p%d", i)}
	}
	return out
}

func makeAds(n int) []Ad {
	out := make([]Ad, n)
	for i := range out {
		out[i] = Ad{ID: fmt.Sprintf("ad%d", i), Type: TypeSponsored, Status: StatusActive}
	}
	return out
}

func adPositions(items []FeedItem) []int {
	var out []int
	for i, item := range items {
		if item.Kind == ItemAd {
			out = append(out, i)
		}
	}
	return out
}

func TestMergePatternExtends(t *testing.T) {
	items, err := MergePattern(makeContent(20), makeAds(5), "4,9", identity)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 25 {
		t.Fatalf("Expected 25 items, got %d", len(items))
	}
	want := []int{4, 9, 14, 19, 24}
	if got := adPositions(items); !slices.Equal(got, want) {
		t.Errorf("Expected ads at %v, got %v", want, got)
	}

	// Content keeps its order.
	next := 0
	for _, item := range items {
		if item.Kind == ItemContent {
			if item.Content.ID != fmt.Sprintf("p%d", next) {
				t.Fatalf("Content out of order at %s", item.Content.ID)
			}
			next++
		}
	}
}

func TestMergePatternFewerAds(t *testing.T) {
	items, err := MergePattern(makeContent(20), makeAds(2), "4,9,15", identity)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 22 {
		t.Fatalf("Expected 22 items, got %d", len(items))
	}
	if got := adPositions(items); !slices.Equal(got, []int{4, 9}) {
		t.Errorf("Expected ads at [4 9], got %v", got)
	}
}

func TestMergePatternShortContent(t *testing.T) {
	// Content runs out first: the remaining ads follow the last content item.
	items, err := MergePattern(makeContent(3), makeAds(5), "1", identity)
	if err != nil {
		t.Fatal(err)
	}

	if got := adPositions(items); len(got) == 0 || got[0] != 1 {
		t.Errorf("Expected first ad at 1, got %v", got)
	}
	contentCount := 0
	for _, item := range items {
		if item.Kind == ItemContent {
			contentCount++
		}
	}
	if contentCount != 3 {
		t.Errorf("Expected all 3 content items, got %d", contentCount)
	}
	if items[len(items)-1].Kind != ItemAd {
		t.Error("Expected trailing ad after content ran out")
	}
}

func TestExtendPattern(t *testing.T) {
	tests := []struct {
		positions []int
		total     int
		want      []int
	}{
		{[]int{4, 9}, 25, []int{4, 9, 14, 19, 24}},
		{[]int{4, 9, 15}, 30, []int{4, 9, 15, 21, 27}},
		{[]int{3}, 12, []int{3, 7, 11}},
		{[]int{0}, 4, []int{0, 1, 2, 3}},
		{[]int{4, 9}, 5, []int{4, 9}},
		{nil, 10, nil},
	}

	for _, tt := range tests {
		if got := ExtendPattern(tt.positions, tt.total); !slices.Equal(got, tt.want) {
			t.Errorf("ExtendPattern(%v, %d) = %v, want %v", tt.positions, tt.total, got, tt.want)
		}
	}
}

func TestParsePattern(t *testing.T) {
	got, err := ParsePattern("")
	if err != nil || !slices.Equal(got, []int{4, 9, 15}) {
		t.Errorf("Expected default pattern, got %v %v", got, err)
	}

	got, err = ParsePattern(" 2, 6 ,10")
	if err != nil || !slices.Equal(got, []int{2, 6, 10}) {
		t.Errorf("Expected [2 6 10], got %v %v", got, err)
	}

	for _, bad := range []string{"a,b", "4,4", "9,4", "-1,3", ",,"} {
		if _, err := ParsePattern(bad); !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Expected ErrInvalidPattern for %q, got %v", bad, err)
		}
	}
}

func TestMergeAfterFive(t *testing.T) {
	items := MergeAfterFive(makeContent(12), makeAds(5))

	if got := adPositions(items); !slices.Equal(got, []int{5, 11}) {
		t.Errorf("Expected ads at [5 11], got %v", got)
	}
	if len(items) != 14 {
		t.Errorf("Expected 14 items, got %d", len(items))
	}
	if items[5].Ad.ID != "ad0" || items[11].Ad.ID != "ad1" {
		t.Error("Expected ads in store order")
	}
}

func TestMergeAfterFiveNoAds(t *testing.T) {
	items := MergeAfterFive(makeContent(7), nil)
	if len(items) != 7 || len(adPositions(items)) != 0 {
		t.Errorf("Expected only content, got %d items", len(items))
	}
}

func TestMergeRandomDoesNotMutateInput(t *testing.T) {
	input := makeAds(4)
	before := slices.Clone(input)

	items := MergeRandom(makeContent(20), input, reverse)

	if !slices.Equal(ids(input), ids(before)) {
		t.Error("MergeRandom modified the caller's ads")
	}
	if got := adPositions(items); !slices.Equal(got, []int{5, 11, 17, 23}) {
		t.Errorf("Expected ads at [5 11 17 23], got %v", got)
	}
	if items[5].Ad.ID != "ad3" {
		t.Errorf("Expected shuffled first ad ad3, got %s", items[5].Ad.ID)
	}
}

func TestMergePatternDoesNotMutateInput(t *testing.T) {
	input := makeAds(3)
	before := slices.Clone(input)
	if _, err := MergePattern(makeContent(10), input, "", reverse); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(input), ids(before)) {
		t.Error("MergePattern modified the caller's ads")
	}
}

func TestMergeMode(t *testing.T) {
	if _, err := Merge(Mode("zigzag"), nil, nil, "", nil); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
	if _, err := ParseMode("zigzag"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
	if mode, err := ParseMode(""); err != nil || mode != ModeAfterFive {
		t.Errorf("Expected default after5, got %v %v", mode, err)
	}
	if _, err := Merge(ModePattern, makeContent(3), makeAds(1), "5,2", nil); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("Expected ErrInvalidPattern, got %v", err)
	}
}

func ids(ads []Ad) []string {
	out := make([]string, len(ads))
	for i, ad := range ads {
		out[i] = ad.ID
	}
	return out
}
