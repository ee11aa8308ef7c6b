package ads

import (
	"fmt"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeRandom    Mode = "random"
	ModeAfterFive Mode = "after5"
	ModePattern   Mode = "pattern"
)

const (
	DefaultPattern = "4,9,15"
	adInterval     = 5
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeAfterFive, nil
	case ModeRandom, ModeAfterFive, ModePattern:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Merge interleaves ads into content using mode. Neither input is modified.
func Merge(mode Mode, content []ContentItem, ads []Ad, pattern string, shuffle Shuffler) ([]FeedItem, error) {
	switch mode {
	case ModeRandom:
		return MergeRandom(content, ads, shuffle), nil
	case ModeAfterFive, "":
		return MergeAfterFive(content, ads), nil
	case ModePattern:
		return MergePattern(content, ads, pattern, shuffle)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// MergeRandom shuffles a copy of ads and places one after every fifth
// content item until ads run out.
func MergeRandom(content []ContentItem, ads []Ad, shuffle Shuffler) []FeedItem {
	return interleave(content, shuffled(ads, shuffle))
}

// MergeAfterFive places ads after every fifth content item in store order.
func MergeAfterFive(content []ContentItem, ads []Ad) []FeedItem {
	return interleave(content, ads)
}

// MergePattern places shuffled ads at absolute positions. The position list
// is extended by repeating its last gap until it covers content plus ads;
// a position with no ad left is filled with content.
func MergePattern(content []ContentItem, ads []Ad, pattern string, shuffle Shuffler) ([]FeedItem, error) {
	positions, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	total := len(content) + len(ads)
	slots := make(map[int]struct{}, total)
	for _, p := range ExtendPattern(positions, total) {
		slots[p] = struct{}{}
	}

	pool := shuffled(ads, shuffle)
	out := make([]FeedItem, 0, total)
	contentIdx, adIdx := 0, 0
	for i := 0; i < total; i++ {
		if _, isSlot := slots[i]; isSlot && adIdx < len(pool) {
			out = append(out, adItem(pool[adIdx]))
			adIdx++
			continue
		}
		if contentIdx < len(content) {
			out = append(out, contentItem(content[contentIdx]))
			contentIdx++
		}
	}
	return out, nil
}

// ParsePattern reads comma separated, strictly increasing, non-negative
// positions. An empty pattern yields DefaultPattern.
func ParsePattern(pattern string) ([]int, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}

	var positions []int
	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidPattern, part)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative position %d", ErrInvalidPattern, n)
		}
		if len(positions) > 0 && n <= positions[len(positions)-1] {
			return nil, fmt.Errorf("%w: positions must increase", ErrInvalidPattern)
		}
		positions = append(positions, n)
	}

	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions", ErrInvalidPattern)
	}
	return positions, nil
}

// ExtendPattern returns positions followed by positions spaced by the last
// gap, stopping before total. A single position p repeats every p+1.
func ExtendPattern(positions []int, total int) []int {
	if len(positions) == 0 {
		return nil
	}

	out := make([]int, len(positions))
	copy(out, positions)

	gap := positions[0] + 1
	if n := len(positions); n >= 2 {
		gap = positions[n-1] - positions[n-2]
	}

	for next := out[len(out)-1] + gap; next < total; next += gap {
		out = append(out, next)
	}
	return out
}

func interleave(content []ContentItem, ads []Ad) []FeedItem {
	out := make([]FeedItem, 0, len(content)+len(content)/adInterval)
	adIdx := 0
	for i, c := range content {
		out = append(out, contentItem(c))
		if (i+1)%adInterval == 0 && adIdx < len(ads) {
			out = append(out, adItem(ads[adIdx]))
			adIdx++
		}
	}
	return out
}

func shuffled(ads []Ad, shuffle Shuffler) []Ad {
	cp := make([]Ad, len(ads))
	copy(cp, ads)
	if shuffle == nil {
		shuffle = FisherYates
	}
	shuffle(cp)
	return cp
}
