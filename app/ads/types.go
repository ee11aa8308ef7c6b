package ads

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusExpired  Status = "expired"
)

var AllStatuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusActive, StatusPaused, StatusExpired}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusActive, StatusPaused, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether an ad in status s may move to next.
// Expiry is only reached through the reaper, deletion is not a status.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusActive
	case StatusActive:
		return next == StatusPaused || next == StatusExpired
	case StatusPaused:
		return next == StatusActive || next == StatusExpired
	}
	return false
}

type Plan string

const (
	PlanBasic        Plan = "basic"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

func (p Plan) Valid() bool {
	return p == PlanBasic || p == PlanProfessional || p == PlanEnterprise
}

type Type string

const (
	TypeSponsored Type = "sponsored"
	TypeBanner    Type = "banner"
)

func (t Type) Valid() bool {
	return t == TypeSponsored || t == TypeBanner
}

type Placement string

const (
	PlacementHomepageFeed Placement = "homepage_feed"
	PlacementDetailsFeed  Placement = "details_feed"
	PlacementSectionFeed  Placement = "section_feed"
)

type Ad struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Type            Type       `json:"type"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	ImageKey        string     `json:"imageKey,omitempty"` // asset storage key
	Plan            Plan       `json:"plan"`
	Section         string     `json:"section"`
	Price           float64    `json:"price"`
	Status          Status     `json:"status"`
	TargetURL       string     `json:"targetUrl,omitempty"`
	CallToAction    string     `json:"callToAction,omitempty"`
	DurationDays    int        `json:"duration"`
	SubmittedAt     time.Time  `json:"submittedDate"`
	ApprovedAt      *time.Time `json:"approvedDate,omitempty"`
	RejectedAt      *time.Time `json:"rejectedDate,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	ActivatedAt     *time.Time `json:"activatedDate,omitempty"`
	ExpiresAt       *time.Time `json:"expirationDate,omitempty"` // set on activation
	PausedAt        *time.Time `json:"pausedDate,omitempty"`
	Impressions     int64      `json:"impressions"`
	Clicks          int64      `json:"clicks"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// RotationState is the cached, shuffled snapshot served for one placement key.
type RotationState struct {
	Ads    []Ad `json:"ads"`
	Cursor int  `json:"index"`
}

type ContentItem struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

type ItemKind string

const (
	ItemContent ItemKind = "content"
	ItemAd      ItemKind = "ad"
)

// FeedItem holds exactly one of Content or Ad, selected by Kind.
type FeedItem struct {
	Kind    ItemKind     `json:"_type"`
	Content *ContentItem `json:"content,omitempty"`
	Ad      *Ad          `json:"ad,omitempty"`
}

func contentItem(c ContentItem) FeedItem {
	return FeedItem{Kind: ItemContent, Content: &c}
}

func adItem(a Ad) FeedItem {
	return FeedItem{Kind: ItemAd, Ad: &a}
}
