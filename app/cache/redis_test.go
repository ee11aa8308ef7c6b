package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/lysyi3m/ad-comb/app/ads"
	"github.com/redis/go-redis/v9"
)

type countingRecorder struct {
	events map[string]int
}

func (r *countingRecorder) CacheOp(op, result string) {
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[op+":"+result]++
}

func testState() ads.RotationState {
	return ads.RotationState{
		Ads: []ads.Ad{
			{ID: "a1", Status: ads.StatusActive, Type: ads.TypeBanner, Plan: ads.PlanEnterprise, Section: "tech"},
			{ID: "a2", Status: ads.StatusActive, Type: ads.TypeBanner, Plan: ads.PlanEnterprise, Section: "tech"},
		},
		Cursor: 1,
	}
}

func TestKeyFormat(t *testing.T) {
	if got := stateKey("homepage_feed"); got != "ads:homepage_feed" {
		t.Errorf("Expected key ads:homepage_feed, got %s", got)
	}
	if got := stateKey("section:sports"); got != "ads:section:sports" {
		t.Errorf("Expected key ads:section:sports, got %s", got)
	}
	if got := cursorKey("details_feed"); got != "ads:details_feed:cursor" {
		t.Errorf("Expected key ads:details_feed:cursor, got %s", got)
	}
}

func TestRotationCache_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("hit decodes state", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		rec := &countingRecorder{}
		c := NewRotationCache(db, Options{Recorder: rec})

		payload, _ := json.Marshal(testState())
		mock.ExpectGet("ads:homepage_feed").SetVal(string(payload))

		state, ok := c.Load(ctx, "homepage_feed")
		if !ok {
			t.Fatal("Expected cache hit")
		}
		if len(state.Ads) != 2 || state.Cursor != 1 {
			t.Errorf("Unexpected state: %+v", state)
		}
		if rec.events["get:hit"] != 1 {
			t.Errorf("Expected one hit recorded, got %v", rec.events)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Redis expectations not met: %v", err)
		}
	})

	t.Run("nil is a miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewRotationCache(db, Options{})

		mock.ExpectGet("ads:details_feed").RedisNil()

		state, ok := c.Load(ctx, "details_feed")
		if ok || state != nil {
			t.Errorf("Expected miss, got %+v", state)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Redis expectations not met: %v", err)
		}
	})

	t.Run("backend error is a miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		rec := &countingRecorder{}
		c := NewRotationCache(db, Options{Recorder: rec})

		mock.ExpectGet("ads:homepage_feed").SetErr(errors.New("connection refused"))

		if _, ok := c.Load(ctx, "homepage_feed"); ok {
			t.Error("Expected miss on backend error")
		}
		if rec.events["get:error"] != 1 {
			t.Errorf("Expected one error recorded, got %v", rec.events)
		}
	})

	t.Run("corrupt payload is dropped", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := NewRotationCache(db, Options{})

		mock.ExpectGet("ads:homepage_feed").SetVal("{not json")
		mock.ExpectDel("ads:homepage_feed", "ads:homepage_feed:cursor").SetVal(1)

		if _, ok := c.Load(ctx, "homepage_feed"); ok {
			t.Error("Expected miss on corrupt payload")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Redis expectations not met: %v", err)
		}
	})
}

func TestRotationCache_Save(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRotationCache(db, Options{TTL: 600 * time.Second})

	state := testState()
	payload, _ := json.Marshal(state)
	mock.ExpectSet("ads:section:tech", payload, 600*time.Second).SetVal("OK")

	c.Save(ctx, "section:tech", state)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations not met: %v", err)
	}
}

func TestRotationCache_SaveErrorIsSwallowed(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rec := &countingRecorder{}
	c := NewRotationCache(db, Options{Recorder: rec})

	state := testState()
	payload, _ := json.Marshal(state)
	mock.ExpectSet("ads:section:tech", payload, DefaultTTL).SetErr(errors.New("i/o timeout"))

	c.Save(ctx, "section:tech", state)

	if rec.events["set:error"] != 1 {
		t.Errorf("Expected one set error recorded, got %v", rec.events)
	}
}

func TestRotationCache_Clear(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRotationCache(db, Options{})

	mock.ExpectDel(
		"ads:section:sports", "ads:section:sports:cursor",
		"ads:homepage_feed", "ads:homepage_feed:cursor",
	).SetVal(0)

	c.Clear(ctx, "section:sports", "homepage_feed")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations not met: %v", err)
	}
}

func TestRotationCache_Advance(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRotationCache(db, Options{TTL: 600 * time.Second})

	mock.ExpectEval(advanceScript, []string{"ads:homepage_feed:cursor"}, 3, 600).SetVal(int64(2))

	pos, ok := c.Advance(ctx, "homepage_feed", 3)
	if !ok {
		t.Fatal("Expected advance to succeed")
	}
	if pos != 2 {
		t.Errorf("Expected position 2, got %d", pos)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations not met: %v", err)
	}
}

func TestRotationCache_AdvanceFailure(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRotationCache(db, Options{TTL: 600 * time.Second})

	mock.ExpectEval(advanceScript, []string{"ads:homepage_feed:cursor"}, 3, 600).SetErr(errors.New("connection reset"))

	if _, ok := c.Advance(ctx, "homepage_feed", 3); ok {
		t.Error("Expected advance to report failure")
	}
	if _, ok := c.Advance(ctx, "homepage_feed", 0); ok {
		t.Error("Expected advance on empty rotation to report failure")
	}
}

func TestRotationCache_BreakerOpens(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rec := &countingRecorder{}
	c := NewRotationCache(db, Options{FailureThreshold: 2, OpenTimeout: time.Minute, Recorder: rec})

	mock.ExpectGet("ads:homepage_feed").SetErr(errors.New("connection refused"))
	mock.ExpectGet("ads:homepage_feed").SetErr(errors.New("connection refused"))

	c.Load(ctx, "homepage_feed")
	c.Load(ctx, "homepage_feed")
	// Breaker is open now: the backend is not called again.
	c.Load(ctx, "homepage_feed")

	if rec.events["get:open"] != 1 {
		t.Errorf("Expected third load rejected by breaker, got %v", rec.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations not met: %v", err)
	}
}

func TestRotationCache_CancelledCallersDoNotOpenBreaker(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rec := &countingRecorder{}
	c := NewRotationCache(db, Options{FailureThreshold: 2, OpenTimeout: time.Minute, Recorder: rec})

	for i := 0; i < 3; i++ {
		mock.ExpectGet("ads:homepage_feed").SetErr(context.Canceled)
	}
	mock.ExpectGet("ads:homepage_feed").RedisNil()

	for i := 0; i < 4; i++ {
		c.Load(ctx, "homepage_feed")
	}

	if rec.events["get:open"] != 0 {
		t.Errorf("Expected breaker to stay closed, got %v", rec.events)
	}
	if rec.events["get:miss"] != 1 {
		t.Errorf("Expected the fourth load to reach Redis, got %v", rec.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations not met: %v", err)
	}
}

type memoryStore struct {
	ads []ads.Ad
}

func (s *memoryStore) FindEligible(_ context.Context, filter ads.Filter) ([]ads.Ad, error) {
	var out []ads.Ad
	for _, ad := range s.ads {
		if filter.Matches(ad) {
			out = append(out, ad)
		}
	}
	return out, nil
}

func TestRotatorDegradedWithUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	c := NewRotationCache(client, Options{Timeout: 100 * time.Millisecond})
	store := &memoryStore{ads: []ads.Ad{
		{ID: "e1", Status: ads.StatusActive, Type: ads.TypeBanner, Plan: ads.PlanEnterprise, Section: "tech"},
		{ID: "e2", Status: ads.StatusActive, Type: ads.TypeBanner, Plan: ads.PlanEnterprise, Section: "news"},
	}}
	rotator := ads.NewRotator(store, c)

	for i := 0; i < 10; i++ {
		ad, err := rotator.Next(ctx, ads.PlacementHomepageFeed, "")
		if err != nil {
			t.Fatalf("Call %d: expected an ad in degraded mode, got error %v", i, err)
		}
		if ad.ID != "e1" && ad.ID != "e2" {
			t.Errorf("Call %d: unexpected ad %s", i, ad.ID)
		}
	}

	_, err := rotator.Next(ctx, ads.PlacementSectionFeed, "travel")
	if !errors.Is(err, ads.ErrNoEligibleAds) {
		t.Errorf("Expected ErrNoEligibleAds, got %v", err)
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Noop
	c.Save(ctx, "homepage_feed", testState())
	if _, ok := c.Load(ctx, "homepage_feed"); ok {
		t.Error("Noop cache should never hit")
	}
	c.Clear(ctx, "homepage_feed")
	if c.Health(ctx)["status"] != "disabled" {
		t.Error("Expected disabled status")
	}
}
