package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/ad-comb/app/ads"
	"github.com/lysyi3m/ad-comb/app/metrics"
)

func NewHandler(rotator BannerServer, feeds FeedBuilder, lifecycle *ads.Lifecycle,
	db DatabaseHealth, cache CacheHealth, registry *metrics.Registry, version string) *Handler {
	return &Handler{
		rotator:   rotator,
		feeds:     feeds,
		lifecycle: lifecycle,
		db:        db,
		cache:     cache,
		metrics:   registry,
		version:   version,
		started:   time.Now(),
	}
}

func (h *Handler) GetBannerAds(c *gin.Context) {
	placement := ads.Placement(c.Query("placement"))
	section := c.Query("section")

	ad, err := h.rotator.Next(c.Request.Context(), placement, section)
	if err != nil {
		h.writeError(c, "banner_ads", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": "200",
		"ads":  []ads.Ad{ad},
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	mode, err := ads.ParseMode(c.Query("mode"))
	if err != nil {
		h.writeError(c, "feed", err)
		return
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}

	result, err := h.feeds.Build(c.Request.Context(), ads.FeedQuery{
		Mode:      mode,
		Placement: ads.Placement(c.Query("placement")),
		Section:   c.Query("section"),
		Pattern:   c.Query("pattern"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		h.writeError(c, "feed", err)
		return
	}

	items := result.Items
	if items == nil {
		items = []ads.FeedItem{}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "200",
		"message": "Feed retrieved",
		"data": gin.H{
			"items": items,
			"pagination": pagination{
				TotalItems: result.TotalItems,
				Page:       result.Page,
				Pages:      result.Pages,
				Limit:      result.Limit,
			},
		},
	})
}

func (h *Handler) CreateAd(c *gin.Context) {
	var req createAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "400", "message": "Invalid request body"})
		return
	}

	adType := ads.Type(req.Type)
	if adType == "" {
		adType = ads.TypeBanner
	}

	ad, err := h.lifecycle.Create(c.Request.Context(), ads.NewAd{
		OwnerID:      req.OwnerID,
		Type:         adType,
		Title:        req.Title,
		Content:      req.Content,
		Plan:         ads.Plan(req.Plan),
		Section:      req.Section,
		Price:        req.Price,
		TargetURL:    req.TargetURL,
		CallToAction: req.CallToAction,
		DurationDays: req.Duration,
		ImageURL:     req.ImageURL,
		ImageKey:     req.ImageKey,
	})
	if err != nil {
		h.writeError(c, "create_ad", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": "201", "message": "Ad submitted for review", "data": ad})
}

func (h *Handler) GetAd(c *gin.Context) {
	ad, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_ad", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "200", "data": ad})
}

func (h *Handler) ListAds(c *gin.Context) {
	status := ads.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"code": "400", "message": "Unknown status"})
		return
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok {
		return
	}

	items, total, err := h.lifecycle.List(c.Request.Context(), ads.ListQuery{
		Status:  status,
		OwnerID: c.Query("ownerId"),
		Search:  c.Query("search"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		h.writeError(c, "list_ads", err)
		return
	}
	if items == nil {
		items = []ads.Ad{}
	}

	c.JSON(http.StatusOK, gin.H{
		"code": "200",
		"data": gin.H{
			"ads": items,
			"pagination": pagination{
				TotalItems: total,
				Page:       page,
				Pages:      (total + limit - 1) / limit,
				Limit:      limit,
			},
		},
	})
}

func (h *Handler) CountAdsByStatus(c *gin.Context) {
	counts, err := h.lifecycle.CountByStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, "count_ads", err)
		return
	}

	total := 0
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"code": "200", "data": gin.H{"total": total, "byStatus": byStatus}})
}

func (h *Handler) ApproveAd(c *gin.Context) {
	h.mutate(c, "approve_ad", "Ad approved", h.lifecycle.Approve)
}

func (h *Handler) ActivateAd(c *gin.Context) {
	h.mutate(c, "activate_ad", "Ad activated", h.lifecycle.Activate)
}

func (h *Handler) ResumeAd(c *gin.Context) {
	h.mutate(c, "resume_ad", "Ad resumed", h.lifecycle.Resume)
}

func (h *Handler) PauseAd(c *gin.Context) {
	reason := bindReason(c)
	h.mutate(c, "pause_ad", "Ad paused", func(ctx context.Context, id string) (*ads.Ad, error) {
		return h.lifecycle.Pause(ctx, id, reason)
	})
}

func (h *Handler) RejectAd(c *gin.Context) {
	reason := bindReason(c)
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "400", "message": "Rejection reason is required"})
		return
	}
	h.mutate(c, "reject_ad", "Ad rejected", func(ctx context.Context, id string) (*ads.Ad, error) {
		return h.lifecycle.Reject(ctx, id, reason)
	})
}

func (h *Handler) DeleteAd(c *gin.Context) {
	h.mutate(c, "delete_ad", "Ad deleted", h.lifecycle.Delete)
}

func (h *Handler) RecordImpression(c *gin.Context) {
	h.mutate(c, "record_impression", "Impression recorded", h.lifecycle.RecordImpression)
}

func (h *Handler) RecordClick(c *gin.Context) {
	h.mutate(c, "record_click", "Click recorded", h.lifecycle.RecordClick)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"database":  "healthy",
	}

	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		health["status"] = "unhealthy"
		health["database"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		health["cache"] = h.cache.Health(ctx)
	}

	c.JSON(status, health)
}

func (h *Handler) GetMetrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) mutate(c *gin.Context, operation, message string, fn func(context.Context, string) (*ads.Ad, error)) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "400", "message": "Missing ad id"})
		return
	}

	ad, err := fn(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, operation, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": "200", "message": message, "data": ad})
}

// writeError maps domain errors to responses. Unknown errors are logged and
// reported as 500 without detail.
func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ads.ErrNoEligibleAds), errors.Is(err, ads.ErrAdNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ads.ErrInvalidPlacement), errors.Is(err, ads.ErrInvalidPattern),
		errors.Is(err, ads.ErrInvalidMode), errors.Is(err, ads.ErrInvalidAd):
		status = http.StatusBadRequest
	case errors.Is(err, ads.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "id", c.Param("id"), "error", err)
		c.JSON(status, gin.H{"code": "500", "message": "Internal server error"})
		return
	}

	slog.Debug("Request rejected", "operation", operation, "status", status, "error", err)
	c.JSON(status, gin.H{"code": strconv.Itoa(status), "message": err.Error()})
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "400", "message": "Invalid " + name + " parameter"})
		return 0, false
	}
	return n, true
}

// bindReason reads an optional {"reason": "..."} body.
func bindReason(c *gin.Context) string {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return ""
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.Reason
}
