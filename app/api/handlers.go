package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/filing-comb/app/database"
	"github.com/lysyi3m/filing-comb/app/feed"
	"github.com/lysyi3m/filing-comb/app/tasks"
)

func NewHandler(feedRepo database.FeedRepository, alertRepo database.AlertRepository,
	cursors CursorReader, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		feedRepo:  feedRepo,
		alertRepo: alertRepo,
		cursors:   cursors,
		generator: feed.NewGenerator(version),
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if feedCount, err := h.feedRepo.GetFeedCount(c.Request.Context()); err == nil {
		health["feeds"] = feedCount
	} else {
		slog.Error("Database error", "operation", "get_feed_count", "error", err)
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	feeds, err := h.feedRepo.GetFeeds(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	alertCount, err := h.alertRepo.GetAlertCount(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_alert_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	failing := 0
	var lastPoll *time.Time
	for _, f := range feeds {
		if f.LastError != "" {
			failing++
		}
		if f.LastPolledAt != nil && (lastPoll == nil || f.LastPolledAt.After(*lastPoll)) {
			lastPoll = f.LastPolledAt
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds":          len(feeds),
		"failing_feeds":  failing,
		"alerts":         alertCount,
		"last_polled_at": lastPoll,
	})
}

// GetAlertsFeed renders the latest alerts as RSS
func (h *Handler) GetAlertsFeed(c *gin.Context) {
	alerts, err := h.alertRepo.ListAlerts(c.Request.Context(), database.AlertQuery{
		FilingType: c.Query("type"),
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_alerts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	selfLink := scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()

	rss, err := h.generator.Run("Filing alerts", selfLink, alerts)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(alerts)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	records, err := h.feedRepo.GetFeeds(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]map[string]interface{}, 0, len(records))
	for _, f := range records {
		feeds = append(feeds, feedInfo(f))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func feedInfo(f database.Feed) map[string]interface{} {
	return map[string]interface{}{
		"key":             f.FeedKey,
		"url":             f.FeedURL,
		"company":         f.Company,
		"last_polled_at":  f.LastPolledAt,
		"last_success_at": f.LastSuccessAt,
		"last_error":      f.LastError,
		"entry_count":     f.EntryCount,
		"alert_count":     f.AlertCount,
		"created_at":      f.CreatedAt,
		"updated_at":      f.UpdatedAt,
	}
}

func (h *Handler) APIGetCursor(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed key parameter"})
		return
	}

	ctx := c.Request.Context()

	f, err := h.feedRepo.GetFeed(ctx, key)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	cursor, err := h.cursors.Load(ctx, f.FeedURL)
	if err != nil {
		slog.Error("Cursor read failed", "feed", f.FeedURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cursor read failed", "details": err.Error()})
		return
	}

	response := gin.H{
		"feed":       feedInfo(*f),
		"lastSeenId": nil,
		"updatedAt":  nil,
	}
	if cursor.LastSeenID != "" {
		response["lastSeenId"] = cursor.LastSeenID
	}
	if !cursor.UpdatedAt.IsZero() {
		response["updatedAt"] = cursor.UpdatedAt
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListAlerts(c *gin.Context) {
	q := database.AlertQuery{
		FeedURL:    c.Query("feed"),
		FilingType: c.Query("type"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = limit
	}

	alerts, err := h.alertRepo.ListAlerts(c.Request.Context(), q)
	if err != nil {
		slog.Error("Database error", "operation", "list_alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if alerts == nil {
		alerts = []feed.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (h *Handler) APITriggerPoll(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	queued, skipped := h.scheduler.EnqueueAll()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"queued":  queued,
		"skipped": skipped,
	})
}
