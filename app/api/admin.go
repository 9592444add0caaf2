package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rssjumper/rssjumper/app/ledger"
)

// AdminAction handles POST / with a password query parameter and a JSON
// body selecting the operation.
func (h *Handler) AdminAction(c *gin.Context) {
	if !h.authorize(c, c.Query("password")) {
		return
	}

	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	switch req.Action {
	case "getData":
		h.getData(c)
	case "addBlacklist":
		h.addBlacklist(c, req.URL)
	case "removeBlacklist":
		h.removeBlacklist(c, req.URL)
	case "clearCache":
		h.clearCache(c, req.URL)
	case "refreshCache":
		h.refreshCache(c, req.URL)
	case "resetAccessCount":
		h.resetAccessCount(c)
	case "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing action"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
	}
}

func (h *Handler) getData(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	entries, err := h.ledger.Snapshot(ctx, ledger.DateKey(now))
	if err != nil {
		slog.Error("Failed to read access log", "error", err)
		entries = nil
	}

	logs := make([]accessRow, 0, len(entries))
	for _, entry := range entries {
		logs = append(logs, accessRow{
			URL:           entry.URL,
			Count:         entry.Count,
			TodayCount:    entry.TodayCount,
			FirstAccess:   entry.FirstAccess.In(time.Local).Format(time.RFC3339),
			LastAccess:    entry.LastAccess.In(time.Local).Format(time.RFC3339),
			IsBlacklisted: h.blacklist.Contains(entry.URL),
		})
	}

	cached, err := h.cache.List(ctx)
	if err != nil {
		slog.Error("Failed to list cache entries", "error", err)
		cached = nil
	}

	cacheFiles := make([]cacheRow, 0, len(cached))
	for _, entry := range cached {
		cacheFiles = append(cacheFiles, cacheRow{
			URL:         entry.URL,
			Title:       entry.Title,
			Size:        len(entry.Content),
			CachedAt:    entry.CachedAt.In(time.Local).Format(time.RFC3339),
			Age:         entry.Age(now).Round(time.Second).String(),
			Expired:     !entry.Fresh(now),
			Status:      string(entry.Band(now, h.cache.TTL())),
			Placeholder: entry.Placeholder,
		})
	}

	var totalAccess uint64
	for _, row := range logs {
		totalAccess += row.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"cacheFiles": cacheFiles,
		"stats": gin.H{
			"totalAccess":      totalAccess,
			"totalBlacklisted": h.blacklist.Count(),
			"totalCached":      len(cacheFiles),
			"bannedIPs":        h.limiter.BanCount(),
		},
	})
}

func (h *Handler) addBlacklist(c *gin.Context, url string) {
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url"})
		return
	}

	if err := h.blacklist.Add(c.Request.Context(), url); err != nil {
		slog.Error("Failed to add blacklist entry", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to persist blacklist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "URL disabled"})
}

func (h *Handler) removeBlacklist(c *gin.Context, url string) {
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url"})
		return
	}

	if err := h.blacklist.Remove(c.Request.Context(), url); err != nil {
		slog.Error("Failed to remove blacklist entry", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to persist blacklist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "URL enabled"})
}

func (h *Handler) clearCache(c *gin.Context, url string) {
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url"})
		return
	}

	if err := h.cache.Delete(c.Request.Context(), url); err != nil {
		slog.Error("Failed to clear cache entry", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to clear cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cache cleared"})
}

func (h *Handler) refreshCache(c *gin.Context, url string) {
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url"})
		return
	}

	if err := h.engine.Refresh(c.Request.Context(), url, time.Now()); err != nil {
		slog.Error("Failed to refresh cache entry", "url", url, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Refresh failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cache refreshed"})
}

func (h *Handler) resetAccessCount(c *gin.Context) {
	if err := h.ledger.Reset(c.Request.Context()); err != nil {
		slog.Error("Failed to reset access log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to reset access log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Access log reset"})
}
