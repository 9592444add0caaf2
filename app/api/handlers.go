package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rssjumper/rssjumper/app/blacklist"
	"github.com/rssjumper/rssjumper/app/cache"
	"github.com/rssjumper/rssjumper/app/cfg"
	"github.com/rssjumper/rssjumper/app/ledger"
	"github.com/rssjumper/rssjumper/app/proxy"
	"github.com/rssjumper/rssjumper/app/ratelimit"
)

func NewHandler(engine *proxy.Engine, bl *blacklist.Blacklist, accessLedger *ledger.Ledger,
	feedCache *cache.FeedCache, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		engine:    engine,
		blacklist: bl,
		ledger:    accessLedger,
		cache:     feedCache,
		limiter:   limiter,
	}
}

// Root dispatches the single GET path on its query parameters: a feed
// URL goes through the proxy, a password opens the admin page, neither
// yields service information.
func (h *Handler) Root(c *gin.Context) {
	if rawURL := c.Query("url"); rawURL != "" {
		h.proxyFeed(c, rawURL)
		return
	}

	if password := c.Query("password"); password != "" {
		h.adminPage(c, password)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":     "RSSJumper",
		"version":     cfg.Get().Version,
		"description": "RSS proxy with tiered caching, rate limiting and an admin blacklist",
		"usage":       "/?url=<feed-url>",
		"cache_ttl":   (time.Duration(cfg.Get().CacheTTL) * time.Second).String(),
		"rate_limit":  strconv.Itoa(cfg.Get().RateLimit) + "/min",
	})
}

func (h *Handler) proxyFeed(c *gin.Context, rawURL string) {
	decision := h.engine.Handle(c.Request.Context(), rawURL, c.ClientIP(), time.Now())

	switch decision.Kind {
	case proxy.DecisionInvalid:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid URL",
			"message": decision.Err.Error(),
		})

	case proxy.DecisionRateLimited:
		seconds := int(decision.RetryAfter.Seconds() + 0.5)
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "Rate limit exceeded",
			"retryAfter": seconds,
		})

	case proxy.DecisionBlacklisted:
		// Disabled feeds still get a parseable document, not an error
		c.Header("X-RSSJumper-Status", "blacklisted")
		c.Data(http.StatusOK, decision.Response.ContentType, decision.Response.Body)

	default:
		resp := decision.Response
		c.Header("X-RSSJumper-Cache", string(resp.CacheStatus))
		if resp.Success {
			c.Header("X-RSSJumper-Status", "success")
		} else {
			c.Header("X-RSSJumper-Status", "error")
		}
		c.Data(http.StatusOK, resp.ContentType, resp.Body)
	}
}

func (h *Handler) adminPage(c *gin.Context, password string) {
	if !h.authorize(c, password) {
		return
	}

	setSecurityHeaders(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(adminHTML))
}

// authorize gates the admin surface. A missing secret disables it
// entirely; the proxy surface is unaffected either way.
func (h *Handler) authorize(c *gin.Context, password string) bool {
	secret := cfg.Get().AdminPassword
	if secret == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin surface disabled"})
		return false
	}
	if password != secret {
		c.JSON(http.StatusForbidden, gin.H{"error": "Wrong password"})
		return false
	}
	return true
}

func setSecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Header("Referrer-Policy", "no-referrer")
}
