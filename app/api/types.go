package api

import (
	"github.com/rssjumper/rssjumper/app/blacklist"
	"github.com/rssjumper/rssjumper/app/cache"
	"github.com/rssjumper/rssjumper/app/ledger"
	"github.com/rssjumper/rssjumper/app/proxy"
	"github.com/rssjumper/rssjumper/app/ratelimit"
)

type Handler struct {
	engine    *proxy.Engine
	blacklist *blacklist.Blacklist
	ledger    *ledger.Ledger
	cache     *cache.FeedCache
	limiter   *ratelimit.Limiter
}

// adminRequest is the JSON body of every admin action.
type adminRequest struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// accessRow is one access-log line in the getData response.
type accessRow struct {
	URL           string `json:"url"`
	Count         uint64 `json:"count"`
	TodayCount    uint64 `json:"todayCount"`
	FirstAccess   string `json:"firstAccess"`
	LastAccess    string `json:"lastAccess"`
	IsBlacklisted bool   `json:"isBlacklisted"`
}

// cacheRow is one cache-file line in the getData response.
type cacheRow struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Size        int    `json:"size"`
	CachedAt    string `json:"cachedAt"`
	Age         string `json:"age"`
	Expired     bool   `json:"expired"`
	Status      string `json:"status"`
	Placeholder bool   `json:"placeholder"`
}
