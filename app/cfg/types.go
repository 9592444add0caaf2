package cfg

type Cfg struct {
	// Server configuration
	Port          string
	AdminPassword string

	// Proxy tunables
	RateLimit     int // requests per minute per client IP
	BanDuration   int // seconds
	CacheTTL      int // seconds
	FlushInterval int // seconds, 0 = flush after every access

	// Persistence configuration
	Storage   string
	DBPath    string
	RedisAddr string

	// Seed blacklist loaded from the settings file
	SeedBlacklist []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
