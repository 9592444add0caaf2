package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	AdminPassword string `long:"admin-password" env:"PASSWORD" description:"Shared secret for the admin surface (admin disabled when empty)"`

	// Proxy tunables
	RateLimit     int `long:"rate-limit" env:"RATE_LIMIT" default:"60" description:"Allowed requests per minute per client IP"`
	BanDuration   int `long:"ban-duration" env:"BAN_DURATION" default:"300" description:"Ban duration in seconds after exceeding the rate limit"`
	CacheTTL      int `long:"cache-ttl" env:"CACHE_TTL" default:"900" description:"Feed cache TTL in seconds"`
	FlushInterval int `long:"flush-interval" env:"FLUSH_INTERVAL" default:"0" description:"Access log flush interval in seconds (0 = flush immediately)"`

	// Persistence configuration
	Storage   string `long:"storage" env:"STORAGE" default:"sqlite" choice:"sqlite" choice:"redis" choice:"memory" description:"Blob store backend"`
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./rssjumper.db" description:"SQLite database path (storage=sqlite)"`
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address (storage=redis)"`

	// Application metadata
	ConfigFile string `long:"config" env:"CONFIG_FILE" description:"Optional YAML settings file"`
	UserAgent  string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; RSSJumper/1.0)" description:"User agent string for origin requests"`
	Timezone   string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// fileCfg mirrors the tunable subset of rawCfg for the optional YAML file.
// File values override built-in defaults; flags and environment variables
// override the file.
type fileCfg struct {
	RateLimit     *int     `yaml:"rate_limit"`
	BanDuration   *int     `yaml:"ban_duration"`
	CacheTTL      *int     `yaml:"cache_ttl"`
	FlushInterval *int     `yaml:"flush_interval"`
	UserAgent     *string  `yaml:"user_agent"`
	Blacklist     []string `yaml:"blacklist"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:          raw.Port,
		AdminPassword: raw.AdminPassword,
		RateLimit:     raw.RateLimit,
		BanDuration:   raw.BanDuration,
		CacheTTL:      raw.CacheTTL,
		FlushInterval: raw.FlushInterval,
		Storage:       raw.Storage,
		DBPath:        raw.DBPath,
		RedisAddr:     raw.RedisAddr,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if raw.ConfigFile != "" {
		if err := applyFile(cfg, parser, raw.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load settings file %s: %w", raw.ConfigFile, err)
		}
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTest installs a configuration without parsing flags. Test helper only.
func SetForTest(cfg *Cfg) {
	globalCfg = cfg
}

func applyFile(cfg *Cfg, parser *flags.Parser, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file fileCfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	// A file value only wins when the option still carries its tag
	// default, so explicit flags and env vars keep precedence.
	if file.RateLimit != nil && !explicitlySet(parser, "rate-limit") {
		cfg.RateLimit = *file.RateLimit
	}
	if file.BanDuration != nil && !explicitlySet(parser, "ban-duration") {
		cfg.BanDuration = *file.BanDuration
	}
	if file.CacheTTL != nil && !explicitlySet(parser, "cache-ttl") {
		cfg.CacheTTL = *file.CacheTTL
	}
	if file.FlushInterval != nil && !explicitlySet(parser, "flush-interval") {
		cfg.FlushInterval = *file.FlushInterval
	}
	if file.UserAgent != nil && !explicitlySet(parser, "user-agent") {
		cfg.UserAgent = *file.UserAgent
	}
	cfg.SeedBlacklist = file.Blacklist

	return nil
}

// explicitlySet reports whether an option was given on the command line
// or through its environment variable, as opposed to carrying its tag
// default. go-flags marks env-supplied values as defaults, so the
// environment is checked separately.
func explicitlySet(parser *flags.Parser, longName string) bool {
	opt := parser.FindOptionByLongName(longName)
	if opt == nil {
		return false
	}
	if opt.IsSet() && !opt.IsSetDefault() {
		return true
	}
	if opt.EnvDefaultKey != "" {
		if _, ok := os.LookupEnv(opt.EnvDefaultKey); ok {
			return true
		}
	}
	return false
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
