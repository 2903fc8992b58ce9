package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL            string
	ServerPort             string
	BaseURL                string
	PublicFilesURL         string
	UserinfoPath           string
	FrontendURL            string
	EnableHSTS             bool
	RedisURL               string
	DefaultRateLimit       string
	TrustedProxies         []netip.Prefix
	SettingsReloadInterval time.Duration
	TrustEmailVerified     bool
	DiscoveryTimeout       time.Duration
	LogFormat              string
	ServerDebugMode        bool
	OTELEnabled            bool
	OTELEndpoint           string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		BaseURL:                strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		PublicFilesURL:         getEnv("PUBLIC_FILES_URL", ""),
		UserinfoPath:           getEnv("USERINFO_PATH", "/oauth/userinfo"),
		FrontendURL:            getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:             getEnvBool("ENABLE_HSTS", false),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DefaultRateLimit:       getEnv("RATE_LIMIT_DEFAULT", "20-S"),
		SettingsReloadInterval: getEnvDuration("SETTINGS_RELOAD_INTERVAL", time.Minute),
		TrustEmailVerified:     getEnvBool("USERINFO_TRUST_EMAIL_VERIFIED", true),
		DiscoveryTimeout:       getEnvDuration("ISSUER_DISCOVERY_TIMEOUT", 5*time.Second),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		ServerDebugMode:        getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:            getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	proxies, err := parseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	if !strings.HasPrefix(cfg.UserinfoPath, "/") {
		return nil, fmt.Errorf("USERINFO_PATH must start with '/', got %q", cfg.UserinfoPath)
	}

	// Public files default to the CMS default files directory
	if cfg.PublicFilesURL == "" {
		cfg.PublicFilesURL = cfg.BaseURL + "/sites/default/files"
	}

	return cfg, nil
}

// parseTrustedProxies reads a comma-separated list of IPs or CIDRs.
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid IP or CIDR %q", entry)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
