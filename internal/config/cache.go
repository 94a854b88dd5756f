package config

import (
	"strings"
	"time"
)

// CacheConfig tunes the Redis response cache applied to the public
// trip browse endpoints.  Entries are short-lived on purpose: a
// cached seat map is a stale-but-safe snapshot and the atomic
// acquire settles any race it causes.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables with defaults suited
// to trip search and seat maps (GET only, 30s TTL).
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(defStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  defStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       defStr("CACHE_PREFIX", "gobus:cache"),
		MaxBodyBytes: defInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
