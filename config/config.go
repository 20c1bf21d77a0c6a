package config

import (
	"log"
	"os"
	"strings"
	"time"

	"bounty-ledger/utils"
)

type Config struct {
	DatabaseURL  string
	Port         string
	GatewayToken string
	AllowOrigins string

	RedisURL    string // empty: events are logged instead of streamed
	EventStream string

	OracleURL           string
	OracleToken         string
	OracleCallbackToken string
	OracleCallbackURL   string
	OraclePollInterval  time.Duration
	OracleStaleAfter    time.Duration
	EventRelayInterval  time.Duration

	BootstrapAdminID   string
	BootstrapAdminName string

	ProfileSyncURL   string
	ProfileSyncToken string

	R2 utils.R2Config // AccountID empty: uploads disabled
}

// getenv returns def when key is unset; an empty def makes the key required.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func optional(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func duration(key, def string) time.Duration {
	raw := getenv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Fatalf("invalid duration %s=%q", key, raw)
	}
	return d
}

func Load() Config {
	return Config{
		DatabaseURL:  getenv("DATABASE_URL", ""),
		Port:         getenv("PORT", "5200"),
		GatewayToken: getenv("GATEWAY_SERVICE_TOKEN", ""),
		AllowOrigins: allowedOrigins(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),

		RedisURL:    optional("REDIS_URL"),
		EventStream: getenv("EVENT_STREAM", "bounty.events"),

		OracleURL:           getenv("ORACLE_URL", ""),
		OracleToken:         optional("ORACLE_TOKEN"),
		OracleCallbackToken: getenv("ORACLE_CALLBACK_TOKEN", ""),
		OracleCallbackURL:   optional("ORACLE_CALLBACK_URL"),
		OraclePollInterval:  duration("ORACLE_POLL_INTERVAL", "30s"),
		OracleStaleAfter:    duration("ORACLE_STALE_AFTER", "24h"),
		EventRelayInterval:  duration("EVENT_RELAY_INTERVAL", "5s"),

		BootstrapAdminID:   optional("BOOTSTRAP_ADMIN_ID"),
		BootstrapAdminName: getenv("BOOTSTRAP_ADMIN_NAME", "admin"),

		ProfileSyncURL:   optional("PROFILE_SYNC_URL"),
		ProfileSyncToken: optional("PROFILE_SYNC_TOKEN"),

		R2: utils.R2Config{
			AccountID:       optional("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     optional("R2_ACCESS_KEY_ID"),
			AccessKeySecret: optional("R2_ACCESS_KEY_SECRET"),
			Bucket:          optional("R2_BUCKET_NAME"),
			CDNBaseURL:      optional("CDN_BASE_URL"),
		},
	}
}

// allowedOrigins normalizes a comma-separated origin list for fiber's CORS config
func allowedOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
