package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Default rate limit for auth endpoints (register, verify, login)
const AuthRateLimitPerMin = 5

// Default token lifetime when no explicit TTL is configured. Long-lived by
// product choice: mobile clients stay signed in until the key rotates.
const DefaultTokenTTL = 365 * 24 * time.Hour

// Serialized transcript size (bytes) that triggers a summarization pass
// before the next chat turn is appended.
const TranscriptSizeThreshold = 9000
