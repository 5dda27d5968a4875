package constants

import "time"

const (
	WebhookTimeout  = 10 * time.Second
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// SessionCodeAttempts bounds the rejection sampling for short codes.
	// With 6-digit codes and at most tens of live sessions, ten tries make
	// allocation failure astronomically unlikely.
	SessionCodeAttempts = 10
	SessionCodeLength   = 6
)

const (
	// RPSumPageLimit caps how many ledger rows a single total reads. Totals
	// silently truncate past the cap; acceptable for a handful of sessions
	// per season.
	RPSumPageLimit = 500
)

const (
	// BroadcastDebounce coalesces bursts of session saves into one push to
	// viewers.
	BroadcastDebounce = 450 * time.Millisecond
)

const (
	AuthCookieName = "squad_session"
	AuthSessionTTL = 30 * 24 * time.Hour
)
