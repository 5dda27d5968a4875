package auth

import (
	"crypto/subtle"
	"sync"
	"time"

	"apex-tracker/internal/config"
	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PINGate exchanges the shared site PIN for a browser-session token, held
// server-side in memory. Tokens expire after constants.AuthSessionTTL.
type PINGate struct {
	pin    string
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]time.Time // token -> expiry
}

func NewPINGate(cfg *config.Config, logger zerolog.Logger) *PINGate {
	return &PINGate{
		pin:      cfg.SitePIN,
		logger:   logger,
		sessions: make(map[string]time.Time),
	}
}

// Verify compares the submitted PIN in constant time and mints a session
// token on success.
func (g *PINGate) Verify(pin string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(pin), []byte(g.pin)) != 1 {
		g.logger.Warn().Msg("pin verification failed")
		return "", domain.ErrUnauthorized
	}

	token := uuid.New().String()
	expiry := time.Now().Add(constants.AuthSessionTTL)

	g.mu.Lock()
	g.sessions[token] = expiry
	g.pruneLocked()
	g.mu.Unlock()

	g.logger.Info().Time("expires_at", expiry).Msg("pin verified, session issued")
	return token, nil
}

// Validate reports whether the token belongs to a live session.
func (g *PINGate) Validate(token string) bool {
	if token == "" {
		return false
	}

	g.mu.RLock()
	expiry, ok := g.sessions[token]
	g.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		g.mu.Lock()
		delete(g.sessions, token)
		g.mu.Unlock()
		return false
	}
	return true
}

// pruneLocked drops expired tokens. Caller holds the write lock.
func (g *PINGate) pruneLocked() {
	now := time.Now()
	for token, expiry := range g.sessions {
		if now.After(expiry) {
			delete(g.sessions, token)
		}
	}
}
