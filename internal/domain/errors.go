package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrSessionEnded    = errors.New("session already ended")
	ErrCodeExhausted   = errors.New("no free session code after retry bound")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoActiveSeason wraps ErrNotFound so handlers still map it to 404.
	ErrNoActiveSeason = fmt.Errorf("no active season: %w", ErrNotFound)
)
