package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"
	"apex-tracker/internal/repository"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Broadcaster pushes saved docs out to live viewers. Satisfied by live.Hub.
type Broadcaster interface {
	BroadcastDoc(sessionID string, doc domain.SessionDoc)
}

type SessionService struct {
	repo      *repository.SessionRepository
	broadcast Broadcaster
	logger    zerolog.Logger

	// newCode draws one candidate session code; swapped out in tests.
	newCode func() (string, error)
}

func NewSessionService(repo *repository.SessionRepository, broadcast Broadcaster, logger zerolog.Logger) *SessionService {
	return &SessionService{repo: repo, broadcast: broadcast, logger: logger, newCode: randomCode}
}

func (s *SessionService) Create(ctx context.Context, seasonNumber int, hostUserID string, doc domain.SessionDoc) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if hostUserID == "" {
		return nil, fmt.Errorf("host_user_id is required: %w", domain.ErrInvalidArgument)
	}
	if len(doc.Players) > domain.MaxPlayers {
		return nil, fmt.Errorf("at most %d players per session: %w", domain.MaxPlayers, domain.ErrInvalidArgument)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.Session{
		ID:           id,
		SeasonNumber: seasonNumber,
		HostUserID:   hostUserID,
		WriteKey:     uuid.New().String(),
		SessionCode:  code,
		Doc:          doc,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("failed to create session")
		return nil, err
	}

	s.logger.Info().
		Str("session_id", id).
		Str("session_code", code).
		Int("season_number", seasonNumber).
		Msg("session created")
	return session, nil
}

// allocateCode draws random 6-digit codes until one is free among live
// sessions, bounded by constants.SessionCodeAttempts. Exhausting the bound is
// an explicit allocation error, never a colliding code.
func (s *SessionService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < constants.SessionCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}

		inUse, err := s.repo.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
		s.logger.Debug().Str("code", code).Int("attempt", attempt+1).Msg("session code collision, retrying")
	}
	s.logger.Error().Int("attempts", constants.SessionCodeAttempts).Msg("session code space exhausted")
	return "", domain.ErrCodeExhausted
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < constants.SessionCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", constants.SessionCodeLength, n), nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.GetByID(ctx, id)
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.GetByCode(ctx, code)
}

// Save overwrites the session doc. Two authorization paths:
//   - write key: constant-time match against the stored key, full overwrite,
//     last write wins with no version check.
//   - player_id_updating: a narrower self-service path that merges only that
//     player's RP counter into the stored doc.
func (s *SessionService) Save(ctx context.Context, id, writeKey, playerIDUpdating string, doc domain.SessionDoc) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if len(doc.Players) > domain.MaxPlayers {
		return nil, fmt.Errorf("at most %d players per session: %w", domain.MaxPlayers, domain.ErrInvalidArgument)
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.EndedAt != nil {
		return nil, domain.ErrSessionEnded
	}

	switch {
	case writeKey != "" && subtle.ConstantTimeCompare([]byte(writeKey), []byte(session.WriteKey)) == 1:
		session.Doc = doc

	case playerIDUpdating != "":
		if !session.Doc.MergeSelfRP(doc, playerIDUpdating) {
			s.logger.Warn().Str("session_id", id).Str("player_id", playerIDUpdating).Msg("self-rp update for unknown player")
			return nil, domain.ErrForbidden
		}

	default:
		s.logger.Warn().Str("session_id", id).Msg("save rejected: write key mismatch")
		return nil, domain.ErrForbidden
	}

	session.UpdatedAt = time.Now()
	if err := s.repo.UpdateDoc(ctx, id, session.Doc, session.UpdatedAt); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("failed to save session doc")
		return nil, err
	}

	s.broadcast.BroadcastDoc(id, session.Doc)

	s.logger.Debug().Str("session_id", id).Int("players", len(session.Doc.Players)).Msg("session saved")
	return session, nil
}
