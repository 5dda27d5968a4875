package service

import (
	"context"
	"fmt"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"
	"apex-tracker/internal/repository"

	"github.com/rs/zerolog"
)

type RPService struct {
	rpRepo     *repository.RPRepository
	seasonRepo *repository.SeasonRepository
	logger     zerolog.Logger
}

func NewRPService(rpRepo *repository.RPRepository, seasonRepo *repository.SeasonRepository, logger zerolog.Logger) *RPService {
	return &RPService{rpRepo: rpRepo, seasonRepo: seasonRepo, logger: logger}
}

// AddEntry appends one signed delta to the live ledger and auto-registers the
// user's season membership on their first contribution.
func (s *RPService) AddEntry(ctx context.Context, seasonID, userID, entryDate string, deltaRP int) (*domain.RPEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if deltaRP == 0 {
		return nil, fmt.Errorf("delta_rp must be nonzero: %w", domain.ErrInvalidArgument)
	}
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrInvalidArgument)
	}
	if _, err := time.Parse("2006-01-02", entryDate); err != nil {
		return nil, fmt.Errorf("entry_date must be YYYY-MM-DD: %w", domain.ErrInvalidArgument)
	}

	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		return nil, err
	}
	if err := s.seasonRepo.RegisterPlayer(ctx, seasonID, userID); err != nil {
		return nil, err
	}

	entry := &domain.RPEntry{
		SeasonID:  seasonID,
		UserID:    userID,
		EntryDate: entryDate,
		DeltaRP:   deltaRP,
		CreatedAt: time.Now(),
	}
	id, err := s.rpRepo.Insert(ctx, entry)
	if err != nil {
		s.logger.Error().Err(err).Str("season_id", seasonID).Str("user_id", userID).Msg("failed to insert rp entry")
		return nil, err
	}
	entry.ID = id

	s.logger.Info().
		Str("entry_id", id).
		Str("season_id", seasonID).
		Str("user_id", userID).
		Int("delta_rp", deltaRP).
		Msg("rp entry added")
	return entry, nil
}

// Undo deletes one entry by id. Only the entry's owner may undo it.
func (s *RPService) Undo(ctx context.Context, seasonID, entryID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entry, err := s.rpRepo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.SeasonID != seasonID {
		return domain.ErrNotFound
	}
	if entry.UserID != userID {
		s.logger.Warn().Str("entry_id", entryID).Str("user_id", userID).Msg("undo rejected: not entry owner")
		return domain.ErrForbidden
	}

	if err := s.rpRepo.Delete(ctx, entryID); err != nil {
		return err
	}

	s.logger.Info().Str("entry_id", entryID).Str("user_id", userID).Msg("rp entry undone")
	return nil
}

// Latest returns the user's most recent ledger row, so undo survives a page
// reload that loses the client-held entry id.
func (s *RPService) Latest(ctx context.Context, seasonID, userID string) (*domain.RPEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.rpRepo.Latest(ctx, seasonID, userID)
}

// Sum totals the user's ledger over a bounded page. Seasons that outgrow the
// page cap truncate silently; documented scaling limit.
func (s *RPService) Sum(ctx context.Context, seasonID, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	entries, err := s.rpRepo.ListPage(ctx, seasonID, userID, constants.RPSumPageLimit)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, e := range entries {
		total += e.DeltaRP
	}

	s.logger.Debug().
		Str("season_id", seasonID).
		Str("user_id", userID).
		Int("rows", len(entries)).
		Int("total", total).
		Msg("rp total computed")
	return total, nil
}
