package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"
	"apex-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type SeasonService struct {
	seasonRepo   *repository.SeasonRepository
	snapshotRepo *repository.SnapshotRepository
	profileRepo  *repository.ProfileRepository
	logger       zerolog.Logger
}

func NewSeasonService(seasonRepo *repository.SeasonRepository, snapshotRepo *repository.SnapshotRepository, profileRepo *repository.ProfileRepository, logger zerolog.Logger) *SeasonService {
	return &SeasonService{seasonRepo: seasonRepo, snapshotRepo: snapshotRepo, profileRepo: profileRepo, logger: logger}
}

// Start creates a new season and makes it the single active one; the previous
// active season is deactivated in the same transaction.
func (s *SeasonService) Start(ctx context.Context, seasonNumber int, hostUserID string) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if hostUserID == "" {
		return nil, fmt.Errorf("host_user_id is required: %w", domain.ErrInvalidArgument)
	}
	if seasonNumber <= 0 {
		return nil, fmt.Errorf("season_number must be positive: %w", domain.ErrInvalidArgument)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate season id: %w", err)
	}

	season := &domain.Season{
		ID:           id,
		SeasonNumber: seasonNumber,
		HostUserID:   hostUserID,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.seasonRepo.CreateAndActivate(ctx, season); err != nil {
		s.logger.Error().Err(err).Int("season_number", seasonNumber).Msg("failed to start season")
		return nil, err
	}

	s.logger.Info().Str("season_id", id).Int("season_number", seasonNumber).Msg("season started")
	return season, nil
}

func (s *SeasonService) Active(ctx context.Context) (*domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	season, err := s.seasonRepo.GetActive(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveSeason
	}
	return season, err
}

// ChartPoint is one cumulative step of a user's RP progression.
type ChartPoint struct {
	Date  string `json:"date"`
	Delta int    `json:"delta"`
	Total int    `json:"total"`
}

// ChartSeries is one user's line on the season progression chart.
type ChartSeries struct {
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Points      []ChartPoint `json:"points"`
}

// Chart builds per-user cumulative RP series from the snapshot ledger, the
// authoritative source for public progression. Snapshots and profiles load in
// parallel.
func (s *SeasonService) Chart(ctx context.Context, seasonID string) ([]ChartSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		return nil, err
	}

	var snaps []domain.Snapshot
	var profiles map[string]domain.Profile

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snaps, err = s.snapshotRepo.ListBySeason(gCtx, seasonID)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.profileRepo.GetAll(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("season_id", seasonID).Msg("failed to load chart data")
		return nil, err
	}

	byUser := make(map[string]*ChartSeries)
	order := make([]string, 0, domain.MaxPlayers)
	totals := make(map[string]int)

	// ListBySeason orders by post_date, so totals accumulate chronologically.
	for _, snap := range snaps {
		series, ok := byUser[snap.UserID]
		if !ok {
			name := snap.UserID
			if p, ok := profiles[snap.UserID]; ok {
				name = p.DisplayName
			}
			series = &ChartSeries{UserID: snap.UserID, DisplayName: name}
			byUser[snap.UserID] = series
			order = append(order, snap.UserID)
		}
		totals[snap.UserID] += snap.DeltaRP
		series.Points = append(series.Points, ChartPoint{
			Date:  snap.PostDate,
			Delta: snap.DeltaRP,
			Total: totals[snap.UserID],
		})
	}

	result := make([]ChartSeries, 0, len(order))
	for _, userID := range order {
		result = append(result, *byUser[userID])
	}

	s.logger.Debug().Str("season_id", seasonID).Int("series", len(result)).Msg("chart built")
	return result, nil
}
