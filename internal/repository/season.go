package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"apex-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(sqlDB *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: sqlDB, logger: logger}
}

// CreateAndActivate inserts a new season and deactivates the previous active
// one in the same transaction, so exactly one season is active at a time.
func (r *SeasonRepository) CreateAndActivate(ctx context.Context, season *domain.Season) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE seasons SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("failed to deactivate previous season: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO seasons (id, season_number, host_user_id, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		season.ID, season.SeasonNumber, season.HostUserID, season.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert season: %w", err)
	}

	return tx.Commit()
}

func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_number, host_user_id, is_active, created_at
		FROM seasons WHERE is_active = 1
		ORDER BY created_at DESC LIMIT 1`)
	return scanSeason(row)
}

func (r *SeasonRepository) GetByID(ctx context.Context, id string) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_number, host_user_id, is_active, created_at
		FROM seasons WHERE id = ?`, id)
	return scanSeason(row)
}

func (r *SeasonRepository) GetByNumber(ctx context.Context, number int) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_number, host_user_id, is_active, created_at
		FROM seasons WHERE season_number = ?
		ORDER BY created_at DESC LIMIT 1`, number)
	return scanSeason(row)
}

// RegisterPlayer records season membership. Safe to call repeatedly; the
// (season_id, user_id) pair is unique.
func (r *SeasonRepository) RegisterPlayer(ctx context.Context, seasonID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO season_players (season_id, user_id, created_at)
		VALUES (?, ?, ?)`,
		seasonID, userID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to register season player: %w", err)
	}
	return nil
}

func (r *SeasonRepository) ListPlayers(ctx context.Context, seasonID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM season_players WHERE season_id = ? ORDER BY created_at`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list season players: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan season player: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// UpsertPlayerStat stores a player's finalized per-session stat line, written
// when a host ends a session.
func (r *SeasonRepository) UpsertPlayerStat(ctx context.Context, seasonID, sessionID string, p domain.PlayerEntry) error {
	if p.OwnerUserID == "" {
		return fmt.Errorf("player %q has no owning user: %w", p.Name, domain.ErrInvalidArgument)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO season_player_stats (season_id, user_id, session_id, games, damage, kills, one_k_games, two_k_games, donuts, rp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			games = excluded.games,
			damage = excluded.damage,
			kills = excluded.kills,
			one_k_games = excluded.one_k_games,
			two_k_games = excluded.two_k_games,
			donuts = excluded.donuts,
			rp = excluded.rp`,
		seasonID, p.OwnerUserID, sessionID, p.Games, p.Damage, p.Kills,
		p.OneKGames, p.TwoKGames, p.Donuts, p.RP, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert player stat: %w", err)
	}
	return nil
}

func scanSeason(row *sql.Row) (*domain.Season, error) {
	var s domain.Season
	err := row.Scan(&s.ID, &s.SeasonNumber, &s.HostUserID, &s.IsActive, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan season: %w", err)
	}
	return &s, nil
}
