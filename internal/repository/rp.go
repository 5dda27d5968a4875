package repository

import (
	"context"
	"database/sql"
	"fmt"

	"apex-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RPRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRPRepository(sqlDB *sql.DB, logger zerolog.Logger) *RPRepository {
	return &RPRepository{db: sqlDB, logger: logger}
}

// Insert appends one ledger row. No upsert: same-day repeats stay separate
// rows.
func (r *RPRepository) Insert(ctx context.Context, entry *domain.RPEntry) (string, error) {
	id := entry.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rp_entries (id, season_id, user_id, entry_date, delta_rp, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, entry.SeasonID, entry.UserID, entry.EntryDate, entry.DeltaRP, entry.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert rp entry: %w", err)
	}

	r.logger.Debug().
		Str("entry_id", id).
		Str("season_id", entry.SeasonID).
		Str("user_id", entry.UserID).
		Int("delta_rp", entry.DeltaRP).
		Msg("rp entry inserted")
	return id, nil
}

func (r *RPRepository) GetByID(ctx context.Context, id string) (*domain.RPEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_id, user_id, entry_date, delta_rp, created_at
		FROM rp_entries WHERE id = ?`, id)
	return scanRPEntry(row)
}

// Delete removes one entry by id. The caller is responsible for the ownership
// check; this mirrors the row-level policy a hosted store would enforce.
func (r *RPRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rp_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rp entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Latest returns the most recent entry for a user, the durable replacement for
// a client-held undo stack lost on reload.
func (r *RPRepository) Latest(ctx context.Context, seasonID, userID string) (*domain.RPEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_id, user_id, entry_date, delta_rp, created_at
		FROM rp_entries WHERE season_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		seasonID, userID)
	return scanRPEntry(row)
}

// ListPage returns up to limit ledger rows for summation. Totals truncate once
// a season outgrows the page; see constants.RPSumPageLimit.
func (r *RPRepository) ListPage(ctx context.Context, seasonID, userID string, limit int) ([]domain.RPEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, season_id, user_id, entry_date, delta_rp, created_at
		FROM rp_entries WHERE season_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		seasonID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rp entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.RPEntry
	for rows.Next() {
		var e domain.RPEntry
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.UserID, &e.EntryDate, &e.DeltaRP, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rp entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanRPEntry(row *sql.Row) (*domain.RPEntry, error) {
	var e domain.RPEntry
	err := row.Scan(&e.ID, &e.SeasonID, &e.UserID, &e.EntryDate, &e.DeltaRP, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rp entry: %w", err)
	}
	return &e, nil
}
